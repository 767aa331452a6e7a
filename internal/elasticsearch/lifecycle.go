package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/jonesrussell/telemetry-storage/internal/logger"
)

// ackResponse is the acknowledgement envelope returned by administrative
// endpoints.
type ackResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// CreateIndex resolves the logical name and creates the index with
// cluster-default settings. Returns the acknowledgement flag.
func (c *Client) CreateIndex(ctx context.Context, logicalName string) (bool, error) {
	return c.createIndex(ctx, logicalName, nil)
}

// CreateIndexWithSchema resolves the logical name and creates the index
// with explicit settings and mappings.
func (c *Client) CreateIndexWithSchema(ctx context.Context, logicalName string, settings Settings, mappings Mappings) (bool, error) {
	body := struct {
		Settings Settings `json:"settings"`
		Mappings Mappings `json:"mappings"`
	}{Settings: settings, Mappings: mappings}
	return c.createIndex(ctx, logicalName, &body)
}

func (c *Client) createIndex(ctx context.Context, logicalName string, body any) (bool, error) {
	physical := c.ns.Resolve(logicalName)

	opts := []func(*esapi.IndicesCreateRequest){
		c.es.Indices.Create.WithContext(ctx),
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return false, &AdminError{Op: "create index", Name: physical, Err: err}
		}
		opts = append(opts, c.es.Indices.Create.WithBody(bytes.NewReader(raw)))
	}

	res, err := c.es.Indices.Create(physical, opts...)
	if err != nil {
		return false, &AdminError{Op: "create index", Name: physical, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, adminStatusError("create index", physical, res)
	}

	acked, err := decodeAck(res.Body)
	if err != nil {
		return false, &AdminError{Op: "create index", Name: physical, Err: err}
	}
	c.log.Debug("index created", logger.String("index", physical), logger.Bool("acknowledged", acked))
	return acked, nil
}

// IndexExists resolves the logical name and checks index existence.
// Exactly 200 means present and 404 means absent; any other status is an
// error, never a boolean.
func (c *Client) IndexExists(ctx context.Context, logicalName string) (bool, error) {
	physical := c.ns.Resolve(logicalName)

	res, err := c.es.Indices.Exists([]string{physical}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, &AdminError{Op: "index exists", Name: physical, Err: err}
	}
	defer res.Body.Close()

	return decodeExistence("index exists", physical, res)
}

// TemplateExists resolves the logical name and checks template existence
// with the same 200/404 strictness as IndexExists.
func (c *Client) TemplateExists(ctx context.Context, logicalName string) (bool, error) {
	physical := c.ns.Resolve(logicalName)

	req := esapi.IndicesExistsTemplateRequest{Name: []string{physical}}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return false, &AdminError{Op: "template exists", Name: physical, Err: err}
	}
	defer res.Body.Close()

	return decodeExistence("template exists", physical, res)
}

// CreateTemplate builds and stores the template for a rotating index
// family: pattern "{physical}-*", alias "{physical}". The document is
// validated locally before it is sent.
func (c *Client) CreateTemplate(ctx context.Context, logicalName string, settings Settings, mappings Mappings) (bool, error) {
	physical := c.ns.Resolve(logicalName)

	tmpl := newTemplate(physical, settings, mappings)
	if err := tmpl.Validate(); err != nil {
		return false, &AdminError{Op: "create template", Name: physical, Err: err}
	}

	raw, err := json.Marshal(tmpl)
	if err != nil {
		return false, &AdminError{Op: "create template", Name: physical, Err: err}
	}

	req := esapi.IndicesPutTemplateRequest{Name: physical, Body: bytes.NewReader(raw)}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return false, &AdminError{Op: "create template", Name: physical, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, adminStatusError("create template", physical, res)
	}
	c.log.Debug("template created",
		logger.String("template", physical),
		logger.String("pattern", physical+"-*"),
	)
	return res.StatusCode == http.StatusOK, nil
}

// DeleteTemplate resolves the logical name and deletes the template.
func (c *Client) DeleteTemplate(ctx context.Context, logicalName string) (bool, error) {
	physical := c.ns.Resolve(logicalName)

	req := esapi.IndicesDeleteTemplateRequest{Name: physical}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return false, &AdminError{Op: "delete template", Name: physical, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, adminStatusError("delete template", physical, res)
	}
	return res.StatusCode == http.StatusOK, nil
}

// DeleteIndexPhysical deletes an index by its physical name, with no
// namespace resolution. Use it for names obtained from the cluster
// itself, e.g. through IndicesByAlias, which already carry the prefix.
func (c *Client) DeleteIndexPhysical(ctx context.Context, physicalName string) (bool, error) {
	return c.deleteIndex(ctx, physicalName)
}

// DeleteIndexLogical resolves the logical name first, then deletes. Use
// it for names from configuration or model metadata, which carry no
// prefix. Feeding an already-physical name here would double-prefix it.
func (c *Client) DeleteIndexLogical(ctx context.Context, logicalName string) (bool, error) {
	return c.deleteIndex(ctx, c.ns.Resolve(logicalName))
}

func (c *Client) deleteIndex(ctx context.Context, physical string) (bool, error) {
	res, err := c.es.Indices.Delete([]string{physical}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return false, &AdminError{Op: "delete index", Name: physical, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return false, adminStatusError("delete index", physical, res)
	}

	acked, err := decodeAck(res.Body)
	if err != nil {
		return false, &AdminError{Op: "delete index", Name: physical, Err: err}
	}
	c.log.Debug("index deleted", logger.String("index", physical), logger.Bool("acknowledged", acked))
	return acked, nil
}

// IndicesByAlias resolves the alias name and returns the physical names
// of every index behind it. Returns an empty slice, not an error, when
// nothing matches.
func (c *Client) IndicesByAlias(ctx context.Context, aliasLogicalName string) ([]string, error) {
	physical := c.ns.Resolve(aliasLogicalName)

	res, err := c.es.Indices.GetAlias(
		c.es.Indices.GetAlias.WithName(physical),
		c.es.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return nil, &AdminError{Op: "indices by alias", Name: physical, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return []string{}, nil
	}
	if res.IsError() {
		return nil, adminStatusError("indices by alias", physical, res)
	}

	// The response is keyed by physical index name.
	var byIndex map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&byIndex); err != nil {
		return nil, &AdminError{Op: "indices by alias", Name: physical, Err: err}
	}

	indices := make([]string, 0, len(byIndex))
	for name := range byIndex {
		indices = append(indices, name)
	}
	return indices, nil
}

func decodeAck(body io.Reader) (bool, error) {
	var ack ackResponse
	if err := json.NewDecoder(body).Decode(&ack); err != nil {
		return false, err
	}
	return ack.Acknowledged, nil
}

// decodeExistence applies the strict 200/404 contract shared by both
// existence checks.
func decodeExistence(op, name string, res *esapi.Response) (bool, error) {
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &AdminError{Op: op, Name: name, Status: res.StatusCode, Err: ErrAmbiguousStatus}
	}
}

func adminStatusError(op, name string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return &AdminError{Op: op, Name: name, Status: res.StatusCode, Body: string(body)}
}
