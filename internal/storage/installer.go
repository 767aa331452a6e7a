package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonesrussell/telemetry-storage/internal/config"
	"github.com/jonesrussell/telemetry-storage/internal/elasticsearch"
	"github.com/jonesrussell/telemetry-storage/internal/logger"
)

// Installer creates the schema for every registered model at startup.
// Installation is idempotent: existing templates and indices are left
// untouched, so a restart never recreates or mutates live schema.
type Installer struct {
	client *elasticsearch.Client
	schema config.SchemaConfig
	log    logger.Logger
	now    func() time.Time
}

func NewInstaller(client *elasticsearch.Client, schema config.SchemaConfig, log logger.Logger) *Installer {
	return &Installer{client: client, schema: schema, log: log, now: time.Now}
}

// Install walks the registry and creates whatever is missing. For a
// rotating model the template is installed before its first index, so
// the index is born matching the family pattern and carrying the alias;
// an index created ahead of its template would fall outside the family.
func (i *Installer) Install(ctx context.Context, registry *Registry) error {
	for _, model := range registry.All() {
		if model.Rotating {
			if err := i.installRotating(ctx, model); err != nil {
				return err
			}
			continue
		}
		if err := i.installFlat(ctx, model); err != nil {
			return err
		}
	}
	return nil
}

func (i *Installer) installRotating(ctx context.Context, model Model) error {
	settings := i.settings()

	exists, err := i.client.TemplateExists(ctx, model.Name)
	if err != nil {
		return fmt.Errorf("install %s: %w", model.Name, err)
	}
	if !exists {
		if _, err := i.client.CreateTemplate(ctx, model.Name, settings, model.Mappings); err != nil {
			return fmt.Errorf("install %s: %w", model.Name, err)
		}
		i.log.Info("template installed", logger.String("model", model.Name))
	}

	// The alias answers existence once any generation is live.
	exists, err = i.client.IndexExists(ctx, model.Name)
	if err != nil {
		return fmt.Errorf("install %s: %w", model.Name, err)
	}
	if !exists {
		// The first generation carries a date suffix so it matches the
		// family pattern and is born with the alias attached.
		generation := model.Name + "-" + i.now().Format("20060102")
		if _, err := i.client.CreateIndex(ctx, generation); err != nil {
			return fmt.Errorf("install %s: %w", model.Name, err)
		}
		i.log.Info("index installed",
			logger.String("model", model.Name),
			logger.String("generation", generation),
		)
	}
	return nil
}

func (i *Installer) installFlat(ctx context.Context, model Model) error {
	exists, err := i.client.IndexExists(ctx, model.Name)
	if err != nil {
		return fmt.Errorf("install %s: %w", model.Name, err)
	}
	if exists {
		return nil
	}
	if _, err := i.client.CreateIndexWithSchema(ctx, model.Name, i.settings(), model.Mappings); err != nil {
		return fmt.Errorf("install %s: %w", model.Name, err)
	}
	i.log.Info("index installed", logger.String("model", model.Name))
	return nil
}

func (i *Installer) settings() elasticsearch.Settings {
	return elasticsearch.Settings{
		Index: elasticsearch.IndexSettings{
			NumberOfShards:   i.schema.IndexShardsNumber,
			NumberOfReplicas: i.schema.IndexReplicasNumber,
			RefreshInterval:  strconv.Itoa(i.schema.IndexRefreshInterval) + "s",
		},
	}
}
