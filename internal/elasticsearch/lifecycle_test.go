package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
)

func TestCreateIndex_ResolvesAndAcknowledges(t *testing.T) {
	var gotPath string
	client := newTestClient(t, "prod", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"acknowledged":true}`)
	})

	acked, err := client.CreateIndex(context.Background(), "metrics")
	if err != nil {
		t.Fatalf("CreateIndex() = %v", err)
	}
	if !acked {
		t.Error("acknowledged = false, want true")
	}
	if gotPath != "PUT /prod_metrics" {
		t.Errorf("request = %q, want PUT /prod_metrics", gotPath)
	}
}

func TestCreateIndexWithSchema_SendsSettingsAndMappings(t *testing.T) {
	var gotBody map[string]json.RawMessage
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"acknowledged":true}`)
	})

	_, err := client.CreateIndexWithSchema(context.Background(), "register_lock",
		defaultTestSettings(), defaultTestMappings())
	if err != nil {
		t.Fatalf("CreateIndexWithSchema() = %v", err)
	}
	if _, ok := gotBody["settings"]; !ok {
		t.Error("request body missing settings")
	}
	if _, ok := gotBody["mappings"]; !ok {
		t.Error("request body missing mappings")
	}
}

func TestCreateIndex_ServerError(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"resource_already_exists_exception"}`)
	})

	_, err := client.CreateIndex(context.Background(), "metrics")
	var adminErr *AdminError
	if !errors.As(err, &adminErr) {
		t.Fatalf("CreateIndex() error = %v, want *AdminError", err)
	}
	if adminErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", adminErr.Status)
	}
}

func TestIndexExists_StrictStatuses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		expected   bool
		wantErr    bool
		errIsAmbig bool
	}{
		{"present", http.StatusOK, true, false, false},
		{"absent", http.StatusNotFound, false, false, false},
		{"ambiguous 403", http.StatusForbidden, false, true, true},
		{"ambiguous 500", http.StatusInternalServerError, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			exists, err := client.IndexExists(context.Background(), "metrics")
			if tt.wantErr {
				if err == nil {
					t.Fatal("IndexExists() = nil error, want ambiguous-status error")
				}
				if tt.errIsAmbig && !errors.Is(err, ErrAmbiguousStatus) {
					t.Errorf("error = %v, want ErrAmbiguousStatus", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("IndexExists() = %v", err)
			}
			if exists != tt.expected {
				t.Errorf("exists = %v, want %v", exists, tt.expected)
			}
		})
	}
}

func TestTemplateExists_StrictStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected bool
		wantErr  bool
	}{
		{"present", http.StatusOK, true, false},
		{"absent", http.StatusNotFound, false, false},
		{"ambiguous", http.StatusBadGateway, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			client := newTestClient(t, "prod", func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
			})

			exists, err := client.TemplateExists(context.Background(), "metrics")
			if gotPath != "/_template/prod_metrics" {
				t.Errorf("path = %q, want /_template/prod_metrics", gotPath)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrAmbiguousStatus) {
					t.Fatalf("error = %v, want ErrAmbiguousStatus", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("TemplateExists() = %v", err)
			}
			if exists != tt.expected {
				t.Errorf("exists = %v, want %v", exists, tt.expected)
			}
		})
	}
}

func TestCreateTemplate_BuildsRotatingFamilyDocument(t *testing.T) {
	var gotPath string
	var gotTemplate Template
	client := newTestClient(t, "prod", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotTemplate); err != nil {
			t.Errorf("decode template body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"acknowledged":true}`)
	})

	ok, err := client.CreateTemplate(context.Background(), "metrics",
		defaultTestSettings(), defaultTestMappings())
	if err != nil {
		t.Fatalf("CreateTemplate() = %v", err)
	}
	if !ok {
		t.Error("CreateTemplate() = false, want true")
	}
	if gotPath != "PUT /_template/prod_metrics" {
		t.Errorf("request = %q, want PUT /_template/prod_metrics", gotPath)
	}
	if len(gotTemplate.IndexPatterns) != 1 || gotTemplate.IndexPatterns[0] != "prod_metrics-*" {
		t.Errorf("index_patterns = %v, want [prod_metrics-*]", gotTemplate.IndexPatterns)
	}
	if _, ok := gotTemplate.Aliases["prod_metrics"]; !ok {
		t.Errorf("aliases = %v, want prod_metrics", gotTemplate.Aliases)
	}
}

func TestCreateTemplate_RejectsInvalidSchemaLocally(t *testing.T) {
	requests := 0
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.CreateTemplate(context.Background(), "metrics",
		Settings{}, defaultTestMappings())
	if err == nil {
		t.Fatal("CreateTemplate() = nil error, want local validation failure")
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0 (invalid template must not reach the server)", requests)
	}
}

func TestDeleteTemplate(t *testing.T) {
	var gotPath string
	client := newTestClient(t, "prod", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"acknowledged":true}`)
	})

	ok, err := client.DeleteTemplate(context.Background(), "metrics")
	if err != nil {
		t.Fatalf("DeleteTemplate() = %v", err)
	}
	if !ok {
		t.Error("DeleteTemplate() = false, want true")
	}
	if gotPath != "DELETE /_template/prod_metrics" {
		t.Errorf("request = %q, want DELETE /_template/prod_metrics", gotPath)
	}
}

// The two deletion entry points differ only in resolution: logical names
// are prefixed, physical names pass through untouched.
func TestDeleteIndex_LogicalVersusPhysical(t *testing.T) {
	var paths []string
	client := newTestClient(t, "prod", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"acknowledged":true}`)
	})

	if _, err := client.DeleteIndexLogical(context.Background(), "metrics"); err != nil {
		t.Fatalf("DeleteIndexLogical() = %v", err)
	}
	if _, err := client.DeleteIndexPhysical(context.Background(), "prod_metrics-20260830"); err != nil {
		t.Fatalf("DeleteIndexPhysical() = %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("requests = %d, want 2", len(paths))
	}
	if paths[0] != "/prod_metrics" {
		t.Errorf("logical delete path = %q, want /prod_metrics", paths[0])
	}
	if paths[1] != "/prod_metrics-20260830" {
		t.Errorf("physical delete path = %q, want /prod_metrics-20260830 (no re-resolution)", paths[1])
	}
}

func TestIndicesByAlias(t *testing.T) {
	client := newTestClient(t, "prod", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_alias/prod_metrics" {
			t.Errorf("path = %q, want /_alias/prod_metrics", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"prod_metrics-20260829":{"aliases":{"prod_metrics":{}}},
			"prod_metrics-20260830":{"aliases":{"prod_metrics":{}}}
		}`)
	})

	indices, err := client.IndicesByAlias(context.Background(), "metrics")
	if err != nil {
		t.Fatalf("IndicesByAlias() = %v", err)
	}
	if len(indices) != 2 {
		t.Fatalf("indices = %v, want 2 entries", indices)
	}
	found := map[string]bool{}
	for _, name := range indices {
		found[name] = true
	}
	if !found["prod_metrics-20260829"] || !found["prod_metrics-20260830"] {
		t.Errorf("indices = %v, want both rotating family members", indices)
	}
}

func TestIndicesByAlias_NoMatchesIsEmptyNotError(t *testing.T) {
	client := newTestClient(t, "prod", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"alias [prod_metrics] missing"}`)
	})

	indices, err := client.IndicesByAlias(context.Background(), "metrics")
	if err != nil {
		t.Fatalf("IndicesByAlias() = %v, want empty result", err)
	}
	if len(indices) != 0 {
		t.Errorf("indices = %v, want empty", indices)
	}
}
