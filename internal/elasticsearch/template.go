package elasticsearch

import (
	"errors"
	"fmt"
)

// Settings are the index-level settings applied at creation time, either
// directly or through a template.
type Settings struct {
	Index IndexSettings `json:"index"`
}

// IndexSettings mirrors the index block of the settings document.
type IndexSettings struct {
	NumberOfShards   int `json:"number_of_shards"`
	NumberOfReplicas int `json:"number_of_replicas"`
	// RefreshInterval is a duration string such as "3s". Empty keeps the
	// cluster default.
	RefreshInterval string `json:"refresh_interval,omitempty"`
}

// Mappings declares the field types of a model.
type Mappings struct {
	Properties map[string]Property `json:"properties"`
}

// Property is a single field mapping.
type Property struct {
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`
	// Index disables indexing of a stored-only field when set to false.
	Index *bool `json:"index,omitempty"`
}

// Alias is an alias entry in a template. Always an empty object on the
// wire.
type Alias struct{}

// Template is a stored pattern-based configuration the cluster applies to
// every newly created index matching one of its patterns. Built here as a
// typed document so malformed settings or mappings fail before they reach
// the server.
type Template struct {
	IndexPatterns []string         `json:"index_patterns"`
	Aliases       map[string]Alias `json:"aliases"`
	Settings      Settings         `json:"settings"`
	Mappings      Mappings         `json:"mappings"`
}

// newTemplate builds the template document for a physical index family:
// pattern "{physical}-*" with an alias equal to the physical name, so
// queries against the alias span the whole rotating family.
func newTemplate(physicalName string, settings Settings, mappings Mappings) Template {
	return Template{
		IndexPatterns: []string{physicalName + "-*"},
		Aliases:       map[string]Alias{physicalName: {}},
		Settings:      settings,
		Mappings:      mappings,
	}
}

// Validate rejects template documents the server would refuse, before any
// request is made.
func (t Template) Validate() error {
	if len(t.IndexPatterns) == 0 {
		return errors.New("template has no index patterns")
	}
	if t.Settings.Index.NumberOfShards < 1 {
		return fmt.Errorf("number_of_shards must be >= 1, got %d", t.Settings.Index.NumberOfShards)
	}
	if t.Settings.Index.NumberOfReplicas < 0 {
		return fmt.Errorf("number_of_replicas must be >= 0, got %d", t.Settings.Index.NumberOfReplicas)
	}
	for name, prop := range t.Mappings.Properties {
		if prop.Type == "" {
			return fmt.Errorf("property %q has no type", name)
		}
	}
	return nil
}
