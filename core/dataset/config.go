// Package dataset describes loadable corpora: their configs, metadata
// cards, and the registry the format handlers and CLI populate.
//
// Every dataset exposes one source config, which preserves the raw
// corpus shape, and one config per supported unified schema. Config
// names follow a fixed contract so callers can address a view without
// consulting the dataset first:
//
//	<dataset>_source
//	<dataset>_bigbio_<schema>
package dataset

import (
	"fmt"
	"strings"

	"github.com/biomedcorpora/bigbio/core/errors"
	"github.com/biomedcorpora/bigbio/core/schema"
)

// Config identifies one loadable view of a dataset: either the raw
// source view or a unified-schema view.
type Config struct {
	// Dataset is the dataset's short name, e.g. "bc5cdr".
	Dataset string `json:"dataset"`
	// Schema is the target unified schema. Empty for the source config.
	Schema schema.Schema `json:"schema,omitempty"`
	// Source is true for the raw source view.
	Source bool `json:"source"`
	// Version is the dataset version the config was built against.
	Version string `json:"version,omitempty"`
}

// SourceConfig returns the raw source config for a dataset.
func SourceConfig(dataset string) Config {
	return Config{Dataset: dataset, Source: true}
}

// SchemaConfig returns the unified-schema config for a dataset.
func SchemaConfig(dataset string, sch schema.Schema) Config {
	return Config{Dataset: dataset, Schema: sch}
}

// Name renders the config's canonical name.
func (c Config) Name() string {
	if c.Source {
		return c.Dataset + "_source"
	}
	return fmt.Sprintf("%s_bigbio_%s", c.Dataset, c.Schema)
}

func (c Config) String() string {
	return c.Name()
}

// ParseConfigName parses a canonical config name back into a Config.
// Dataset names may themselves contain underscores, so the suffix is
// matched first.
func ParseConfigName(name string) (Config, error) {
	if ds, ok := strings.CutSuffix(name, "_source"); ok && ds != "" {
		return SourceConfig(ds), nil
	}
	ds, sch, ok := cutLast(name, "_bigbio_")
	if !ok || ds == "" {
		return Config{}, errors.NewValidation("config",
			fmt.Sprintf("%q is not a <dataset>_source or <dataset>_bigbio_<schema> name", name))
	}
	s := schema.Schema(sch)
	if !s.IsValid() {
		return Config{}, errors.NewValidation("config",
			fmt.Sprintf("%q: unknown schema %q", name, sch))
	}
	return SchemaConfig(ds, s), nil
}

// cutLast is strings.Cut on the last occurrence of sep.
func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
