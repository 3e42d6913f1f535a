// Package loaders defines the raw-format handler interface and the
// embedded registry the format packages register themselves into.
// Handlers are compiled into the binary and self-register via init(),
// so importing a format package for side effects is enough to make it
// loadable.
package loaders

import (
	"github.com/biomedcorpora/bigbio/core/schema"
	"github.com/biomedcorpora/bigbio/core/standoff"
)

// DetectResult reports whether a path is handled by a format.
type DetectResult struct {
	Detected bool   `json:"detected"`
	Format   string `json:"format,omitempty"`
	Reason   string `json:"reason"`
}

// Options carries per-load settings a handler may honor.
type Options struct {
	// Dataset is the dataset name records are loaded for. Handlers use
	// it as the document id prefix where the raw format has none.
	Dataset string
	// Join is the dataset's passage join convention.
	Join schema.JoinConvention
	// Fields maps raw source column/field names to unified field names
	// for record-shaped formats. Ignored by document-shaped formats.
	Fields map[string]string
}

// Result is a handler's loaded corpus. Document-shaped formats fill
// Documents; record-shaped formats fill Records. Reports carries one
// parse report per document for formats that produce them.
type Result struct {
	Documents []*schema.Document
	Records   []map[string]any
	Reports   []*standoff.Report
}

// Handler is one raw corpus format.
type Handler interface {
	// Name returns the format's registry name.
	Name() string

	// Detect checks whether the given path is handled by this format.
	Detect(path string) (*DetectResult, error)

	// Load reads a raw corpus file or directory.
	Load(path string, opts Options) (*Result, error)
}
