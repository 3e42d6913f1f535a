// Package csv provides the embedded handler for delimited corpora:
// comma-separated .csv and tab-separated .tsv files with a header row.
// Rows become flat records keyed by header name; per-dataset field
// tables rename them into unified field names.
package csv

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/biomedcorpora/bigbio/core/errors"
	"github.com/biomedcorpora/bigbio/core/loaders"
	"github.com/biomedcorpora/bigbio/internal/formats/base"
)

// FormatName is the registry name of this handler.
const FormatName = "csv"

// Handler implements loaders.Handler for delimited corpora.
type Handler struct{}

func init() {
	loaders.Register(&Handler{})
}

// Name returns the format's registry name.
func (h *Handler) Name() string { return FormatName }

// Detect accepts .csv and .tsv files.
func (h *Handler) Detect(path string) (*loaders.DetectResult, error) {
	return base.DetectFile(path, base.DetectConfig{
		Extensions: []string{".csv", ".tsv"},
		FormatName: FormatName,
	})
}

// Load reads a header row and one record per data row. Tab-separated
// files are recognized by extension. Ragged rows fail the load.
func (h *Handler) Load(path string, opts loaders.Options) (*loaders.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.NewParse(FormatName, path, err.Error())
	}
	if len(rows) == 0 {
		return nil, errors.NewParse(FormatName, path, "no header row")
	}

	header := rows[0]
	result := &loaders.Result{}
	for i, row := range rows[1:] {
		rec := make(map[string]any, len(header))
		for j, col := range header {
			rec[col] = row[j]
		}
		rec = base.RenameFields(rec, opts.Fields)
		if id, ok := rec["id"].(string); !ok || id == "" {
			rec["id"] = base.RecordID(opts.Dataset, path, i+1)
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}
