// Package brat provides the embedded handler for BRAT standoff corpora:
// directories of <docid>.txt/<docid>.ann pairs. Parsing itself lives in
// core/standoff; this package adapts it to the loaders interface and
// re-stamps document-local annotation ids into globally unique ones.
package brat

import (
	"os"
	"strings"

	"github.com/biomedcorpora/bigbio/core/loaders"
	"github.com/biomedcorpora/bigbio/core/schema"
	"github.com/biomedcorpora/bigbio/core/standoff"
	"github.com/biomedcorpora/bigbio/internal/formats/base"
)

// FormatName is the registry name of this handler.
const FormatName = "brat"

// Handler implements loaders.Handler for BRAT standoff corpora.
type Handler struct{}

func init() {
	loaders.Register(&Handler{})
}

// Name returns the format's registry name.
func (h *Handler) Name() string { return FormatName }

// Detect accepts a directory containing .ann files or a single .ann
// file with a sibling .txt.
func (h *Handler) Detect(path string) (*loaders.DetectResult, error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return base.DetectDir(path, FormatName, []string{".ann"})
	}
	return base.DetectFile(path, base.DetectConfig{
		Extensions: []string{".ann"},
		FormatName: FormatName,
	})
}

// Load parses a corpus directory (or a single .ann file) into kb
// documents with globally re-stamped ids, one parse report per document.
func (h *Handler) Load(path string, opts loaders.Options) (*loaders.Result, error) {
	var files []*standoff.FileResult

	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		docID := strings.TrimSuffix(path, ".ann")
		cols, report, err := standoff.ParsePair(docID+".txt", path)
		if err != nil {
			return nil, err
		}
		files = []*standoff.FileResult{{
			DocID:       base.DocumentID("", docID),
			Collections: cols,
			Report:      report,
		}}
	} else {
		files, err = standoff.ParseDir(path)
		if err != nil {
			return nil, err
		}
	}

	result := &loaders.Result{}
	for _, f := range files {
		docID := f.DocID
		if opts.Dataset != "" {
			docID = opts.Dataset + "." + docID
		}
		local := f.Collections.ToDocument(docID)
		// The record id stamps as <docid>.doc; annotation ids as <docid>.<local>.
		local.ID = "doc"
		doc, err := schema.MapKB(local, schema.NewIDStamper(docID))
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, doc)
		result.Reports = append(result.Reports, f.Report)
	}
	return result, nil
}
