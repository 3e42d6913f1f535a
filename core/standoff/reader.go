package standoff

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/biomedcorpora/bigbio/core/errors"
)

// FileResult pairs a document id with its parsed collections and report.
type FileResult struct {
	DocID       string
	Collections *Collections
	Report      *Report
}

// ParsePair parses one <docid>.txt/<docid>.ann file pair. The text file is
// read as UTF-8; the annotation file is split into lines. A missing
// annotation file is not an error: BRAT exports omit the .ann for
// documents with no annotations.
func ParsePair(txtPath, annPath string) (*Collections, *Report, error) {
	text, err := os.ReadFile(txtPath)
	if err != nil {
		return nil, nil, errors.NewIO("read", txtPath, err)
	}

	var annLines []string
	ann, err := os.ReadFile(annPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, nil, errors.NewIO("read", annPath, err)
		}
	} else {
		annLines = strings.Split(string(ann), "\n")
	}

	cols, report := Parse(string(text), annLines)
	return cols, report, nil
}

// ParseDir parses every .txt/.ann pair directly under dir, in document-id
// order. Documents are independent; a parse problem in one shows up in its
// own Report and never affects the others.
func ParseDir(dir string) ([]*FileResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIO("read", dir, err)
	}

	var results []*FileResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		docID := strings.TrimSuffix(entry.Name(), ".txt")
		txtPath := filepath.Join(dir, entry.Name())
		annPath := filepath.Join(dir, docID+".ann")

		cols, report, err := ParsePair(txtPath, annPath)
		if err != nil {
			return nil, err
		}
		results = append(results, &FileResult{DocID: docID, Collections: cols, Report: report})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].DocID < results[j].DocID })
	return results, nil
}
