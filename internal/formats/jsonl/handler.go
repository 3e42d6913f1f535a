// Package jsonl provides the embedded handler for line-delimited JSON
// corpora: one record object per line, already flat. Per-dataset field
// tables rename source keys into the unified field names; records with
// no id get one derived from the file name and line number.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/biomedcorpora/bigbio/core/errors"
	"github.com/biomedcorpora/bigbio/core/loaders"
	"github.com/biomedcorpora/bigbio/internal/formats/base"
)

// FormatName is the registry name of this handler.
const FormatName = "jsonl"

// maxLineBytes bounds a single record line. Abstracts run long but a
// multi-megabyte line is a corrupt file, not a record.
const maxLineBytes = 16 * 1024 * 1024

// Handler implements loaders.Handler for line-delimited JSON corpora.
type Handler struct{}

func init() {
	loaders.Register(&Handler{})
}

// Name returns the format's registry name.
func (h *Handler) Name() string { return FormatName }

// Detect accepts .jsonl/.ndjson files whose first non-blank line is a
// JSON object.
func (h *Handler) Detect(path string) (*loaders.DetectResult, error) {
	return base.DetectFile(path, base.DetectConfig{
		Extensions:   []string{".jsonl", ".ndjson"},
		FormatName:   FormatName,
		CheckContent: true,
		CustomValidator: func(path string, data []byte) (bool, string, error) {
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if strings.HasPrefix(line, "{") {
					return true, "json object per line", nil
				}
				return false, "", nil
			}
			return false, "", nil
		},
	})
}

// Load reads one record per line. Blank lines are skipped. A line that
// is not a JSON object fails the load; corpus files are machine
// written, so a bad line means the file is damaged.
func (h *Handler) Load(path string, opts loaders.Options) (*loaders.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	result := &loaders.Result{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, errors.NewParse(FormatName, path,
				fmt.Sprintf("line %d: %v", lineNo, err))
		}

		rec = base.RenameFields(rec, opts.Fields)
		if _, ok := rec["id"].(string); !ok {
			rec["id"] = base.RecordID(opts.Dataset, path, lineNo)
		}
		result.Records = append(result.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return result, nil
}
