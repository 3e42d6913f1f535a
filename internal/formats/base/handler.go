// Package base provides common functionality for format handlers. It
// reduces duplication by abstracting the detection and file-reading
// patterns shared across the format packages.
package base

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/biomedcorpora/bigbio/core/loaders"
)

// DetectConfig contains configuration for format detection.
type DetectConfig struct {
	// Extensions is a list of valid file extensions (e.g., ".ann", ".xml")
	Extensions []string
	// ContentMarkers are strings that must be present in the file content
	ContentMarkers []string
	// FormatName is the name to return in DetectResult
	FormatName string
	// CheckContent determines if the file content should be read for detection
	CheckContent bool
	// CustomValidator is an optional function for additional validation
	CustomValidator func(path string, data []byte) (bool, string, error)
}

// DetectFile performs common file detection logic. It checks that the
// path is a file, matches the extension list, and optionally validates
// content.
func DetectFile(path string, config DetectConfig) (*loaders.DetectResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return &loaders.DetectResult{
			Detected: false,
			Reason:   fmt.Sprintf("cannot stat: %v", err),
		}, nil
	}

	if info.IsDir() {
		return &loaders.DetectResult{
			Detected: false,
			Reason:   "path is a directory, not a file",
		}, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	extensionMatch := false
	for _, validExt := range config.Extensions {
		if ext == strings.ToLower(validExt) {
			extensionMatch = true
			break
		}
	}

	// Content checks, when configured, are decisive: a file that fails
	// them is not claimed on extension alone.
	if config.CheckContent || len(config.ContentMarkers) > 0 || config.CustomValidator != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return &loaders.DetectResult{
				Detected: false,
				Reason:   fmt.Sprintf("cannot read: %v", err),
			}, nil
		}

		content := string(data)

		if len(config.ContentMarkers) > 0 {
			allMarkersFound := true
			for _, marker := range config.ContentMarkers {
				if !strings.Contains(content, marker) {
					allMarkersFound = false
					break
				}
			}

			if allMarkersFound {
				return &loaders.DetectResult{
					Detected: true,
					Format:   config.FormatName,
					Reason:   fmt.Sprintf("%s markers detected", config.FormatName),
				}, nil
			}
		}

		if config.CustomValidator != nil {
			detected, reason, err := config.CustomValidator(path, data)
			if err != nil {
				return &loaders.DetectResult{
					Detected: false,
					Reason:   fmt.Sprintf("validation error: %v", err),
				}, nil
			}
			if detected {
				return &loaders.DetectResult{
					Detected: true,
					Format:   config.FormatName,
					Reason:   reason,
				}, nil
			}
		}

		return &loaders.DetectResult{
			Detected: false,
			Reason:   fmt.Sprintf("content does not look like %s", config.FormatName),
		}, nil
	}

	if extensionMatch {
		return &loaders.DetectResult{
			Detected: true,
			Format:   config.FormatName,
			Reason:   fmt.Sprintf("%s file extension detected", config.FormatName),
		}, nil
	}

	return &loaders.DetectResult{
		Detected: false,
		Reason:   fmt.Sprintf("not a %s file", config.FormatName),
	}, nil
}

// DetectDir reports a directory as detected when it contains at least
// one file with any of the given extensions.
func DetectDir(path, formatName string, extensions []string) (*loaders.DetectResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return &loaders.DetectResult{
			Detected: false,
			Reason:   fmt.Sprintf("cannot stat: %v", err),
		}, nil
	}
	if !info.IsDir() {
		return &loaders.DetectResult{
			Detected: false,
			Reason:   "path is not a directory",
		}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return &loaders.DetectResult{
			Detected: false,
			Reason:   fmt.Sprintf("cannot read dir: %v", err),
		}, nil
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, validExt := range extensions {
			if ext == strings.ToLower(validExt) {
				return &loaders.DetectResult{
					Detected: true,
					Format:   formatName,
					Reason:   fmt.Sprintf("%s files found in directory", formatName),
				}, nil
			}
		}
	}

	return &loaders.DetectResult{
		Detected: false,
		Reason:   fmt.Sprintf("no %s files in directory", formatName),
	}, nil
}

// DocumentID derives a record's document id from a path when the raw
// format carries none: the base filename without extension, prefixed
// with the dataset name when set.
func DocumentID(dataset, path string) string {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if dataset != "" {
		return dataset + "." + id
	}
	return id
}

// RecordID derives a record id for line- or row-shaped formats that
// carry no ids of their own.
func RecordID(dataset, path string, n int) string {
	return fmt.Sprintf("%s-%d", DocumentID(dataset, path), n)
}

// RenameFields applies a source-to-unified field name table. Unmapped
// keys pass through unchanged; a mapped name wins over a passthrough
// key of the same name.
func RenameFields(rec map[string]any, fields map[string]string) map[string]any {
	if len(fields) == 0 {
		return rec
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if _, mapped := fields[k]; !mapped {
			out[k] = v
		}
	}
	for src, dst := range fields {
		if v, ok := rec[src]; ok {
			out[dst] = v
		}
	}
	return out
}
