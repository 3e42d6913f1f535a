// Package datasets registers the built-in dataset cards. Importing it
// for side effects populates the dataset registry, the same way the
// format packages populate the loader registry.
package datasets

import (
	"embed"
	"io/fs"
	"sort"

	"github.com/biomedcorpora/bigbio/core/dataset"
	"github.com/biomedcorpora/bigbio/internal/logging"
)

//go:embed cards/*.md
var cardFS embed.FS

// formats maps each built-in dataset to its raw-format handler.
var formats = map[string]string{
	"bc5cdr":   "brat",
	"nlm_gene": "bioc",
	"mednli":   "jsonl",
	"biosses":  "csv",
}

func init() {
	if err := registerAll(); err != nil {
		logging.Error("failed to register built-in datasets", "error", err)
	}
}

func registerAll() error {
	entries, err := fs.ReadDir(cardFS, "cards")
	if err != nil {
		return err
	}
	for _, e := range entries {
		data, err := fs.ReadFile(cardFS, "cards/"+e.Name())
		if err != nil {
			return err
		}
		card, err := dataset.ParseCard(data)
		if err != nil {
			return err
		}
		dataset.Register(&dataset.Entry{
			Card:   card,
			Format: formats[card.Name],
		})
	}
	return nil
}

// Names returns the built-in dataset names, sorted.
func Names() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
