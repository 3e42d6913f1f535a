package dataset

import (
	"sort"
	"sync"

	"github.com/biomedcorpora/bigbio/core/errors"
)

// Entry is a registered dataset: its card plus the raw format its
// corpus ships in.
type Entry struct {
	Card *Card `json:"card"`
	// Format names the raw-format handler that loads this dataset,
	// e.g. "brat" or "bioc".
	Format string `json:"format"`
}

// registry holds all registered datasets, keyed by dataset name.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Entry)
)

// Register registers a dataset entry by its card's name. Registering
// the same name twice replaces the earlier entry.
func Register(e *Entry) {
	if e == nil || e.Card == nil || e.Card.Name == "" {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[e.Card.Name] = e
}

// Get returns a registered dataset by name.
func Get(name string) (*Entry, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[name]
	if !ok {
		return nil, errors.NewNotFound("dataset", name)
	}
	return e, nil
}

// Has checks whether a dataset with the given name is registered.
func Has(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// List returns all registered datasets sorted by name.
func List() []*Entry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	entries := make([]*Entry, 0, len(registry))
	for _, e := range registry {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Card.Name < entries[j].Card.Name
	})
	return entries
}

// Configs returns the canonical config set of every registered dataset,
// sorted by config name.
func Configs() []Config {
	var configs []Config
	for _, e := range List() {
		configs = append(configs, e.Card.Configs()...)
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name() < configs[j].Name()
	})
	return configs
}

// Resolve parses a config name and returns it with its dataset entry.
func Resolve(name string) (Config, *Entry, error) {
	cfg, err := ParseConfigName(name)
	if err != nil {
		return Config{}, nil, err
	}
	e, err := Get(cfg.Dataset)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, e, nil
}

// ClearRegistry clears all registered datasets (for testing).
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*Entry)
}
