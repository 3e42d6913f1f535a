package loaders

import (
	"sort"
	"sync"

	"github.com/biomedcorpora/bigbio/core/errors"
)

// handlerRegistry holds all embedded format handlers.
var (
	registryMu      sync.RWMutex
	handlerRegistry = make(map[string]Handler)
)

// Register registers a format handler by its name.
func Register(h Handler) {
	if h == nil || h.Name() == "" {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	handlerRegistry[h.Name()] = h
}

// Get returns a handler by format name.
func Get(name string) (Handler, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	h, ok := handlerRegistry[name]
	if !ok {
		return nil, errors.NewNotFound("format", name)
	}
	return h, nil
}

// Has checks whether a format handler is registered.
func Has(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := handlerRegistry[name]
	return ok
}

// List returns all registered handlers sorted by name.
func List() []Handler {
	registryMu.RLock()
	defer registryMu.RUnlock()
	handlers := make([]Handler, 0, len(handlerRegistry))
	for _, h := range handlerRegistry {
		handlers = append(handlers, h)
	}
	sort.Slice(handlers, func(i, j int) bool {
		return handlers[i].Name() < handlers[j].Name()
	})
	return handlers
}

// Detect asks every registered handler whether it recognizes the path
// and returns the first match, in name order.
func Detect(path string) (Handler, *DetectResult, error) {
	for _, h := range List() {
		res, err := h.Detect(path)
		if err != nil {
			return nil, nil, err
		}
		if res.Detected {
			return h, res, nil
		}
	}
	return nil, nil, errors.NewNotFound("format for path", path)
}

// ClearRegistry clears all registered handlers (for testing).
func ClearRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	handlerRegistry = make(map[string]Handler)
}
