package loaders

import (
	"strings"
	"testing"

	"github.com/biomedcorpora/bigbio/core/errors"
)

type fakeHandler struct {
	name   string
	suffix string
}

func (h *fakeHandler) Name() string { return h.name }

func (h *fakeHandler) Detect(path string) (*DetectResult, error) {
	if strings.HasSuffix(path, h.suffix) {
		return &DetectResult{Detected: true, Format: h.name, Reason: "suffix match"}, nil
	}
	return &DetectResult{Detected: false, Reason: "no match"}, nil
}

func (h *fakeHandler) Load(path string, opts Options) (*Result, error) {
	return &Result{}, nil
}

func TestRegistry(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register(&fakeHandler{name: "brat", suffix: ".ann"})
	Register(&fakeHandler{name: "jsonl", suffix: ".jsonl"})

	if !Has("brat") {
		t.Error("brat should be registered")
	}

	h, err := Get("jsonl")
	if err != nil {
		t.Fatal(err)
	}
	if h.Name() != "jsonl" {
		t.Errorf("Get returned %q", h.Name())
	}

	if _, err := Get("bioc"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}

	names := []string{}
	for _, h := range List() {
		names = append(names, h.Name())
	}
	if len(names) != 2 || names[0] != "brat" || names[1] != "jsonl" {
		t.Errorf("List = %v", names)
	}
}

func TestRegistry_IgnoresNilAndUnnamed(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register(nil)
	Register(&fakeHandler{name: ""})
	if n := len(List()); n != 0 {
		t.Errorf("expected empty registry, got %d handlers", n)
	}
}

func TestDetect(t *testing.T) {
	ClearRegistry()
	defer ClearRegistry()

	Register(&fakeHandler{name: "brat", suffix: ".ann"})
	Register(&fakeHandler{name: "jsonl", suffix: ".jsonl"})

	h, res, err := Detect("corpus/train.jsonl")
	if err != nil {
		t.Fatal(err)
	}
	if h.Name() != "jsonl" || !res.Detected {
		t.Errorf("Detect = %q, %+v", h.Name(), res)
	}

	if _, _, err := Detect("corpus/train.xml"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}
