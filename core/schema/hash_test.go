package schema

import (
	"errors"
	"strings"
	"testing"
)

func TestHashString(t *testing.T) {
	// sha256("") and sha256("abc") are well known.
	tests := []struct {
		in   string
		want string
	}{
		{"", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tt := range tests {
		if got := HashString(tt.in); got != tt.want {
			t.Errorf("HashString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestHashBytesMatchesHashString(t *testing.T) {
	if HashBytes([]byte("corpus")) != HashString("corpus") {
		t.Error("HashBytes and HashString disagree")
	}
}

func TestHashRecord_Deterministic(t *testing.T) {
	doc := validDocument()
	h1, err := HashRecord(doc)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashRecord(doc)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("hashes differ: %s vs %s", h1, h2)
	}
	if len(h1) != 64 || strings.ToLower(h1) != h1 {
		t.Errorf("not a lowercase sha256 hex digest: %q", h1)
	}
}

func TestHashRecord_SensitiveToContent(t *testing.T) {
	a := validDocument()
	b := validDocument()
	b.Entities[0].Type = "Disease"

	ha, err := HashRecord(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := HashRecord(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha == hb {
		t.Error("distinct records hashed to the same digest")
	}
}

func TestHashRecord_MarshalError(t *testing.T) {
	orig := jsonMarshal
	defer func() { jsonMarshal = orig }()
	jsonMarshal = func(any) ([]byte, error) {
		return nil, errors.New("marshal failed")
	}
	if _, err := HashRecord(validDocument()); err == nil {
		t.Error("expected error from failing marshal")
	}
}

func TestHashDocumentText_JoinSensitive(t *testing.T) {
	doc := validDocument()
	if HashDocumentText(doc, JoinSpace) == HashDocumentText(doc, JoinNone) {
		t.Error("join convention should change the reconstructed text hash")
	}
	if HashDocumentText(doc, JoinSpace) != HashString(doc.FullText(JoinSpace)) {
		t.Error("digest does not match hash of reconstructed text")
	}
}
