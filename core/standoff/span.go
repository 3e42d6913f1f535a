package standoff

import (
	"strings"

	"github.com/biomedcorpora/bigbio/core/schema"
)

// Span is one or more disjoint character ranges plus their corresponding
// text fragments. A single-range span is the common case; multiple ranges
// represent a discontinuous mention. Offsets and Text are parallel arrays
// and count Unicode code points.
type Span struct {
	Offsets []schema.Offset
	Text    []string
}

// NewSpan builds a span over the given document text, deriving each
// fragment by slicing the text at its offset range. The document text is
// authoritative: the caller is expected to have bounds-checked the offsets.
func NewSpan(docText []rune, offsets []schema.Offset) Span {
	text := make([]string, 0, len(offsets))
	for _, off := range offsets {
		text = append(text, string(docText[off.Start:off.End]))
	}
	return Span{Offsets: offsets, Text: text}
}

// Joined returns the span fragments joined with single spaces, the form
// BRAT writes in the literal text column of a T line.
func (s Span) Joined() string {
	return strings.Join(s.Text, " ")
}

// Discontinuous returns true if the span has more than one fragment.
func (s Span) Discontinuous() bool {
	return len(s.Offsets) > 1
}

// Matches re-slices the document text at the span's offsets and compares
// against the stored fragments. This is the round-trip invariant every
// span must satisfy.
func (s Span) Matches(docText string) bool {
	runes := []rune(docText)
	if len(s.Offsets) != len(s.Text) {
		return false
	}
	for i, off := range s.Offsets {
		if off.Start < 0 || off.End < off.Start || off.End > len(runes) {
			return false
		}
		if string(runes[off.Start:off.End]) != s.Text[i] {
			return false
		}
	}
	return true
}
