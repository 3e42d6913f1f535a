package standoff

import (
	"fmt"

	"github.com/biomedcorpora/bigbio/core/errors"
)

// MalformedOffsetError reports an offset that is non-numeric, negative, or
// has start > end. The owning annotation is dropped; parsing continues.
type MalformedOffsetError struct {
	Line   int    // 1-based line number in the .ann input
	AnnID  string // Local annotation id, if it could be read
	Raw    string // The offending offset column
	Reason string // What was wrong with it
}

func (e *MalformedOffsetError) Error() string {
	if e.AnnID != "" {
		return fmt.Sprintf("malformed offset in %s (line %d): %q: %s", e.AnnID, e.Line, e.Raw, e.Reason)
	}
	return fmt.Sprintf("malformed offset (line %d): %q: %s", e.Line, e.Raw, e.Reason)
}

func (e *MalformedOffsetError) Unwrap() error {
	return errors.ErrInvalidInput
}

// DanglingReferenceError reports a reference to an id that is never
// defined anywhere in the document. The referencing annotation is dropped;
// parsing continues.
type DanglingReferenceError struct {
	Line  int    // 1-based line number in the .ann input
	AnnID string // Local id of the referencing annotation
	Ref   string // The unresolved reference
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("annotation %s (line %d) references undefined id %q", e.AnnID, e.Line, e.Ref)
}

func (e *DanglingReferenceError) Unwrap() error {
	return errors.ErrNotFound
}
