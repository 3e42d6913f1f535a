package schema

import (
	"fmt"
)

// ViolationKind classifies a structural conformance violation.
type ViolationKind string

// Violation kinds.
const (
	// ViolationOffsetTextMismatch: an offset range's slice of the
	// reconstructed document text differs from the stored text.
	ViolationOffsetTextMismatch ViolationKind = "OFFSET_TEXT_MISMATCH"
	// ViolationUnresolvedReference: a referenced id does not resolve to
	// any entity or event in the record.
	ViolationUnresolvedReference ViolationKind = "UNRESOLVED_REFERENCE"
	// ViolationDuplicateID: an id appears more than once across the
	// record's sub-collections.
	ViolationDuplicateID ViolationKind = "DUPLICATE_ID"
	// ViolationMissingKey: a required schema key is absent.
	ViolationMissingKey ViolationKind = "MISSING_KEY"
	// ViolationWrongType: a key holds a value of the wrong type.
	ViolationWrongType ViolationKind = "WRONG_TYPE"
)

// Violation is a single structural defect found in a record. Validation
// accumulates all violations rather than stopping at the first, since
// corpora often contain several independent defects at once.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	RecordID string        `json:"record_id"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Kind, v.Path, v.Message)
}

// newViolation creates a Violation.
func newViolation(kind ViolationKind, recordID, path, message string) Violation {
	return Violation{Kind: kind, RecordID: recordID, Path: path, Message: message}
}

// ValidateKB validates a kb record and returns all violations found.
// The join convention must match the one the dataset's offsets were
// computed against; validating with the wrong convention reports offset
// mismatches for every passage after the first.
func ValidateKB(doc *Document, join JoinConvention) []Violation {
	var violations []Violation

	full := []rune(doc.FullText(join))

	checkSpans := func(path string, text []string, offsets []Offset) {
		if len(text) != len(offsets) {
			violations = append(violations, newViolation(ViolationWrongType, doc.ID, path,
				fmt.Sprintf("text and offsets length mismatch: %d vs %d", len(text), len(offsets))))
			return
		}
		for i, off := range offsets {
			frag := fmt.Sprintf("%s[%d]", path, i)
			if off.Start < 0 || off.End < off.Start || off.End > len(full) {
				violations = append(violations, newViolation(ViolationOffsetTextMismatch, doc.ID, frag,
					fmt.Sprintf("offset [%d, %d) out of bounds for text of length %d", off.Start, off.End, len(full))))
				continue
			}
			got := string(full[off.Start:off.End])
			if got != text[i] {
				violations = append(violations, newViolation(ViolationOffsetTextMismatch, doc.ID, frag,
					fmt.Sprintf("document slice %q does not match stored text %q", got, text[i])))
			}
		}
	}

	for i, p := range doc.Passages {
		checkSpans(fmt.Sprintf("passages[%d]", i), p.Text, p.Offsets)
	}
	for i, e := range doc.Entities {
		checkSpans(fmt.Sprintf("entities[%d]", i), e.Text, e.Offsets)
	}
	for i, ev := range doc.Events {
		checkSpans(fmt.Sprintf("events[%d].trigger", i), ev.Trigger.Text, ev.Trigger.Offsets)
	}

	violations = append(violations, validateIDs(doc)...)
	violations = append(violations, validateReferences(doc)...)

	return violations
}

// validateIDs checks id uniqueness across all five sub-collections.
func validateIDs(doc *Document) []Violation {
	var violations []Violation
	seen := make(map[string]string)

	check := func(id, path string) {
		if id == "" {
			violations = append(violations, newViolation(ViolationMissingKey, doc.ID, path, "id is empty"))
			return
		}
		if prev, dup := seen[id]; dup {
			violations = append(violations, newViolation(ViolationDuplicateID, doc.ID, path,
				fmt.Sprintf("id %q already used at %s", id, prev)))
			return
		}
		seen[id] = path
	}

	for i, p := range doc.Passages {
		check(p.ID, fmt.Sprintf("passages[%d]", i))
	}
	for i, e := range doc.Entities {
		check(e.ID, fmt.Sprintf("entities[%d]", i))
	}
	for i, ev := range doc.Events {
		check(ev.ID, fmt.Sprintf("events[%d]", i))
	}
	for i, co := range doc.Coreferences {
		check(co.ID, fmt.Sprintf("coreferences[%d]", i))
	}
	for i, r := range doc.Relations {
		check(r.ID, fmt.Sprintf("relations[%d]", i))
	}

	return violations
}

// validateReferences checks that every arg1_id/arg2_id/ref_id/entity_ids
// reference resolves within the record's union of entity and event ids.
func validateReferences(doc *Document) []Violation {
	var violations []Violation

	known := make(map[string]bool)
	for _, e := range doc.Entities {
		known[e.ID] = true
	}
	for _, ev := range doc.Events {
		known[ev.ID] = true
	}

	check := func(ref, path string) {
		if !known[ref] {
			violations = append(violations, newViolation(ViolationUnresolvedReference, doc.ID, path,
				fmt.Sprintf("reference %q does not resolve to any entity or event", ref)))
		}
	}

	for i, r := range doc.Relations {
		check(r.Arg1ID, fmt.Sprintf("relations[%d].arg1_id", i))
		check(r.Arg2ID, fmt.Sprintf("relations[%d].arg2_id", i))
	}
	for i, ev := range doc.Events {
		for j, arg := range ev.Arguments {
			check(arg.RefID, fmt.Sprintf("events[%d].arguments[%d].ref_id", i, j))
		}
	}
	for i, co := range doc.Coreferences {
		for j, id := range co.EntityIDs {
			check(id, fmt.Sprintf("coreferences[%d].entity_ids[%d]", i, j))
		}
	}

	return violations
}

// listKeys are the schema keys that hold lists; all other keys hold strings.
var listKeys = map[string]bool{
	"passages":     true,
	"entities":     true,
	"events":       true,
	"coreferences": true,
	"relations":    true,
	"choices":      true,
	"answer":       true,
	"labels":       true,
}

// ValidateFields validates a raw record (JSON object shape) against a
// schema's required key set: every key must be present and hold a value
// of the right kind. Present-but-empty values are valid; a missing key is
// a violation.
func ValidateFields(fields map[string]any, sch Schema) []Violation {
	var violations []Violation

	recordID := ""
	if id, ok := fields["id"].(string); ok {
		recordID = id
	}

	required := sch.RequiredKeys()
	if required == nil {
		violations = append(violations, newViolation(ViolationWrongType, recordID, "schema",
			fmt.Sprintf("unknown schema %q", sch)))
		return violations
	}

	for _, key := range required {
		v, ok := fields[key]
		if !ok {
			violations = append(violations, newViolation(ViolationMissingKey, recordID, key,
				"required key is missing"))
			continue
		}
		if listKeys[key] {
			switch v.(type) {
			case []any, []string, nil:
			default:
				violations = append(violations, newViolation(ViolationWrongType, recordID, key,
					fmt.Sprintf("expected list, got %T", v)))
			}
			continue
		}
		if _, ok := v.(string); !ok {
			violations = append(violations, newViolation(ViolationWrongType, recordID, key,
				fmt.Sprintf("expected string, got %T", v)))
		}
	}

	return violations
}

// IsValidKB returns true if the kb record has no violations.
func IsValidKB(doc *Document, join JoinConvention) bool {
	return len(ValidateKB(doc, join)) == 0
}
