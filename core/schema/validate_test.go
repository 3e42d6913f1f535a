package schema

import (
	"testing"
)

func validDocument() *Document {
	// Title and abstract joined with a single space:
	// "Naloxone study. Naloxone reverses clonidine."
	//  0....5....1....5....2....5....3....5....4...
	return &Document{
		ID:         "PMID-100.doc-1",
		DocumentID: "PMID-100",
		Passages: []*Passage{
			{ID: "PMID-100.P0", Type: "title", Text: []string{"Naloxone study."},
				Offsets: []Offset{{Start: 0, End: 15}}},
			{ID: "PMID-100.P1", Type: "abstract", Text: []string{"Naloxone reverses clonidine."},
				Offsets: []Offset{{Start: 16, End: 44}}},
		},
		Entities: []*Entity{
			{ID: "PMID-100.T1", Type: "Chemical", Text: []string{"Naloxone"},
				Offsets: []Offset{{Start: 16, End: 24}}, Normalized: []EntityRef{}},
			{ID: "PMID-100.T2", Type: "Chemical", Text: []string{"clonidine"},
				Offsets: []Offset{{Start: 34, End: 43}}, Normalized: []EntityRef{}},
		},
		Events:       []*Event{},
		Coreferences: []*Coreference{},
		Relations: []*Relation{
			{ID: "PMID-100.R1", Type: "CID", Arg1ID: "PMID-100.T1", Arg2ID: "PMID-100.T2",
				Normalized: []EntityRef{}},
		},
	}
}

func TestValidateKB_Valid(t *testing.T) {
	violations := ValidateKB(validDocument(), JoinSpace)
	if len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestValidateKB_Idempotent(t *testing.T) {
	doc := validDocument()
	if v := ValidateKB(doc, JoinSpace); len(v) != 0 {
		t.Fatalf("first validation failed: %v", v)
	}
	if v := ValidateKB(doc, JoinSpace); len(v) != 0 {
		t.Errorf("second validation of a valid record found violations: %v", v)
	}
}

func TestValidateKB_OffsetTextMismatch(t *testing.T) {
	doc := validDocument()
	doc.Entities[0].Text = []string{"naloxone"} // wrong case

	violations := ValidateKB(doc, JoinSpace)
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if violations[0].Kind != ViolationOffsetTextMismatch {
		t.Errorf("Kind = %q", violations[0].Kind)
	}
	if violations[0].RecordID != "PMID-100.doc-1" {
		t.Errorf("RecordID = %q", violations[0].RecordID)
	}
}

func TestValidateKB_WrongJoinConventionReportsMismatches(t *testing.T) {
	// Offsets computed against a space join cannot line up under a
	// bare concatenation.
	violations := ValidateKB(validDocument(), JoinNone)
	if len(violations) == 0 {
		t.Error("expected offset mismatches under the wrong join convention")
	}
}

func TestValidateKB_OutOfBoundsOffset(t *testing.T) {
	doc := validDocument()
	doc.Entities[0].Offsets = []Offset{{Start: 16, End: 9999}}

	violations := ValidateKB(doc, JoinSpace)
	if len(violations) != 1 || violations[0].Kind != ViolationOffsetTextMismatch {
		t.Errorf("violations = %v", violations)
	}
}

func TestValidateKB_TextOffsetsLengthMismatch(t *testing.T) {
	doc := validDocument()
	doc.Entities[0].Text = []string{"Naloxone", "extra"}

	violations := ValidateKB(doc, JoinSpace)
	if len(violations) != 1 || violations[0].Kind != ViolationWrongType {
		t.Errorf("violations = %v", violations)
	}
}

func TestValidateKB_UnresolvedReference(t *testing.T) {
	doc := validDocument()
	doc.Relations[0].Arg2ID = "PMID-100.T9"

	violations := ValidateKB(doc, JoinSpace)
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if violations[0].Kind != ViolationUnresolvedReference {
		t.Errorf("Kind = %q", violations[0].Kind)
	}
}

func TestValidateKB_EventArgumentAndCoreferenceReferences(t *testing.T) {
	doc := validDocument()
	doc.Events = append(doc.Events, &Event{
		ID: "PMID-100.E1", Type: "Reversal",
		Trigger:   EventTrigger{Text: []string{"reverses"}, Offsets: []Offset{{Start: 25, End: 33}}},
		Arguments: []EventArgument{{Role: "Theme", RefID: "PMID-100.T404"}},
	})
	doc.Coreferences = append(doc.Coreferences, &Coreference{
		ID: "PMID-100.EQ1", EntityIDs: []string{"PMID-100.T1", "PMID-100.T404"},
	})

	violations := ValidateKB(doc, JoinSpace)
	unresolved := 0
	for _, v := range violations {
		if v.Kind == ViolationUnresolvedReference {
			unresolved++
		}
	}
	if unresolved != 2 {
		t.Errorf("expected 2 unresolved references, got %d (%v)", unresolved, violations)
	}
}

func TestValidateKB_DuplicateID(t *testing.T) {
	doc := validDocument()
	doc.Relations[0].ID = "PMID-100.T1" // collides with an entity

	violations := ValidateKB(doc, JoinSpace)
	if len(violations) != 1 || violations[0].Kind != ViolationDuplicateID {
		t.Errorf("violations = %v", violations)
	}
}

func TestValidateKB_AccumulatesAllViolations(t *testing.T) {
	// Several independent defects at once; all must be reported.
	doc := validDocument()
	doc.Entities[0].Text = []string{"wrong"}
	doc.Relations[0].Arg2ID = "PMID-100.T9"
	doc.Entities[1].ID = "PMID-100.T1"

	violations := ValidateKB(doc, JoinSpace)
	kinds := make(map[ViolationKind]int)
	for _, v := range violations {
		kinds[v.Kind]++
	}
	if kinds[ViolationOffsetTextMismatch] == 0 {
		t.Error("missing offset mismatch violation")
	}
	if kinds[ViolationUnresolvedReference] == 0 {
		t.Error("missing unresolved reference violation")
	}
	if kinds[ViolationDuplicateID] == 0 {
		t.Error("missing duplicate id violation")
	}
}

func TestValidateKB_EmptyID(t *testing.T) {
	doc := validDocument()
	doc.Entities[0].ID = ""
	// The relation still references the old id, which is now unresolved.
	violations := ValidateKB(doc, JoinSpace)
	var missing, unresolved bool
	for _, v := range violations {
		switch v.Kind {
		case ViolationMissingKey:
			missing = true
		case ViolationUnresolvedReference:
			unresolved = true
		}
	}
	if !missing || !unresolved {
		t.Errorf("violations = %v", violations)
	}
}

func TestValidateFields_Valid(t *testing.T) {
	fields := map[string]any{
		"id":          "q1",
		"document_id": "d1",
		"question_id": "q1",
		"question":    "Why?",
		"type":        "factoid",
		"choices":     []any{},
		"context":     "",
		"answer":      []any{"because"},
	}
	if v := ValidateFields(fields, SchemaQA); len(v) != 0 {
		t.Errorf("expected no violations, got %v", v)
	}
}

func TestValidateFields_PresentButEmptyIsValid(t *testing.T) {
	fields := map[string]any{
		"id": "te1", "premise": "", "hypothesis": "", "label": "",
	}
	if v := ValidateFields(fields, SchemaTE); len(v) != 0 {
		t.Errorf("empty values are valid; got %v", v)
	}
}

func TestValidateFields_MissingKey(t *testing.T) {
	fields := map[string]any{
		"id": "te1", "premise": "p", "label": "",
	}
	violations := ValidateFields(fields, SchemaTE)
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if violations[0].Kind != ViolationMissingKey || violations[0].Path != "hypothesis" {
		t.Errorf("violation = %+v", violations[0])
	}
}

func TestValidateFields_WrongType(t *testing.T) {
	fields := map[string]any{
		"id": "x1", "document_id": "d", "text": 42, "labels": "not-a-list",
	}
	violations := ValidateFields(fields, SchemaText)
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %v", violations)
	}
	for _, v := range violations {
		if v.Kind != ViolationWrongType {
			t.Errorf("Kind = %q, want wrong type", v.Kind)
		}
	}
}

func TestValidateFields_UnknownSchema(t *testing.T) {
	violations := ValidateFields(map[string]any{"id": "1"}, Schema("bogus"))
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
}

func TestIsValidKB(t *testing.T) {
	if !IsValidKB(validDocument(), JoinSpace) {
		t.Error("document should be valid")
	}
	doc := validDocument()
	doc.Relations[0].Arg1ID = "nope"
	if IsValidKB(doc, JoinSpace) {
		t.Error("document should be invalid")
	}
}
