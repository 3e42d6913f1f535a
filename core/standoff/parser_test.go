package standoff

import (
	"errors"
	"testing"

	"github.com/biomedcorpora/bigbio/core/schema"
)

func TestParse_SingleEntity(t *testing.T) {
	text := "Naloxone reverses clonidine."
	cols, report := Parse(text, []string{"T1\tChemical 0 8\tNaloxone"})

	if len(cols.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(cols.Entities))
	}
	e := cols.Entities[0]
	if e.ID != "T1" {
		t.Errorf("ID = %q, want T1", e.ID)
	}
	if e.Type != "Chemical" {
		t.Errorf("Type = %q, want Chemical", e.Type)
	}
	if len(e.Span.Offsets) != 1 || e.Span.Offsets[0] != (schema.Offset{Start: 0, End: 8}) {
		t.Errorf("Offsets = %v, want [[0,8]]", e.Span.Offsets)
	}
	if len(e.Span.Text) != 1 || e.Span.Text[0] != "Naloxone" {
		t.Errorf("Text = %v, want [Naloxone]", e.Span.Text)
	}
	if report.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", report.Dropped)
	}
	if report.Parsed != 1 {
		t.Errorf("Parsed = %d, want 1", report.Parsed)
	}
}

func TestParse_DiscontinuousEntity(t *testing.T) {
	//           0....5....1....5....2....5
	text := "The gene BRCA is a mutant one."
	cols, _ := Parse(text, []string{"T2\tGene 9 13;19 25\tBRCA mutant"})

	if len(cols.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(cols.Entities))
	}
	e := cols.Entities[0]
	if !e.Span.Discontinuous() {
		t.Error("expected a discontinuous span")
	}
	wantOffsets := []schema.Offset{{Start: 9, End: 13}, {Start: 19, End: 25}}
	if len(e.Span.Offsets) != 2 || e.Span.Offsets[0] != wantOffsets[0] || e.Span.Offsets[1] != wantOffsets[1] {
		t.Errorf("Offsets = %v, want %v", e.Span.Offsets, wantOffsets)
	}
	if len(e.Span.Text) != 2 || e.Span.Text[0] != "BRCA" || e.Span.Text[1] != "mutant" {
		t.Errorf("Text = %v, want [BRCA mutant]", e.Span.Text)
	}
}

func TestParse_Relation(t *testing.T) {
	text := "Naloxone reverses clonidine."
	cols, report := Parse(text, []string{
		"T1\tChemical 0 8\tNaloxone",
		"T2\tChemical 18 27\tclonidine",
		"R1\tCID Arg1:T1 Arg2:T2",
	})

	if len(cols.Relations) != 1 {
		t.Fatalf("expected 1 relation, got %d", len(cols.Relations))
	}
	r := cols.Relations[0]
	if r.Type != "CID" || r.Arg1ID != "T1" || r.Arg2ID != "T2" {
		t.Errorf("relation = %+v, want CID T1 T2", r)
	}
	if report.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", report.Dropped)
	}
}

func TestParse_DanglingRelationDropsOnlyThatLine(t *testing.T) {
	text := "Naloxone reverses clonidine."
	cols, report := Parse(text, []string{
		"T1\tChemical 0 8\tNaloxone",
		"R1\tCID Arg1:T1 Arg2:T2",
	})

	if len(cols.Entities) != 1 || cols.Entities[0].ID != "T1" {
		t.Fatal("T1 should survive a dangling relation elsewhere in the file")
	}
	if len(cols.Relations) != 0 {
		t.Errorf("expected relation to be dropped, got %d", len(cols.Relations))
	}
	if report.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", report.Dropped)
	}

	var dangling *DanglingReferenceError
	found := false
	for _, w := range report.Warnings {
		if errors.As(w.Err, &dangling) {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a DanglingReferenceError warning")
	}
	if dangling.Ref != "T2" {
		t.Errorf("Ref = %q, want T2", dangling.Ref)
	}
	if dangling.AnnID != "R1" {
		t.Errorf("AnnID = %q, want R1", dangling.AnnID)
	}
}

func TestParse_MalformedOffsets(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"start after end", "T1\tChemical 8 0\tNaloxone"},
		{"non-numeric", "T1\tChemical zero eight\tNaloxone"},
		{"past end of document", "T1\tChemical 0 9999\tNaloxone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, report := Parse("Naloxone reverses clonidine.", []string{tt.line})
			if len(cols.Entities) != 0 {
				t.Errorf("expected annotation to be dropped, got %d entities", len(cols.Entities))
			}
			if report.Dropped != 1 {
				t.Errorf("Dropped = %d, want 1", report.Dropped)
			}
			var malformed *MalformedOffsetError
			if len(report.Warnings) == 0 || !errors.As(report.Warnings[0].Err, &malformed) {
				t.Error("expected a MalformedOffsetError warning")
			}
		})
	}
}

func TestParse_Event(t *testing.T) {
	//           0....5....1....5....2....5....3
	text := "Expression of BRCA requires p53."
	cols, report := Parse(text, []string{
		"T1\tGene_expression 0 10\tExpression",
		"T2\tGene 14 18\tBRCA",
		"T3\tGene 28 31\tp53",
		"E1\tGene_expression:T1 Theme:T2 Cause:T3",
	})

	if len(cols.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(cols.Events))
	}
	ev := cols.Events[0]
	if ev.Type != "Gene_expression" || ev.TriggerID != "T1" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Trigger.Text[0] != "Expression" {
		t.Errorf("Trigger.Text = %v, want [Expression]", ev.Trigger.Text)
	}
	if len(ev.Arguments) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(ev.Arguments))
	}
	if ev.Arguments[0].Role != "Theme" || ev.Arguments[0].RefID != "T2" {
		t.Errorf("argument 0 = %+v", ev.Arguments[0])
	}
	if report.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", report.Dropped)
	}
}

func TestParse_NestedEvents(t *testing.T) {
	text := "Inhibition of expression of BRCA."
	cols, _ := Parse(text, []string{
		"T1\tInhibition 0 10\tInhibition",
		"T2\tGene_expression 14 24\texpression",
		"T3\tGene 28 32\tBRCA",
		"E2\tGene_expression:T2 Theme:T3",
		"E1\tInhibition:T1 Theme:E2",
	})

	if len(cols.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(cols.Events))
	}
	var outer *Event
	for _, ev := range cols.Events {
		if ev.ID == "E1" {
			outer = ev
		}
	}
	if outer == nil {
		t.Fatal("E1 missing")
	}
	if outer.Arguments[0].RefID != "E2" {
		t.Errorf("E1 argument = %+v, want ref E2", outer.Arguments[0])
	}
}

func TestParse_EventDropCascades(t *testing.T) {
	// E2's trigger is undefined, so E2 drops; E1 references E2 and must
	// drop too, even though E1 appears first.
	text := "Inhibition of expression of BRCA."
	cols, report := Parse(text, []string{
		"T1\tInhibition 0 10\tInhibition",
		"E1\tInhibition:T1 Theme:E2",
		"E2\tGene_expression:T9 Theme:T1",
	})

	if len(cols.Events) != 0 {
		t.Fatalf("expected all events dropped, got %d", len(cols.Events))
	}
	if report.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", report.Dropped)
	}
}

func TestParse_AttributeBeforeTarget(t *testing.T) {
	// Standoff exports do not guarantee ordering; the attribute line
	// precedes the entity it refers to.
	text := "Naloxone reverses clonidine."
	cols, report := Parse(text, []string{
		"A1\tNegated T1",
		"T1\tChemical 0 8\tNaloxone",
		"M1\tSpeculation T1 High",
	})

	if len(cols.Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(cols.Attributes))
	}
	if cols.Attributes[0].Type != "Negated" || cols.Attributes[0].RefID != "T1" {
		t.Errorf("attribute 0 = %+v", cols.Attributes[0])
	}
	if cols.Attributes[1].Value != "High" {
		t.Errorf("attribute 1 value = %q, want High", cols.Attributes[1].Value)
	}
	if report.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", report.Dropped)
	}
}

func TestParse_NormalizationMergesLinks(t *testing.T) {
	text := "Naloxone reverses clonidine."
	cols, _ := Parse(text, []string{
		"N2\tReference T1 OMIM:1234\tNaloxone",
		"T1\tChemical 0 8\tNaloxone",
		"N1\tReference T1 MESH:D009270\tNaloxone",
	})

	e := cols.Entities[0]
	if len(e.Normalized) != 2 {
		t.Fatalf("expected 2 normalization links, got %d", len(e.Normalized))
	}
	// Line order is preserved regardless of where the target was defined.
	if e.Normalized[0].DBName != "OMIM" || e.Normalized[0].DBID != "1234" {
		t.Errorf("link 0 = %+v", e.Normalized[0])
	}
	if e.Normalized[1].DBName != "MESH" || e.Normalized[1].DBID != "D009270" {
		t.Errorf("link 1 = %+v", e.Normalized[1])
	}
}

func TestParse_NormalizationDBIDWithColon(t *testing.T) {
	text := "Naloxone reverses clonidine."
	cols, _ := Parse(text, []string{
		"T1\tChemical 0 8\tNaloxone",
		"N1\tReference T1 UMLS:CUI:C0027358\tNaloxone",
	})

	link := cols.Entities[0].Normalized[0]
	if link.DBName != "UMLS" || link.DBID != "CUI:C0027358" {
		t.Errorf("link = %+v, want UMLS / CUI:C0027358", link)
	}
}

func TestParse_DanglingNormalizationDropped(t *testing.T) {
	cols, report := Parse("Naloxone.", []string{
		"N1\tReference T9 MESH:D009270\tNaloxone",
	})
	if len(cols.Entities) != 0 || report.Dropped != 1 {
		t.Errorf("expected dangling normalization to be dropped, report = %+v", report)
	}
}

func TestParse_Equivalence(t *testing.T) {
	//           0....5....1....5....2....5
	text := "Naloxone, also called naloxonum."
	cols, _ := Parse(text, []string{
		"T1\tChemical 0 8\tNaloxone",
		"T2\tChemical 22 31\tnaloxonum",
		"*\tEquiv T1 T2",
	})

	if len(cols.Equivalences) != 1 {
		t.Fatalf("expected 1 equivalence, got %d", len(cols.Equivalences))
	}
	eq := cols.Equivalences[0]
	if eq.ID != "EQ1" {
		t.Errorf("ID = %q, want EQ1", eq.ID)
	}
	if len(eq.RefIDs) != 2 || eq.RefIDs[0] != "T1" || eq.RefIDs[1] != "T2" {
		t.Errorf("RefIDs = %v, want [T1 T2]", eq.RefIDs)
	}
}

func TestParse_DanglingEquivalenceDropped(t *testing.T) {
	cols, report := Parse("Naloxone.", []string{
		"T1\tChemical 0 8\tNaloxone",
		"*\tEquiv T1 T9",
	})
	if len(cols.Equivalences) != 0 {
		t.Error("expected equivalence with dangling member to be dropped")
	}
	if report.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", report.Dropped)
	}
}

func TestParse_LiteralMismatchKeepsAnnotation(t *testing.T) {
	cols, report := Parse("Naloxone reverses clonidine.", []string{
		"T1\tChemical 0 8\tNALOXONE",
	})
	if len(cols.Entities) != 1 {
		t.Fatal("annotation should be kept; the document text is authoritative")
	}
	if cols.Entities[0].Span.Text[0] != "Naloxone" {
		t.Errorf("Text = %q, want document slice", cols.Entities[0].Span.Text[0])
	}
	if report.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", report.Dropped)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(report.Warnings))
	}
}

func TestParse_SkipsNotesAndBlankLines(t *testing.T) {
	cols, report := Parse("Naloxone.", []string{
		"",
		"#1\tAnnotatorNotes T1\tdouble-check this one",
		"T1\tChemical 0 8\tNaloxone",
		"   ",
	})
	if len(cols.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(cols.Entities))
	}
	if report.Lines != 1 {
		t.Errorf("Lines = %d, want 1", report.Lines)
	}
}

func TestParse_UnknownSigilDropped(t *testing.T) {
	_, report := Parse("Naloxone.", []string{"X1\tMystery 0 8\tNaloxone"})
	if report.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", report.Dropped)
	}
}

func TestParse_UnicodeOffsetsCountRunes(t *testing.T) {
	// "α-synuclein" begins at rune 12; byte offsets would differ.
	text := "Protein της α-synuclein binds."
	cols, report := Parse(text, []string{
		"T1\tProtein 12 23\tα-synuclein",
	})
	if report.Dropped != 0 {
		t.Fatalf("Dropped = %d, want 0 (warnings: %v)", report.Dropped, report.Warnings)
	}
	if got := cols.Entities[0].Span.Text[0]; got != "α-synuclein" {
		t.Errorf("Text = %q, want α-synuclein", got)
	}
}

func TestParse_ReportAccountsForEveryLine(t *testing.T) {
	text := "Naloxone reverses clonidine."
	_, report := Parse(text, []string{
		"T1\tChemical 0 8\tNaloxone",
		"T2\tChemical 18 27\tclonidine",
		"R1\tCID Arg1:T1 Arg2:T2",
		"R2\tCID Arg1:T1 Arg2:T9",
	})
	if report.Lines != 4 {
		t.Errorf("Lines = %d, want 4", report.Lines)
	}
	if report.Parsed != 3 {
		t.Errorf("Parsed = %d, want 3", report.Parsed)
	}
	if report.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", report.Dropped)
	}
	if report.Parsed+report.Dropped != report.Lines {
		t.Errorf("parsed (%d) + dropped (%d) should account for all %d lines",
			report.Parsed, report.Dropped, report.Lines)
	}
}
