package standoff

import (
	"strconv"
	"strings"

	"github.com/biomedcorpora/bigbio/core/errors"
	"github.com/biomedcorpora/bigbio/core/schema"
)

// DBRef is a normalization link into an external vocabulary.
type DBRef struct {
	DBName string `json:"db_name"`
	DBID   string `json:"db_id"`
}

// Entity is a text-bound annotation (T line).
type Entity struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Span       Span    `json:"span"`
	Normalized []DBRef `json:"normalized,omitempty"`
}

// Relation is a binary relation (R line). The role prefixes of the two
// arguments are stripped; argument order is positional.
type Relation struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Arg1ID string `json:"arg1_id"`
	Arg2ID string `json:"arg2_id"`
}

// Argument is a role-labeled event argument.
type Argument struct {
	Role  string `json:"role"`
	RefID string `json:"ref_id"`
}

// Event is a trigger-anchored annotation (E line). Arguments may reference
// entities or other events; cycles are not expected and not validated.
type Event struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	TriggerID string     `json:"trigger_id"`
	Trigger   Span       `json:"trigger"`
	Arguments []Argument `json:"arguments"`
}

// Attribute is a named flag or value attached to another annotation
// (A or M line).
type Attribute struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	RefID string `json:"ref_id"`
	Value string `json:"value,omitempty"`
}

// Equivalence is a coreference/equivalence set (* line). BRAT writes these
// without an id, so the parser synthesizes one per line.
type Equivalence struct {
	ID     string   `json:"id"`
	RefIDs []string `json:"ref_ids"`
}

// Collections is the normalized in-memory representation of one document's
// standoff annotations, keyed by local annotation ids. It is built once
// per document and not mutated afterwards.
type Collections struct {
	Text         string         `json:"text"`
	Entities     []*Entity      `json:"entities"`
	Relations    []*Relation    `json:"relations"`
	Events       []*Event       `json:"events"`
	Attributes   []*Attribute   `json:"attributes"`
	Equivalences []*Equivalence `json:"equivalences"`
}

// Warning records one dropped or suspect annotation. Err carries the typed
// cause (*MalformedOffsetError, *DanglingReferenceError) when the
// annotation was dropped.
type Warning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Report accounts for every annotation line so that no drop is silent.
type Report struct {
	Lines    int       `json:"lines"`    // Non-blank annotation lines seen
	Parsed   int       `json:"parsed"`   // Annotations kept
	Dropped  int       `json:"dropped"`  // Annotations dropped
	Warnings []Warning `json:"warnings"` // One entry per drop or suspect line
}

func (r *Report) warn(line int, msg string, err error) {
	r.Warnings = append(r.Warnings, Warning{Line: line, Message: msg, Err: err})
}

func (r *Report) drop(line int, msg string, err error) {
	r.Dropped++
	r.warn(line, msg, err)
}

// pending holds a decoded but unresolved line from the first pass.
// References cannot be checked until every defining line has been seen.
type pending struct {
	line int
	id   string
}

type pendingRelation struct {
	pending
	typ  string
	arg1 string
	arg2 string
}

type pendingEvent struct {
	pending
	typ        string
	triggerRef string
	args       []Argument
}

type pendingAttribute struct {
	pending
	typ   string
	ref   string
	value string
}

type pendingNorm struct {
	pending
	ref    string
	dbName string
	dbID   string
}

type pendingEquiv struct {
	pending
	refs []string
}

// Parse converts a document text and its raw annotation lines into
// normalized collections. Malformed or dangling annotations are dropped
// individually and accounted for in the Report; Parse itself never fails.
func Parse(docText string, annLines []string) (*Collections, *Report) {
	cols := &Collections{Text: docText}
	report := &Report{}
	runes := []rune(docText)

	var (
		rels    []pendingRelation
		events  []pendingEvent
		attrs   []pendingAttribute
		norms   []pendingNorm
		equivs  []pendingEquiv
		equivID int
	)

	// First pass: decode every line independently, buffering anything
	// that carries references. Attribute and normalization lines may
	// precede their targets, so single-pass resolution would misreport
	// them as dangling.
	for i, raw := range annLines {
		line := i + 1
		trimmed := strings.TrimRight(raw, "\r\n")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		report.Lines++

		// Annotator note lines are not annotations.
		if strings.HasPrefix(trimmed, "#") {
			report.Lines--
			continue
		}

		columns := strings.SplitN(trimmed, "\t", 3)
		id := columns[0]
		if id == "" {
			report.drop(line, "annotation line has no id column", nil)
			continue
		}
		body := ""
		if len(columns) > 1 {
			body = columns[1]
		}
		literal := ""
		if len(columns) > 2 {
			literal = columns[2]
		}

		switch id[0] {
		case 'T':
			entity, err := parseEntityLine(line, id, body, literal, runes, report)
			if err != nil {
				report.drop(line, err.Error(), err)
				continue
			}
			cols.Entities = append(cols.Entities, entity)
			report.Parsed++

		case 'R':
			rel, err := parseRelationLine(line, id, body)
			if err != nil {
				report.drop(line, err.Error(), err)
				continue
			}
			rels = append(rels, *rel)

		case 'E':
			ev, err := parseEventLine(line, id, body)
			if err != nil {
				report.drop(line, err.Error(), err)
				continue
			}
			events = append(events, *ev)

		case 'A', 'M':
			fields := strings.Fields(body)
			if len(fields) < 2 {
				report.drop(line, "attribute line needs a type and a target id", nil)
				continue
			}
			attr := pendingAttribute{pending: pending{line: line, id: id}, typ: fields[0], ref: fields[1]}
			if len(fields) > 2 {
				attr.value = strings.Join(fields[2:], " ")
			}
			attrs = append(attrs, attr)

		case 'N':
			fields := strings.Fields(body)
			if len(fields) < 3 {
				report.drop(line, "normalization line needs a type, a target id, and a db reference", nil)
				continue
			}
			// db ids may themselves contain colons, so split on the
			// first colon only rather than using the role:ref grammar.
			dbName, dbID, ok := strings.Cut(fields[2], ":")
			if !ok {
				report.drop(line, "normalization reference is not in db:id form", nil)
				continue
			}
			norms = append(norms, pendingNorm{
				pending: pending{line: line, id: id},
				ref:     fields[1],
				dbName:  dbName,
				dbID:    dbID,
			})

		case '*':
			fields := strings.Fields(body)
			if len(fields) < 2 {
				report.drop(line, "equivalence line needs at least one id", nil)
				continue
			}
			equivID++
			equivs = append(equivs, pendingEquiv{
				pending: pending{line: line, id: synthesizeEquivID(equivID)},
				refs:    fields[1:],
			})

		default:
			report.drop(line, "unknown annotation sigil "+string(id[0]), nil)
		}
	}

	// Second pass: resolve references now that the full id set is known.
	resolveEvents(cols, events, report)
	resolveRelations(cols, rels, report)
	resolveAttributes(cols, attrs, report)
	resolveNormalizations(cols, norms, report)
	resolveEquivalences(cols, equivs, report)

	return cols, report
}

// synthesizeEquivID names an equivalence set; BRAT * lines carry no id.
func synthesizeEquivID(n int) string {
	return "EQ" + strconv.Itoa(n)
}

// parseEntityLine decodes a T line. The document text is authoritative for
// fragment content; if the literal text column disagrees with the sliced
// fragments the annotation is kept and a warning is recorded.
func parseEntityLine(line int, id, body, literal string, runes []rune, report *Report) (*Entity, error) {
	typ, groups, err := parseSpanColumn(body)
	if err != nil {
		return nil, &MalformedOffsetError{Line: line, AnnID: id, Raw: body, Reason: err.Error()}
	}

	offsets := make([]schema.Offset, 0, len(groups))
	for _, g := range groups {
		if g.Start > g.End {
			return nil, &MalformedOffsetError{Line: line, AnnID: id, Raw: body, Reason: "start after end"}
		}
		if g.End > len(runes) {
			return nil, &MalformedOffsetError{Line: line, AnnID: id, Raw: body, Reason: "offset past end of document"}
		}
		offsets = append(offsets, schema.Offset{Start: g.Start, End: g.End})
	}

	span := NewSpan(runes, offsets)
	if literal != "" && span.Joined() != literal {
		report.warn(line, "literal text column disagrees with document slice for "+id, nil)
	}

	return &Entity{ID: id, Type: typ, Span: span}, nil
}

// parseRelationLine decodes an R line: "Type Role1:Ref1 Role2:Ref2".
// Role prefixes are stripped; argument order is positional.
func parseRelationLine(line int, id, body string) (*pendingRelation, error) {
	fields := strings.Fields(body)
	if len(fields) != 3 {
		return nil, errors.NewParse("BRAT", "", id+": relation needs a type and two arguments")
	}
	_, arg1, err := parseRoleRef(fields[1])
	if err != nil {
		return nil, errors.NewParse("BRAT", "", id+": "+err.Error())
	}
	_, arg2, err := parseRoleRef(fields[2])
	if err != nil {
		return nil, errors.NewParse("BRAT", "", id+": "+err.Error())
	}
	return &pendingRelation{
		pending: pending{line: line, id: id},
		typ:     fields[0],
		arg1:    arg1,
		arg2:    arg2,
	}, nil
}

// parseEventLine decodes an E line: "Type:Trigger Role:Ref ...".
func parseEventLine(line int, id, body string) (*pendingEvent, error) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil, errors.NewParse("BRAT", "", id+": event needs a trigger")
	}
	typ, trigger, err := parseRoleRef(fields[0])
	if err != nil {
		return nil, errors.NewParse("BRAT", "", id+": "+err.Error())
	}
	ev := &pendingEvent{
		pending:    pending{line: line, id: id},
		typ:        typ,
		triggerRef: trigger,
	}
	for _, field := range fields[1:] {
		role, ref, err := parseRoleRef(field)
		if err != nil {
			return nil, errors.NewParse("BRAT", "", id+": "+err.Error())
		}
		ev.args = append(ev.args, Argument{Role: role, RefID: ref})
	}
	return ev, nil
}

// resolveEvents resolves triggers against entities, then iterates argument
// resolution to a fixpoint: dropping an event can strand other events that
// referenced it, regardless of line order.
func resolveEvents(cols *Collections, events []pendingEvent, report *Report) {
	entityByID := make(map[string]*Entity, len(cols.Entities))
	for _, e := range cols.Entities {
		entityByID[e.ID] = e
	}

	alive := make(map[string]bool, len(events))
	kept := make([]pendingEvent, 0, len(events))
	for _, ev := range events {
		if _, ok := entityByID[ev.triggerRef]; !ok {
			err := &DanglingReferenceError{Line: ev.line, AnnID: ev.id, Ref: ev.triggerRef}
			report.drop(ev.line, err.Error(), err)
			continue
		}
		alive[ev.id] = true
		kept = append(kept, ev)
	}

	resolvable := func(ref string) bool {
		if _, ok := entityByID[ref]; ok {
			return true
		}
		return alive[ref]
	}

	for changed := true; changed; {
		changed = false
		for i := 0; i < len(kept); i++ {
			ev := kept[i]
			bad := ""
			for _, arg := range ev.args {
				if !resolvable(arg.RefID) {
					bad = arg.RefID
					break
				}
			}
			if bad != "" {
				err := &DanglingReferenceError{Line: ev.line, AnnID: ev.id, Ref: bad}
				report.drop(ev.line, err.Error(), err)
				delete(alive, ev.id)
				kept = append(kept[:i], kept[i+1:]...)
				i--
				changed = true
			}
		}
	}

	for _, ev := range kept {
		trigger := entityByID[ev.triggerRef]
		cols.Events = append(cols.Events, &Event{
			ID:        ev.id,
			Type:      ev.typ,
			TriggerID: ev.triggerRef,
			Trigger:   trigger.Span,
			Arguments: ev.args,
		})
		report.Parsed++
	}
}

// resolveRelations checks both arguments against the union of entity and
// event ids.
func resolveRelations(cols *Collections, rels []pendingRelation, report *Report) {
	known := knownIDs(cols, false)
	for _, rel := range rels {
		bad := ""
		if !known[rel.arg1] {
			bad = rel.arg1
		} else if !known[rel.arg2] {
			bad = rel.arg2
		}
		if bad != "" {
			err := &DanglingReferenceError{Line: rel.line, AnnID: rel.id, Ref: bad}
			report.drop(rel.line, err.Error(), err)
			continue
		}
		cols.Relations = append(cols.Relations, &Relation{
			ID:     rel.id,
			Type:   rel.typ,
			Arg1ID: rel.arg1,
			Arg2ID: rel.arg2,
		})
		report.Parsed++
	}
}

// resolveAttributes attaches attributes; targets may be entities, events,
// or relations.
func resolveAttributes(cols *Collections, attrs []pendingAttribute, report *Report) {
	known := knownIDs(cols, true)
	for _, attr := range attrs {
		if !known[attr.ref] {
			err := &DanglingReferenceError{Line: attr.line, AnnID: attr.id, Ref: attr.ref}
			report.drop(attr.line, err.Error(), err)
			continue
		}
		cols.Attributes = append(cols.Attributes, &Attribute{
			ID:    attr.id,
			Type:  attr.typ,
			RefID: attr.ref,
			Value: attr.value,
		})
		report.Parsed++
	}
}

// resolveNormalizations merges db links into their entities, in line order.
// A single entity may accumulate several links across multiple N lines.
func resolveNormalizations(cols *Collections, norms []pendingNorm, report *Report) {
	entityByID := make(map[string]*Entity, len(cols.Entities))
	for _, e := range cols.Entities {
		entityByID[e.ID] = e
	}
	for _, n := range norms {
		entity, ok := entityByID[n.ref]
		if !ok {
			err := &DanglingReferenceError{Line: n.line, AnnID: n.id, Ref: n.ref}
			report.drop(n.line, err.Error(), err)
			continue
		}
		entity.Normalized = append(entity.Normalized, DBRef{DBName: n.dbName, DBID: n.dbID})
		report.Parsed++
	}
}

// resolveEquivalences keeps a * line only if every member id resolves.
func resolveEquivalences(cols *Collections, equivs []pendingEquiv, report *Report) {
	known := knownIDs(cols, false)
	for _, eq := range equivs {
		bad := ""
		for _, ref := range eq.refs {
			if !known[ref] {
				bad = ref
				break
			}
		}
		if bad != "" {
			err := &DanglingReferenceError{Line: eq.line, AnnID: eq.id, Ref: bad}
			report.drop(eq.line, err.Error(), err)
			continue
		}
		cols.Equivalences = append(cols.Equivalences, &Equivalence{ID: eq.id, RefIDs: eq.refs})
		report.Parsed++
	}
}

// knownIDs collects resolvable target ids: entities and events, plus
// relations when withRelations is set (attribute lines may target those).
func knownIDs(cols *Collections, withRelations bool) map[string]bool {
	known := make(map[string]bool)
	for _, e := range cols.Entities {
		known[e.ID] = true
	}
	for _, ev := range cols.Events {
		known[ev.ID] = true
	}
	if withRelations {
		for _, r := range cols.Relations {
			known[r.ID] = true
		}
	}
	return known
}
