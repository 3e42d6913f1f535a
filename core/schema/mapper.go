package schema

import (
	"fmt"

	"github.com/biomedcorpora/bigbio/core/errors"
)

// MappingError reports a required field that has no source value and no
// defined empty-value fallback. It is fatal for the single record only;
// corpus-level processing skips the record and continues.
type MappingError struct {
	Schema   Schema // Target schema
	Field    string // Missing field name
	RecordID string // Record being mapped, if known
}

func (e *MappingError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("cannot map record %s to %s schema: missing field %q", e.RecordID, e.Schema, e.Field)
	}
	return fmt.Sprintf("cannot map record to %s schema: missing field %q", e.Schema, e.Field)
}

func (e *MappingError) Unwrap() error {
	return errors.ErrInvalidInput
}

// IDStamper rewrites document-local ids into globally unique ids by
// prefixing them with the document id. One stamper is scoped to a single
// document-processing call; sharing a stamper across documents (or using
// a process-wide counter) would break determinism under parallel runs.
//
// The scheme is injective: distinct local ids always map to distinct
// global ids, and the same input always yields the same output.
type IDStamper struct {
	documentID string
}

// NewIDStamper creates a stamper scoped to one document.
func NewIDStamper(documentID string) *IDStamper {
	return &IDStamper{documentID: documentID}
}

// Stamp returns the global id for a document-local id.
func (s *IDStamper) Stamp(localID string) string {
	return s.documentID + "." + localID
}

// MapKB projects a document with local ids into a kb record with globally
// unique ids. Every id in the five sub-collections, and every reference to
// one, is re-stamped with the stamper. The input document is never mutated.
func MapKB(in *Document, st *IDStamper) (*Document, error) {
	if in == nil {
		return nil, &MappingError{Schema: SchemaKB, Field: "document"}
	}
	if in.ID == "" {
		return nil, &MappingError{Schema: SchemaKB, Field: "id"}
	}
	docID := in.DocumentID
	if docID == "" {
		docID = in.ID
	}

	out := &Document{
		ID:           st.Stamp(in.ID),
		DocumentID:   docID,
		Passages:     make([]*Passage, 0, len(in.Passages)),
		Entities:     make([]*Entity, 0, len(in.Entities)),
		Events:       make([]*Event, 0, len(in.Events)),
		Coreferences: make([]*Coreference, 0, len(in.Coreferences)),
		Relations:    make([]*Relation, 0, len(in.Relations)),
	}

	for _, p := range in.Passages {
		out.Passages = append(out.Passages, &Passage{
			ID:      st.Stamp(p.ID),
			Type:    p.Type,
			Text:    append([]string(nil), p.Text...),
			Offsets: append([]Offset(nil), p.Offsets...),
		})
	}

	for _, e := range in.Entities {
		out.Entities = append(out.Entities, &Entity{
			ID:         st.Stamp(e.ID),
			Type:       e.Type,
			Text:       append([]string(nil), e.Text...),
			Offsets:    append([]Offset(nil), e.Offsets...),
			Normalized: append([]EntityRef(nil), e.Normalized...),
		})
	}

	for _, ev := range in.Events {
		mapped := &Event{
			ID:   st.Stamp(ev.ID),
			Type: ev.Type,
			Trigger: EventTrigger{
				Text:    append([]string(nil), ev.Trigger.Text...),
				Offsets: append([]Offset(nil), ev.Trigger.Offsets...),
			},
			Arguments: make([]EventArgument, 0, len(ev.Arguments)),
		}
		for _, arg := range ev.Arguments {
			mapped.Arguments = append(mapped.Arguments, EventArgument{
				Role:  arg.Role,
				RefID: st.Stamp(arg.RefID),
			})
		}
		out.Events = append(out.Events, mapped)
	}

	for _, co := range in.Coreferences {
		mapped := &Coreference{
			ID:        st.Stamp(co.ID),
			EntityIDs: make([]string, 0, len(co.EntityIDs)),
		}
		for _, id := range co.EntityIDs {
			mapped.EntityIDs = append(mapped.EntityIDs, st.Stamp(id))
		}
		out.Coreferences = append(out.Coreferences, mapped)
	}

	for _, r := range in.Relations {
		out.Relations = append(out.Relations, &Relation{
			ID:         st.Stamp(r.ID),
			Type:       r.Type,
			Arg1ID:     st.Stamp(r.Arg1ID),
			Arg2ID:     st.Stamp(r.Arg2ID),
			Normalized: append([]EntityRef(nil), r.Normalized...),
		})
	}

	return out, nil
}

// Fields is a dataset-native record: flat field name to value, as produced
// by the per-dataset extraction upstream (JSON object, CSV row, etc.).
type Fields map[string]any

// str returns the string value of a field, if present.
func (f Fields) str(key string) (string, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// strList returns the string-list value of a field, if present.
// JSON-decoded lists arrive as []any and are converted.
func (f Fields) strList(key string) ([]string, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// requireStr returns the string value of a required field or a MappingError.
func (f Fields) requireStr(sch Schema, key string) (string, error) {
	s, ok := f.str(key)
	if !ok {
		id, _ := f.str("id")
		return "", &MappingError{Schema: sch, Field: key, RecordID: id}
	}
	return s, nil
}

// documentID returns the document_id field, falling back to id.
func (f Fields) documentID(id string) string {
	if docID, ok := f.str("document_id"); ok {
		return docID
	}
	return id
}

// MapQA maps native fields into a question_answering record.
// question_id, type, choices, and answer default to empty values; id,
// question, and context have no fallback.
func MapQA(f Fields) (*QARecord, error) {
	id, err := f.requireStr(SchemaQA, "id")
	if err != nil {
		return nil, err
	}
	question, err := f.requireStr(SchemaQA, "question")
	if err != nil {
		return nil, err
	}
	context, err := f.requireStr(SchemaQA, "context")
	if err != nil {
		return nil, err
	}

	rec := &QARecord{
		ID:         id,
		DocumentID: f.documentID(id),
		Question:   question,
		Context:    context,
		Choices:    []string{},
		Answer:     []string{},
	}
	rec.QuestionID, _ = f.str("question_id")
	rec.Type, _ = f.str("type")
	if choices, ok := f.strList("choices"); ok {
		rec.Choices = choices
	}
	if answer, ok := f.strList("answer"); ok {
		rec.Answer = answer
	}
	return rec, nil
}

// MapTE maps native fields into an entailment record.
// label defaults to empty; id, premise, and hypothesis have no fallback.
func MapTE(f Fields) (*TERecord, error) {
	id, err := f.requireStr(SchemaTE, "id")
	if err != nil {
		return nil, err
	}
	premise, err := f.requireStr(SchemaTE, "premise")
	if err != nil {
		return nil, err
	}
	hypothesis, err := f.requireStr(SchemaTE, "hypothesis")
	if err != nil {
		return nil, err
	}

	rec := &TERecord{ID: id, Premise: premise, Hypothesis: hypothesis}
	rec.Label, _ = f.str("label")
	return rec, nil
}

// MapPairs maps native fields into a text_pairs record.
func MapPairs(f Fields) (*PairsRecord, error) {
	id, err := f.requireStr(SchemaPairs, "id")
	if err != nil {
		return nil, err
	}
	text1, err := f.requireStr(SchemaPairs, "text_1")
	if err != nil {
		return nil, err
	}
	text2, err := f.requireStr(SchemaPairs, "text_2")
	if err != nil {
		return nil, err
	}

	rec := &PairsRecord{ID: id, DocumentID: f.documentID(id), Text1: text1, Text2: text2}
	rec.Label, _ = f.str("label")
	return rec, nil
}

// MapT2T maps native fields into a text_to_text record.
func MapT2T(f Fields) (*T2TRecord, error) {
	id, err := f.requireStr(SchemaT2T, "id")
	if err != nil {
		return nil, err
	}
	text1, err := f.requireStr(SchemaT2T, "text_1")
	if err != nil {
		return nil, err
	}
	text2, err := f.requireStr(SchemaT2T, "text_2")
	if err != nil {
		return nil, err
	}

	rec := &T2TRecord{ID: id, DocumentID: f.documentID(id), Text1: text1, Text2: text2}
	rec.Text1Name, _ = f.str("text_1_name")
	rec.Text2Name, _ = f.str("text_2_name")
	return rec, nil
}

// MapText maps native fields into a text_classification record.
func MapText(f Fields) (*TextRecord, error) {
	id, err := f.requireStr(SchemaText, "id")
	if err != nil {
		return nil, err
	}
	text, err := f.requireStr(SchemaText, "text")
	if err != nil {
		return nil, err
	}

	rec := &TextRecord{ID: id, DocumentID: f.documentID(id), Text: text, Labels: []string{}}
	if labels, ok := f.strList("labels"); ok {
		rec.Labels = labels
	}
	return rec, nil
}

// MapRecord maps native fields into the record type for the given task
// schema. The kb schema is not handled here; kb records are built with
// MapKB from a parsed document, not from flat fields.
func MapRecord(sch Schema, f Fields) (any, error) {
	switch sch {
	case SchemaQA:
		return MapQA(f)
	case SchemaTE:
		return MapTE(f)
	case SchemaPairs:
		return MapPairs(f)
	case SchemaT2T:
		return MapT2T(f)
	case SchemaText:
		return MapText(f)
	default:
		return nil, errors.NewUnsupported("schema", fmt.Sprintf("no field mapping for %q", sch))
	}
}
