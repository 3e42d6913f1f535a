package schema

// types.go - Consolidated unified schema type definitions.
// All format handlers and dataset loaders should import these types from
// core/schema rather than defining their own.

import (
	"encoding/json"
	"strings"
)

// Schema identifies one of the unified record shapes.
type Schema string

// Schema constants (short names, as used in config names).
const (
	SchemaKB    Schema = "kb"
	SchemaQA    Schema = "qa"
	SchemaTE    Schema = "te"
	SchemaPairs Schema = "pairs"
	SchemaT2T   Schema = "t2t"
	SchemaText  Schema = "text"
)

// validSchemas is the closed set of valid schemas.
var validSchemas = map[Schema]bool{
	SchemaKB:    true,
	SchemaQA:    true,
	SchemaTE:    true,
	SchemaPairs: true,
	SchemaT2T:   true,
	SchemaText:  true,
}

// IsValid returns true if the schema is valid.
func (s Schema) IsValid() bool {
	return validSchemas[s]
}

// longNames maps short schema names to their descriptive names.
var longNames = map[Schema]string{
	SchemaKB:    "knowledge_base",
	SchemaQA:    "question_answering",
	SchemaTE:    "entailment",
	SchemaPairs: "text_pairs",
	SchemaT2T:   "text_to_text",
	SchemaText:  "text_classification",
}

// LongName returns the descriptive name of the schema (e.g., "knowledge_base").
func (s Schema) LongName() string {
	return longNames[s]
}

// AllSchemas returns the closed set of schemas in a stable order.
func AllSchemas() []Schema {
	return []Schema{SchemaKB, SchemaQA, SchemaTE, SchemaPairs, SchemaT2T, SchemaText}
}

// requiredKeys lists the keys every record of a schema must carry.
// Keys may hold empty values; a missing key is a violation.
var requiredKeys = map[Schema][]string{
	SchemaKB:    {"id", "document_id", "passages", "entities", "events", "coreferences", "relations"},
	SchemaQA:    {"id", "document_id", "question_id", "question", "type", "choices", "context", "answer"},
	SchemaTE:    {"id", "premise", "hypothesis", "label"},
	SchemaPairs: {"id", "document_id", "text_1", "text_2", "label"},
	SchemaT2T:   {"id", "document_id", "text_1", "text_2", "text_1_name", "text_2_name"},
	SchemaText:  {"id", "document_id", "text", "labels"},
}

// RequiredKeys returns the required key set for a schema, or nil if unknown.
func (s Schema) RequiredKeys() []string {
	return requiredKeys[s]
}

// Offset is a half-open [Start, End) character range into a document's text.
// Offsets count Unicode code points, matching the BRAT standoff convention.
// It serializes as a two-element JSON array.
type Offset struct {
	Start int
	End   int
}

// Len returns the number of characters covered by the offset.
func (o Offset) Len() int {
	return o.End - o.Start
}

// MarshalJSON serializes the offset as [start, end].
func (o Offset) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{o.Start, o.End})
}

// UnmarshalJSON deserializes a [start, end] array.
func (o *Offset) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	o.Start, o.End = pair[0], pair[1]
	return nil
}

// Passage is a contiguous unit of document structure (title, abstract,
// section). Text and Offsets are parallel arrays; more than one entry
// appears only for discontinuous passages, which are rare.
type Passage struct {
	// ID is the passage identifier, unique within the document.
	ID string `json:"id"`

	// Type is the structural label (e.g., "title", "abstract").
	Type string `json:"type"`

	// Text contains the passage text segments.
	Text []string `json:"text"`

	// Offsets are the absolute character ranges of each segment.
	Offsets []Offset `json:"offsets"`
}

// EntityRef is a normalization link to an external controlled vocabulary.
type EntityRef struct {
	// DBName is the ontology or database name (e.g., "MESH", "NCBIGene").
	DBName string `json:"db_name"`

	// DBID is the identifier within that database.
	DBID string `json:"db_id"`
}

// Entity is a typed mention spanning one or more text ranges.
// Text and Offsets are parallel arrays; multiple entries represent a
// discontinuous mention.
type Entity struct {
	// ID is unique within the document and across all sub-collections.
	ID string `json:"id"`

	// Type is the entity type label (e.g., "Chemical", "Gene").
	Type string `json:"type"`

	// Text contains the mention fragments.
	Text []string `json:"text"`

	// Offsets are the character ranges of each fragment.
	Offsets []Offset `json:"offsets"`

	// Normalized contains zero or more ontology links for this mention.
	Normalized []EntityRef `json:"normalized"`
}

// EventTrigger anchors an event to its trigger span.
type EventTrigger struct {
	// Text contains the trigger fragments.
	Text []string `json:"text"`

	// Offsets are the character ranges of each fragment.
	Offsets []Offset `json:"offsets"`
}

// EventArgument is a role-labeled reference to an entity or another event.
type EventArgument struct {
	// Role is the argument role (e.g., "Theme", "Cause").
	Role string `json:"role"`

	// RefID references an entity or event id within the same document.
	RefID string `json:"ref_id"`
}

// Event is a typed occurrence anchored by a trigger span. Arguments may
// reference other events, forming a DAG; cycles are not validated.
type Event struct {
	// ID is unique within the document and across all sub-collections.
	ID string `json:"id"`

	// Type is the event type label (e.g., "Gene_expression").
	Type string `json:"type"`

	// Trigger is the anchoring span.
	Trigger EventTrigger `json:"trigger"`

	// Arguments are the role-labeled references.
	Arguments []EventArgument `json:"arguments"`
}

// Coreference is a set of entity ids considered to co-refer.
// Chains of size < 2 are accepted but unusual.
type Coreference struct {
	// ID is unique within the document and across all sub-collections.
	ID string `json:"id"`

	// EntityIDs lists the co-referring entity ids.
	EntityIDs []string `json:"entity_ids"`
}

// Relation is a typed pair of entity (or event) references.
type Relation struct {
	// ID is unique within the document and across all sub-collections.
	ID string `json:"id"`

	// Type is the relation type label (e.g., "CID").
	Type string `json:"type"`

	// Arg1ID references the first argument.
	Arg1ID string `json:"arg1_id"`

	// Arg2ID references the second argument.
	Arg2ID string `json:"arg2_id"`

	// Normalized contains optional ontology links for the relation.
	Normalized []EntityRef `json:"normalized"`
}

// Document is the aggregate root of the kb schema. All sub-entities are
// owned exclusively by their Document, built once, and never mutated.
type Document struct {
	// ID is the record identifier.
	ID string `json:"id"`

	// DocumentID is the dataset-native identifier (falls back to ID).
	DocumentID string `json:"document_id"`

	// Passages are the ordered structural units; their concatenation
	// reconstructs the full document text.
	Passages []*Passage `json:"passages"`

	// Entities are the typed mentions.
	Entities []*Entity `json:"entities"`

	// Events are the trigger-anchored occurrences.
	Events []*Event `json:"events"`

	// Coreferences are the coreference chains.
	Coreferences []*Coreference `json:"coreferences"`

	// Relations are the typed argument pairs.
	Relations []*Relation `json:"relations"`
}

// QARecord is a question_answering schema record.
type QARecord struct {
	ID         string   `json:"id"`
	QuestionID string   `json:"question_id"`
	DocumentID string   `json:"document_id"`
	Question   string   `json:"question"`
	Type       string   `json:"type"`
	Choices    []string `json:"choices"`
	Context    string   `json:"context"`
	Answer     []string `json:"answer"`
}

// TERecord is an entailment schema record.
type TERecord struct {
	ID         string `json:"id"`
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
	Label      string `json:"label"`
}

// PairsRecord is a text_pairs schema record.
type PairsRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Text1      string `json:"text_1"`
	Text2      string `json:"text_2"`
	Label      string `json:"label"`
}

// T2TRecord is a text_to_text schema record.
type T2TRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Text1      string `json:"text_1"`
	Text2      string `json:"text_2"`
	Text1Name  string `json:"text_1_name"`
	Text2Name  string `json:"text_2_name"`
}

// TextRecord is a text_classification schema record.
type TextRecord struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"document_id"`
	Text       string   `json:"text"`
	Labels     []string `json:"labels"`
}

// JoinConvention selects how passage texts are joined when reconstructing
// the full document text. Legacy datasets disagree on this, so it is
// configurable per dataset rather than fixed.
type JoinConvention string

// Join convention constants.
const (
	// JoinSpace joins passage texts with a single space.
	JoinSpace JoinConvention = "space"
	// JoinNone concatenates passage texts directly.
	JoinNone JoinConvention = "none"
)

// Separator returns the string inserted between passages.
func (j JoinConvention) Separator() string {
	if j == JoinSpace {
		return " "
	}
	return ""
}

// IsValid returns true if the join convention is valid.
func (j JoinConvention) IsValid() bool {
	return j == JoinSpace || j == JoinNone
}

// FullText reconstructs the document text by concatenating passage texts
// in order, joined per the given convention. Discontinuous passage
// segments are joined with the same separator.
func (d *Document) FullText(join JoinConvention) string {
	var parts []string
	for _, p := range d.Passages {
		parts = append(parts, p.Text...)
	}
	return strings.Join(parts, join.Separator())
}
