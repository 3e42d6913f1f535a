package standoff

import (
	"github.com/biomedcorpora/bigbio/core/schema"
)

// ToDocument projects the collections into a kb document with local ids.
// BRAT carries no passage structure, so the whole text becomes a single
// passage; equivalence sets become coreference chains. Ids stay local —
// global re-stamping is the mapper's job (schema.MapKB).
func (c *Collections) ToDocument(docID string) *schema.Document {
	doc := &schema.Document{
		ID:           docID,
		DocumentID:   docID,
		Passages:     []*schema.Passage{},
		Entities:     []*schema.Entity{},
		Events:       []*schema.Event{},
		Coreferences: []*schema.Coreference{},
		Relations:    []*schema.Relation{},
	}

	textLen := len([]rune(c.Text))
	doc.Passages = append(doc.Passages, &schema.Passage{
		ID:      "P0",
		Type:    "document",
		Text:    []string{c.Text},
		Offsets: []schema.Offset{{Start: 0, End: textLen}},
	})

	for _, e := range c.Entities {
		entity := &schema.Entity{
			ID:         e.ID,
			Type:       e.Type,
			Text:       append([]string(nil), e.Span.Text...),
			Offsets:    append([]schema.Offset(nil), e.Span.Offsets...),
			Normalized: []schema.EntityRef{},
		}
		for _, ref := range e.Normalized {
			entity.Normalized = append(entity.Normalized, schema.EntityRef{DBName: ref.DBName, DBID: ref.DBID})
		}
		doc.Entities = append(doc.Entities, entity)
	}

	for _, ev := range c.Events {
		event := &schema.Event{
			ID:   ev.ID,
			Type: ev.Type,
			Trigger: schema.EventTrigger{
				Text:    append([]string(nil), ev.Trigger.Text...),
				Offsets: append([]schema.Offset(nil), ev.Trigger.Offsets...),
			},
			Arguments: []schema.EventArgument{},
		}
		for _, arg := range ev.Arguments {
			event.Arguments = append(event.Arguments, schema.EventArgument{Role: arg.Role, RefID: arg.RefID})
		}
		doc.Events = append(doc.Events, event)
	}

	for _, eq := range c.Equivalences {
		doc.Coreferences = append(doc.Coreferences, &schema.Coreference{
			ID:        eq.ID,
			EntityIDs: append([]string(nil), eq.RefIDs...),
		})
	}

	for _, r := range c.Relations {
		doc.Relations = append(doc.Relations, &schema.Relation{
			ID:         r.ID,
			Type:       r.Type,
			Arg1ID:     r.Arg1ID,
			Arg2ID:     r.Arg2ID,
			Normalized: []schema.EntityRef{},
		})
	}

	return doc
}
