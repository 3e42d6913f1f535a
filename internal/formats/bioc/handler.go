// Package bioc provides the embedded handler for BioC XML collections,
// the PubTator-style exchange format for biomedical text and
// annotations. A collection file holds documents, each with offset
// passages and span annotations; the handler projects every document
// into a kb record with re-stamped global ids.
package bioc

import (
	"fmt"
	"os"
	"strconv"

	"github.com/biomedcorpora/bigbio/core/errors"
	"github.com/biomedcorpora/bigbio/core/loaders"
	"github.com/biomedcorpora/bigbio/core/schema"
	"github.com/biomedcorpora/bigbio/core/xml"
	"github.com/biomedcorpora/bigbio/internal/formats/base"
)

// FormatName is the registry name of this handler.
const FormatName = "bioc"

// Handler implements loaders.Handler for BioC XML collections.
type Handler struct{}

func init() {
	loaders.Register(&Handler{})
}

// Name returns the format's registry name.
func (h *Handler) Name() string { return FormatName }

// Detect accepts .xml files containing a BioC collection element.
func (h *Handler) Detect(path string) (*loaders.DetectResult, error) {
	return base.DetectFile(path, base.DetectConfig{
		Extensions:     []string{".xml", ".bioc"},
		ContentMarkers: []string{"<collection>"},
		FormatName:     FormatName,
		CheckContent:   true,
	})
}

// Load parses a BioC collection file into kb documents.
func (h *Handler) Load(path string, opts loaders.Options) (*loaders.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	doc, err := xml.Parse(data)
	if err != nil {
		return nil, errors.NewParse("BioC", path, err.Error())
	}

	nodes, err := doc.XPath("//document")
	if err != nil {
		return nil, errors.NewParse("BioC", path, err.Error())
	}

	result := &loaders.Result{}
	for i, node := range nodes {
		local, docID, err := convertDocument(node, i)
		if err != nil {
			return nil, errors.NewParse("BioC", path, err.Error())
		}
		if opts.Dataset != "" {
			docID = opts.Dataset + "." + docID
		}
		local.ID = "doc"
		local.DocumentID = docID
		mapped, err := schema.MapKB(local, schema.NewIDStamper(docID))
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, mapped)
	}
	return result, nil
}

// convertDocument projects one <document> element into a kb document
// with local ids.
func convertDocument(node *xml.Node, n int) (*schema.Document, string, error) {
	docID := ""
	if id, err := node.XPathFirst("id"); err == nil && id != nil {
		docID = id.InnerText()
	}
	if docID == "" {
		docID = fmt.Sprintf("doc-%d", n)
	}

	local := &schema.Document{
		Passages:     []*schema.Passage{},
		Entities:     []*schema.Entity{},
		Events:       []*schema.Event{},
		Coreferences: []*schema.Coreference{},
		Relations:    []*schema.Relation{},
	}

	passages, err := node.XPath("passage")
	if err != nil {
		return nil, "", err
	}
	for i, p := range passages {
		passage, err := convertPassage(p, i)
		if err != nil {
			return nil, "", err
		}
		local.Passages = append(local.Passages, passage)
	}

	annotations, err := node.XPath(".//annotation")
	if err != nil {
		return nil, "", err
	}
	for i, a := range annotations {
		entity, err := convertAnnotation(a, i, local.Passages)
		if err != nil {
			return nil, "", err
		}
		local.Entities = append(local.Entities, entity)
	}

	relations, err := node.XPath(".//relation")
	if err != nil {
		return nil, "", err
	}
	for i, r := range relations {
		relation, err := convertRelation(r, i)
		if err != nil {
			return nil, "", err
		}
		local.Relations = append(local.Relations, relation)
	}

	return local, docID, nil
}

func convertPassage(node *xml.Node, n int) (*schema.Passage, error) {
	offNode, err := node.XPathFirst("offset")
	if err != nil || offNode == nil {
		return nil, fmt.Errorf("passage %d: missing offset", n)
	}
	start, err := strconv.Atoi(offNode.InnerText())
	if err != nil {
		return nil, fmt.Errorf("passage %d: offset %q is not a number", n, offNode.InnerText())
	}

	text := ""
	if t, err := node.XPathFirst("text"); err == nil && t != nil {
		text = t.InnerText()
	}

	ptype := ""
	if inf, err := node.XPathFirst("infon[@key='type']"); err == nil && inf != nil {
		ptype = inf.InnerText()
	}

	return &schema.Passage{
		ID:      "P" + strconv.Itoa(n),
		Type:    ptype,
		Text:    []string{text},
		Offsets: []schema.Offset{{Start: start, End: start + len([]rune(text))}},
	}, nil
}

// convertAnnotation projects an <annotation> into an entity. Fragment
// text comes from the covering passage when the annotation spans
// multiple locations; infons other than "type" become normalization
// links.
func convertAnnotation(node *xml.Node, n int, passages []*schema.Passage) (*schema.Entity, error) {
	id := node.Attr("id")
	if id == "" {
		id = "A" + strconv.Itoa(n)
	}

	entity := &schema.Entity{
		ID:         id,
		Normalized: []schema.EntityRef{},
	}

	infons, err := node.XPath("infon")
	if err != nil {
		return nil, err
	}
	for _, inf := range infons {
		key := inf.Attr("key")
		if key == "type" {
			entity.Type = inf.InnerText()
			continue
		}
		entity.Normalized = append(entity.Normalized, schema.EntityRef{
			DBName: key,
			DBID:   inf.InnerText(),
		})
	}

	locations, err := node.XPath("location")
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("annotation %s: no location", id)
	}
	for _, loc := range locations {
		start, err := strconv.Atoi(loc.Attr("offset"))
		if err != nil {
			return nil, fmt.Errorf("annotation %s: offset %q is not a number", id, loc.Attr("offset"))
		}
		length, err := strconv.Atoi(loc.Attr("length"))
		if err != nil {
			return nil, fmt.Errorf("annotation %s: length %q is not a number", id, loc.Attr("length"))
		}
		entity.Offsets = append(entity.Offsets, schema.Offset{Start: start, End: start + length})
	}

	text := ""
	if t, err := node.XPathFirst("text"); err == nil && t != nil {
		text = t.InnerText()
	}
	if len(entity.Offsets) == 1 && text != "" {
		entity.Text = []string{text}
	} else {
		for _, off := range entity.Offsets {
			frag, ok := sliceFromPassages(passages, off)
			if !ok {
				return nil, fmt.Errorf("annotation %s: offset [%d, %d) outside every passage", id, off.Start, off.End)
			}
			entity.Text = append(entity.Text, frag)
		}
	}
	return entity, nil
}

func convertRelation(node *xml.Node, n int) (*schema.Relation, error) {
	id := node.Attr("id")
	if id == "" {
		id = "R" + strconv.Itoa(n)
	}

	rtype := ""
	if inf, err := node.XPathFirst("infon[@key='type']"); err == nil && inf != nil {
		rtype = inf.InnerText()
	}

	refs, err := node.XPath("node")
	if err != nil {
		return nil, err
	}
	if len(refs) < 2 {
		return nil, fmt.Errorf("relation %s: fewer than two nodes", id)
	}

	return &schema.Relation{
		ID:         id,
		Type:       rtype,
		Arg1ID:     refs[0].Attr("refid"),
		Arg2ID:     refs[1].Attr("refid"),
		Normalized: []schema.EntityRef{},
	}, nil
}

// sliceFromPassages cuts an absolute offset range out of the passage
// that covers it.
func sliceFromPassages(passages []*schema.Passage, off schema.Offset) (string, bool) {
	for _, p := range passages {
		if len(p.Offsets) != 1 || len(p.Text) != 1 {
			continue
		}
		po := p.Offsets[0]
		if off.Start < po.Start || off.End > po.End {
			continue
		}
		runes := []rune(p.Text[0])
		return string(runes[off.Start-po.Start : off.End-po.Start]), true
	}
	return "", false
}
