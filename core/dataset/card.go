package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/biomedcorpora/bigbio/core/errors"
	"github.com/biomedcorpora/bigbio/core/schema"
)

// Card is a dataset's metadata card. Cards live as markdown files with
// a YAML front-matter block delimited by "---" lines; everything after
// the closing delimiter is the free-form description.
type Card struct {
	Name        string   `yaml:"name" json:"name"`
	PrettyName  string   `yaml:"pretty_name" json:"pretty_name"`
	Homepage    string   `yaml:"homepage" json:"homepage,omitempty"`
	License     string   `yaml:"license" json:"license"`
	Languages   []string `yaml:"languages" json:"languages"`
	Tasks       []string `yaml:"tasks" json:"tasks"`
	Schemas     []string `yaml:"schemas" json:"schemas"`
	Pubmed      bool     `yaml:"pubmed" json:"pubmed"`
	Public      bool     `yaml:"public" json:"public"`
	Join        string   `yaml:"join,omitempty" json:"join,omitempty"`
	Description string   `yaml:"-" json:"description,omitempty"`
}

const frontMatterDelim = "---"

// ParseCard parses the YAML front matter of a card file's contents.
// The block must open on the first line.
func ParseCard(data []byte) (*Card, error) {
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != frontMatterDelim {
		return nil, errors.NewParse("card", "", "missing front-matter open delimiter")
	}

	var front strings.Builder
	closed := false
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == frontMatterDelim {
			closed = true
			break
		}
		front.WriteString(sc.Text())
		front.WriteByte('\n')
	}
	if !closed {
		return nil, errors.NewParse("card", "", "unterminated front-matter block")
	}

	var body strings.Builder
	for sc.Scan() {
		body.WriteString(sc.Text())
		body.WriteByte('\n')
	}

	var card Card
	if err := yaml.Unmarshal([]byte(front.String()), &card); err != nil {
		return nil, errors.NewParse("card", "", fmt.Sprintf("front matter: %v", err))
	}
	card.Description = strings.TrimSpace(body.String())

	if err := card.Check(); err != nil {
		return nil, err
	}
	return &card, nil
}

// LoadCard reads and parses a card file.
func LoadCard(path string) (*Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	card, err := ParseCard(data)
	if err != nil {
		if pe, ok := err.(*errors.ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	return card, nil
}

// Check validates the card's required fields and schema/join names.
func (c *Card) Check() error {
	if c.Name == "" {
		return errors.NewValidation("name", "card has no dataset name")
	}
	if c.License == "" {
		return errors.NewValidation("license", "card has no license")
	}
	if len(c.Languages) == 0 {
		return errors.NewValidation("languages", "card lists no languages")
	}
	for _, s := range c.Schemas {
		if !schema.Schema(s).IsValid() {
			return errors.NewValidation("schemas", fmt.Sprintf("unknown schema %q", s))
		}
	}
	if c.Join != "" && !schema.JoinConvention(c.Join).IsValid() {
		return errors.NewValidation("join", fmt.Sprintf("unknown join convention %q", c.Join))
	}
	return nil
}

// JoinConvention returns the card's passage join convention, defaulting
// to a single space when the card does not set one.
func (c *Card) JoinConvention() schema.JoinConvention {
	if c.Join == "" {
		return schema.JoinSpace
	}
	return schema.JoinConvention(c.Join)
}

// Configs returns the dataset's config set: the source config plus one
// config per declared schema.
func (c *Card) Configs() []Config {
	configs := []Config{SourceConfig(c.Name)}
	for _, s := range c.Schemas {
		configs = append(configs, SchemaConfig(c.Name, schema.Schema(s)))
	}
	return configs
}
