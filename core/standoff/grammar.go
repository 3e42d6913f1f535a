package standoff

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// spanColumn is the parsed middle column of a T line: a type label
// followed by one or more offset ranges, ranges separated by ";".
// Examples: "Chemical 0 8", "Gene 10 14;20 24".
type spanColumn struct {
	Type   string        `parser:"@Ident"`
	Groups []offsetGroup `parser:"@@ ( ';' @@ )*"`
}

// offsetGroup is a single "start end" pair.
type offsetGroup struct {
	Start int `parser:"@Number"`
	End   int `parser:"@Number"`
}

// spanLexer tokenizes the type+offsets column. Number must precede Ident
// so digit runs lex as offsets rather than as part of a type label.
var spanLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[^\s;]+`},
	{Name: "Semi", Pattern: `;`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// spanParser parses the type+offsets column of T lines.
var spanParser = participle.MustBuild[spanColumn](
	participle.Lexer(spanLexer),
	participle.Elide("Whitespace"),
)

// roleRef is a role-prefixed reference: "Arg1:T3", "Theme:E2",
// "Gene_expression:T2".
type roleRef struct {
	Role string `parser:"@Ident ':'"`
	Ref  string `parser:"@Ident"`
}

// refLexer tokenizes role:ref pairs.
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[^\s:]+`},
	{Name: "Colon", Pattern: `:`},
})

// refParser parses a single role:ref pair.
var refParser = participle.MustBuild[roleRef](
	participle.Lexer(refLexer),
)

// parseSpanColumn parses "Type start end(;start end)*" and returns the
// type label and raw offset pairs. Range sanity (start <= end) is checked
// by the caller, which has the line context for error reporting.
func parseSpanColumn(column string) (string, []offsetGroup, error) {
	parsed, err := spanParser.ParseString("", column)
	if err != nil {
		return "", nil, fmt.Errorf("span column %q: %w", column, err)
	}
	return parsed.Type, parsed.Groups, nil
}

// parseRoleRef parses a "Role:Ref" pair.
func parseRoleRef(s string) (role, ref string, err error) {
	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return "", "", fmt.Errorf("reference %q: %w", s, err)
	}
	return parsed.Role, parsed.Ref, nil
}
