// Package standoff parses BRAT standoff annotations: a plain-text document
// (<docid>.txt) paired with tab-and-space-delimited annotation lines
// (<docid>.ann), one annotation per line. The sigil starting each line
// selects the category: T (text-bound entity), R (relation), E (event),
// A/M (attribute), N (normalization), * (equivalence set).
//
// Parsing is two-pass: lines are first decoded independently, then
// references are resolved against the full id set, since standoff exports
// do not guarantee that a line appears after the lines it references.
// A malformed or dangling annotation is dropped and counted in the parse
// Report; it never aborts the rest of the document.
package standoff
