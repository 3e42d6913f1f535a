// Package schema defines the unified record shapes shared by all dataset
// loaders, the mapper that projects parsed corpora into those shapes, and
// the validator that checks structural conformance of produced records.
//
// Six schemas are supported: knowledge base (kb), question answering (qa),
// textual entailment (te), text pairs (pairs), text-to-text (t2t), and
// text classification (text). A dataset offers one or more of these
// alongside its unmodified source records; configuration naming follows
// the <dataset>_bigbio_<schema> convention (see core/dataset).
//
// The kb schema is the aggregate one: a Document owns passages, entities,
// events, coreference chains, and relations, all scoped to that document
// and immutable once built. Task schemas are flat records with fixed key
// sets; absent source fields are populated with empty values rather than
// omitted, and the validator treats a missing key as a violation.
package schema
