package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// jsonMarshal is a variable to allow testing of marshal errors.
var jsonMarshal = json.Marshal

// HashBytes computes the SHA-256 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashString computes the SHA-256 hash of a string and returns it as a hex string.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashRecord computes the SHA-256 hash of a record by serializing to JSON.
// Records are structs with fixed field order, so the hash is deterministic
// and serves as the mapper-determinism check: mapping the same input twice
// must yield the same hash.
func HashRecord(rec any) (string, error) {
	data, err := jsonMarshal(rec)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashDocumentText computes the SHA-256 hash of a kb record's reconstructed
// document text under the given join convention.
func HashDocumentText(d *Document, join JoinConvention) string {
	return HashString(d.FullText(join))
}
