package store

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/biomedcorpora/bigbio/core/errors"
)

// HashResult contains both SHA-256 and BLAKE3 hashes for a stored blob.
type HashResult struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// blake3Pointer is the structure stored in BLAKE3 pointer files.
type blake3Pointer struct {
	SHA256 string `json:"sha256"`
}

// PutWithBlake3 stores the given data and returns both hashes. A
// pointer file maps the BLAKE3 hash to the SHA-256 address, so mirrors
// that publish BLAKE3 digests can still be verified against the store.
func (s *Store) PutWithBlake3(data []byte) (*HashResult, error) {
	sha256Hash, err := s.Put(data)
	if err != nil {
		return nil, err
	}

	b3 := blake3.Sum256(data)
	blake3Hash := hex.EncodeToString(b3[:])

	if err := s.createBlake3Pointer(blake3Hash, sha256Hash); err != nil {
		return nil, err
	}

	return &HashResult{SHA256: sha256Hash, BLAKE3: blake3Hash}, nil
}

// createBlake3Pointer writes the pointer file at
// <root>/blobs/blake3/<first2>/<blake3>.json
func (s *Store) createBlake3Pointer(blake3Hash, sha256Hash string) error {
	pointerPath := filepath.Join(s.root, "blobs", "blake3", blake3Hash[:2], blake3Hash+".json")
	if _, err := os.Stat(pointerPath); err == nil {
		return nil
	}

	data, err := json.Marshal(blake3Pointer{SHA256: sha256Hash})
	if err != nil {
		return errors.Wrap(err, "marshaling blake3 pointer")
	}
	return writeAtomic(pointerPath, data)
}

// LookupBlake3 resolves a BLAKE3 hash to its SHA-256 address.
func (s *Store) LookupBlake3(blake3Hash string) (string, error) {
	if !isValidHash(blake3Hash) {
		return "", errors.NewValidation("hash", "not a blake3 hex digest")
	}

	pointerPath := filepath.Join(s.root, "blobs", "blake3", blake3Hash[:2], blake3Hash+".json")
	data, err := os.ReadFile(pointerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFound("blake3 pointer", blake3Hash)
		}
		return "", errors.NewIO("read", pointerPath, err)
	}

	var pointer blake3Pointer
	if err := json.Unmarshal(data, &pointer); err != nil {
		return "", errors.NewParse("blake3 pointer", pointerPath, err.Error())
	}
	return pointer.SHA256, nil
}

// GetByBlake3 retrieves a blob by its BLAKE3 hash.
func (s *Store) GetByBlake3(blake3Hash string) ([]byte, error) {
	sha256Hash, err := s.LookupBlake3(blake3Hash)
	if err != nil {
		return nil, err
	}
	return s.Get(sha256Hash)
}

// Blake3Hash computes the BLAKE3 hash of the given data without storing it.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
