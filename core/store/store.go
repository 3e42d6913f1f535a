// Package store provides the content-addressed store for downloaded
// raw corpus archives. Blobs are addressed by SHA-256, so re-adding the
// same archive deduplicates, and every retrieval can be verified
// against its address. Each archive also gets a manifest recording the
// dataset it belongs to and its original filename.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/biomedcorpora/bigbio/core/errors"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// sha256Pattern matches a valid lowercase SHA-256 hex string (64 characters).
var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Manifest records the provenance of a stored corpus archive.
type Manifest struct {
	Dataset      string `json:"dataset"`
	OriginalName string `json:"original_name"`
	SHA256       string `json:"sha256"`
	BLAKE3       string `json:"blake3,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
}

// Store is a content-addressed archive store rooted at a directory.
// Layout:
//
//	<root>/blobs/sha256/<first2>/<hash>
//	<root>/blobs/blake3/<first2>/<hash>.json
//	<root>/manifests/<dataset>/<sha256>.json
type Store struct {
	root string
}

// New creates a store at the given root directory, creating the
// directory structure if needed.
func New(root string) (*Store, error) {
	blobDir := filepath.Join(root, "blobs", "sha256")
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return nil, errors.NewIO("mkdir", blobDir, err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// Put stores the given data and returns its SHA-256 hash. Adding a
// blob that already exists is a no-op.
func (s *Store) Put(data []byte) (string, error) {
	h := sha256.Sum256(data)
	hash := hex.EncodeToString(h[:])

	blobPath := s.pathForHash(hash)
	if _, err := os.Stat(blobPath); err == nil {
		return hash, nil
	}

	if err := writeAtomic(blobPath, data); err != nil {
		return "", err
	}
	return hash, nil
}

// Get retrieves the blob with the given SHA-256 hash.
func (s *Store) Get(hash string) ([]byte, error) {
	if !isValidHash(hash) {
		return nil, errors.NewValidation("hash", fmt.Sprintf("%q is not a sha256 hex digest", hash))
	}
	data, err := os.ReadFile(s.pathForHash(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("blob", hash)
		}
		return nil, errors.NewIO("read", s.pathForHash(hash), err)
	}
	return data, nil
}

// Has checks whether a blob with the given hash exists in the store.
func (s *Store) Has(hash string) bool {
	if !isValidHash(hash) {
		return false
	}
	_, err := os.Stat(s.pathForHash(hash))
	return err == nil
}

// Verify re-hashes the stored blob and checks it still matches its
// address.
func (s *Store) Verify(hash string) error {
	data, err := s.Get(hash)
	if err != nil {
		return err
	}
	h := sha256.Sum256(data)
	if got := hex.EncodeToString(h[:]); got != hash {
		return errors.NewValidation("blob",
			fmt.Sprintf("blob %s is corrupt: content hashes to %s", hash, got))
	}
	return nil
}

// AddArchive stores a corpus archive file for a dataset: the blob, its
// BLAKE3 pointer, and a manifest.
func (s *Store) AddArchive(dataset, path string) (*Manifest, error) {
	if dataset == "" {
		return nil, errors.NewValidation("dataset", "dataset name is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	hashes, err := s.PutWithBlake3(data)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Dataset:      dataset,
		OriginalName: filepath.Base(path),
		SHA256:       hashes.SHA256,
		BLAKE3:       hashes.BLAKE3,
		SizeBytes:    int64(len(data)),
	}
	if err := s.writeManifest(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Manifests returns the manifests of every archive stored for a
// dataset, sorted by original name.
func (s *Store) Manifests(dataset string) ([]*Manifest, error) {
	dir := filepath.Join(s.root, "manifests", dataset)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewIO("read", dir, err)
	}

	var manifests []*Manifest
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.NewIO("read", filepath.Join(dir, e.Name()), err)
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.NewParse("manifest", filepath.Join(dir, e.Name()), err.Error())
		}
		manifests = append(manifests, &m)
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].OriginalName < manifests[j].OriginalName
	})
	return manifests, nil
}

func (s *Store) writeManifest(m *Manifest) error {
	dir := filepath.Join(s.root, "manifests", m.Dataset)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIO("mkdir", dir, err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling manifest")
	}
	return writeAtomic(filepath.Join(dir, m.SHA256+".json"), data)
}

// pathForHash returns the blob path: <root>/blobs/sha256/<first2>/<hash>
func (s *Store) pathForHash(hash string) string {
	return filepath.Join(s.root, "blobs", "sha256", hash[:2], hash)
}

// isValidHash checks if a hash string is a valid SHA-256 hex string.
func isValidHash(hash string) bool {
	return sha256Pattern.MatchString(hash)
}

// writeAtomic writes data to path via a temp file and rename, creating
// the parent directory if needed.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIO("mkdir", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return errors.NewIO("create", dir, err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return errors.NewIO("write", tempPath, err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("close", tempPath, err)
	}
	if err := osRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.NewIO("rename", path, err)
	}
	return nil
}

// Hash computes the SHA-256 hash of the given data without storing it.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
