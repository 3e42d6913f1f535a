package validation

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	baseDir := t.TempDir()

	tests := []struct {
		name      string
		userPath  string
		want      string
		wantError error
	}{
		{"simple valid path", "doc.txt", "doc.txt", nil},
		{"nested valid path", "corpus/doc.txt", filepath.Join("corpus", "doc.txt"), nil},
		{"redundant separators", "corpus//doc.txt", filepath.Join("corpus", "doc.txt"), nil},
		{"dot component", "./doc.txt", "doc.txt", nil},
		{"traversal with dotdot", "../etc/passwd", "", ErrPathTraversal},
		{"traversal in middle", "corpus/../../etc/passwd", "", ErrPathTraversal},
		{"absolute path", "/etc/passwd", "", ErrPathTraversal},
		{"empty path", "", "", ErrEmptyPath},
		{"too long", strings.Repeat("a", MaxPathLength+1), "", ErrPathTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(baseDir, tt.userPath)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("error = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsPathSafe(t *testing.T) {
	baseDir := t.TempDir()
	if !IsPathSafe(baseDir, "ok.txt") {
		t.Error("safe path rejected")
	}
	if IsPathSafe(baseDir, "../escape") {
		t.Error("traversal accepted")
	}
}

func TestValidateFilename(t *testing.T) {
	valid := []string{"doc.txt", "PMID-100.ann", "bc5cdr_train.jsonl"}
	for _, name := range valid {
		if err := ValidateFilename(name); err != nil {
			t.Errorf("ValidateFilename(%q): %v", name, err)
		}
	}

	invalid := []string{
		"",
		".",
		"..",
		"a/b",
		"a\\b",
		"nul\x00byte",
		"ctrl\x01char",
		"-flag.txt",
		strings.Repeat("x", MaxFilenameLength+1),
	}
	for _, name := range invalid {
		if err := ValidateFilename(name); err == nil {
			t.Errorf("ValidateFilename(%q): expected error", name)
		}
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath("corpus/train/doc.txt"); err != nil {
		t.Errorf("ValidatePath: %v", err)
	}
	if err := ValidatePath(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("error = %v", err)
	}
	if err := ValidatePath("a\x00b"); !errors.Is(err, ErrInvalidCharacter) {
		t.Errorf("error = %v", err)
	}
	if err := ValidatePath(strings.Repeat("a", MaxPathLength+1)); !errors.Is(err, ErrPathTooLong) {
		t.Errorf("error = %v", err)
	}
}

func TestValidateFileType(t *testing.T) {
	gzHeader := []byte{0x1f, 0x8b, 0x08, 0x00}
	xzHeader := []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}

	tests := []struct {
		name     string
		data     []byte
		filename string
		want     FileType
		wantErr  bool
	}{
		{"tar.gz", gzHeader, "corpus.tar.gz", FileTypeTarGZ, false},
		{"tgz alias", gzHeader, "corpus.tgz", FileTypeTarGZ, false},
		{"tar.xz", xzHeader, "corpus.tar.xz", FileTypeTarXZ, false},
		{"plain gz", gzHeader, "corpus.gz", FileTypeGzip, false},
		{"bioc xml", []byte("<collection><document/></collection>"), "corpus.xml", FileTypeXML, false},
		{"jsonl", []byte(`{"id": "1"}`), "train.jsonl", FileTypeJSON, false},
		{"brat ann", []byte("T1\tChemical 0 8\tNaloxone\n"), "doc.ann", FileTypeText, false},
		{"html as tarball", []byte("<html>404 not found</html>"), "x.bin", FileTypeUnknown, false},
		{"mismatch", gzHeader, "corpus.xml", FileTypeUnknown, true},
		{"binary as text", append([]byte{0x00, 0x01}, []byte("junk")...), "doc.txt", FileTypeText, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFileType(bytes.NewReader(tt.data), tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Errorf("got %v, expected error", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateFileType_SQLite(t *testing.T) {
	data := append([]byte("SQLite format 3\x00"), make([]byte, 100)...)
	got, err := ValidateFileType(bytes.NewReader(data), "splits.sqlite")
	if err != nil {
		t.Fatal(err)
	}
	if got != FileTypeSQLite {
		t.Errorf("got %v", got)
	}
}
