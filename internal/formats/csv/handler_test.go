package csv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/biomedcorpora/bigbio/core/loaders"
	"github.com/biomedcorpora/bigbio/core/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDetect(t *testing.T) {
	h := &Handler{}

	res, err := h.Detect(writeFile(t, "pairs.csv", "a,b\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Detected {
		t.Errorf("result = %+v", res)
	}

	res, err = h.Detect(writeFile(t, "pairs.json", "{}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Detected {
		t.Errorf("json detected as csv: %+v", res)
	}
}

func TestLoad(t *testing.T) {
	h := &Handler{}
	path := writeFile(t, "biosses.csv",
		"id,sentence_1,sentence_2,score\n"+
			"biosses-1,Gene expression rose.,Expression increased.,3.8\n"+
			"biosses-2,\"Cells, when treated, died.\",Treatment killed cells.,3.2\n")

	result, err := h.Load(path, loaders.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("records = %d", len(result.Records))
	}
	if result.Records[0]["id"] != "biosses-1" {
		t.Errorf("id = %v", result.Records[0]["id"])
	}
	if result.Records[1]["sentence_1"] != "Cells, when treated, died." {
		t.Errorf("quoted field = %v", result.Records[1]["sentence_1"])
	}
}

func TestLoad_TSV(t *testing.T) {
	h := &Handler{}
	path := writeFile(t, "biosses.tsv",
		"id\tsentence_1\tsentence_2\tscore\n"+
			"biosses-1\tGene expression rose.\tExpression increased.\t3.8\n")

	result, err := h.Load(path, loaders.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Records[0]["sentence_2"] != "Expression increased." {
		t.Errorf("record = %v", result.Records[0])
	}
}

func TestLoad_FieldTableAndMapping(t *testing.T) {
	h := &Handler{}
	path := writeFile(t, "biosses.csv",
		"id,sentence_1,sentence_2,score\n"+
			"biosses-1,Gene expression rose.,Expression increased.,3.8\n")

	result, err := h.Load(path, loaders.Options{
		Dataset: "biosses",
		Fields: map[string]string{
			"sentence_1": "text_1",
			"sentence_2": "text_2",
			"score":      "label",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := result.Records[0]
	mapped, err := schema.MapRecord(schema.SchemaPairs, schema.Fields(rec))
	if err != nil {
		t.Fatal(err)
	}
	pairs, ok := mapped.(*schema.PairsRecord)
	if !ok || pairs.Text1 != "Gene expression rose." || pairs.Label != "3.8" {
		t.Errorf("mapped = %#v", mapped)
	}
}

func TestLoad_DerivesMissingID(t *testing.T) {
	h := &Handler{}
	path := writeFile(t, "dev.csv", "text\nhello\n")

	result, err := h.Load(path, loaders.Options{Dataset: "biosses"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Records[0]["id"] != "biosses.dev-1" {
		t.Errorf("id = %v", result.Records[0]["id"])
	}
}

func TestLoad_Errors(t *testing.T) {
	h := &Handler{}

	if _, err := h.Load(writeFile(t, "empty.csv", ""), loaders.Options{}); err == nil {
		t.Error("expected error for empty file")
	}
	if _, err := h.Load(writeFile(t, "ragged.csv", "a,b\n1\n"), loaders.Options{}); err == nil {
		t.Error("expected error for ragged row")
	}
	if _, err := h.Load(filepath.Join(t.TempDir(), "nope.csv"), loaders.Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRegistered(t *testing.T) {
	if !loaders.Has(FormatName) {
		t.Error("handler did not self-register")
	}
}
