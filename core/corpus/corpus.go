// Package corpus runs a dataset config end to end: load the raw files
// through the registered format handler, map them into the unified
// schema, validate every record, and produce a machine-readable report.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/biomedcorpora/bigbio/core/dataset"
	"github.com/biomedcorpora/bigbio/core/errors"
	"github.com/biomedcorpora/bigbio/core/loaders"
	"github.com/biomedcorpora/bigbio/core/schema"
	"github.com/biomedcorpora/bigbio/core/sqlite"
	"github.com/biomedcorpora/bigbio/internal/logging"
)

// Version is the report format version.
const Version = "1.0.0"

// Status values for reports.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// Options carries per-run settings.
type Options struct {
	// Context cancels the run between records. Defaults to
	// context.Background when nil.
	Context context.Context
	// Format forces a specific handler instead of the dataset's
	// registered one or content detection.
	Format string
	// Fields maps raw source field names to unified names for
	// record-shaped formats. Overrides nothing for document formats.
	Fields map[string]string
	// Join overrides the dataset card's passage join convention.
	Join schema.JoinConvention
	// Progress, if set, is called after each record is validated.
	Progress func(done, total int)
}

// RecordReport holds the violations found on one record.
type RecordReport struct {
	ID         string             `json:"id"`
	Violations []schema.Violation `json:"violations"`
}

// Report is the result of running one config over one input path.
// Skipped counts records that could not be mapped into the target
// schema; they are logged and excluded from validation.
type Report struct {
	Version     string         `json:"version"`
	Config      string         `json:"config"`
	Format      string         `json:"format"`
	Path        string         `json:"path"`
	GeneratedAt string         `json:"generated_at"`
	Status      string         `json:"status"`
	Records     int            `json:"records"`
	Failed      int            `json:"failed"`
	Skipped     int            `json:"skipped"`
	Dropped     int            `json:"dropped"`
	Failures    []RecordReport `json:"failures,omitempty"`
}

// Passed reports whether every record validated clean.
func (r *Report) Passed() bool {
	return r.Status == StatusPass
}

// Run loads the input path under the named config and validates the
// result. Source configs skip schema validation; the raw records are
// counted and returned as loaded. A non-nil report is returned even
// when records fail, the error covers load failures and cancellation.
func Run(configName, path string, opts Options) (*Report, *loaders.Result, error) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	cfg, err := dataset.ParseConfigName(configName)
	if err != nil {
		return nil, nil, err
	}

	join := opts.Join
	formatName := opts.Format
	if dataset.Has(cfg.Dataset) {
		_, entry, rerr := dataset.Resolve(configName)
		if rerr != nil {
			return nil, nil, rerr
		}
		if formatName == "" {
			formatName = entry.Format
		}
		if join == "" {
			join = entry.Card.JoinConvention()
		}
	}
	if join == "" {
		join = schema.JoinSpace
	}

	handler, err := resolveHandler(formatName, path)
	if err != nil {
		return nil, nil, err
	}

	logging.DatasetEvent("run_started", cfg.Dataset, configName,
		"format", handler.Name(), "path", path)

	res, err := handler.Load(path, loaders.Options{
		Dataset: cfg.Dataset,
		Join:    join,
		Fields:  opts.Fields,
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "loading %s as %s", path, handler.Name())
	}

	rep := &Report{
		Version:     Version,
		Config:      configName,
		Format:      handler.Name(),
		Path:        path,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, pr := range res.Reports {
		rep.Dropped += pr.Dropped
	}

	switch {
	case cfg.Source:
		rep.Records = len(res.Documents) + len(res.Records)
	case cfg.Schema == schema.SchemaKB:
		err = validateDocuments(ctx, rep, res.Documents, join, opts.Progress)
	default:
		res.Records, err = mapRecords(ctx, rep, cfg.Schema, res.Records)
		if err == nil {
			err = validateRecords(ctx, rep, cfg.Schema, res.Records, opts.Progress)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	if rep.Failed == 0 {
		rep.Status = StatusPass
	} else {
		rep.Status = StatusFail
	}
	logging.ValidationSummary(configName, rep.Records, rep.Failed,
		"skipped", rep.Skipped, "dropped", rep.Dropped)
	return rep, res, nil
}

func resolveHandler(formatName, path string) (loaders.Handler, error) {
	if formatName != "" {
		return loaders.Get(formatName)
	}
	h, _, err := loaders.Detect(path)
	return h, err
}

func validateDocuments(ctx context.Context, rep *Report, docs []*schema.Document, join schema.JoinConvention, progress func(done, total int)) error {
	rep.Records = len(docs)
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if vs := schema.ValidateKB(doc, join); len(vs) > 0 {
			rep.Failed++
			rep.Failures = append(rep.Failures, RecordReport{ID: doc.ID, Violations: vs})
		}
		if progress != nil {
			progress(i+1, len(docs))
		}
	}
	return nil
}

// mapRecords maps raw handler records into the target schema's shape,
// applying the schema's empty-value defaults. A record that cannot be
// mapped is skipped and logged, never fatal for the run.
func mapRecords(ctx context.Context, rep *Report, sch schema.Schema, recs []map[string]any) ([]map[string]any, error) {
	mapped := make([]map[string]any, 0, len(recs))
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, _ := rec["id"].(string)
		if id == "" {
			id = fmt.Sprintf("record %d", i)
		}
		out, err := schema.MapRecord(sch, schema.Fields(rec))
		if err != nil {
			rep.Skipped++
			logging.RecordSkipped(rep.Config, id, err)
			continue
		}
		fields, err := recordFields(out)
		if err != nil {
			rep.Skipped++
			logging.RecordSkipped(rep.Config, id, err)
			continue
		}
		mapped = append(mapped, fields)
	}
	return mapped, nil
}

// recordFields flattens a typed schema record back into its JSON object
// shape, the form validation and materialization work on.
func recordFields(rec any) (map[string]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling mapped record")
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "unmarshaling mapped record")
	}
	return fields, nil
}

func validateRecords(ctx context.Context, rep *Report, sch schema.Schema, recs []map[string]any, progress func(done, total int)) error {
	rep.Records = len(recs)
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, _ := rec["id"].(string)
		if vs := schema.ValidateFields(rec, sch); len(vs) > 0 {
			rep.Failed++
			rep.Failures = append(rep.Failures, RecordReport{ID: id, Violations: vs})
		}
		if progress != nil {
			progress(i+1, len(recs))
		}
	}
	return nil
}

// WriteReport writes a report as indented JSON.
func WriteReport(rep *Report, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling report")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewIO("mkdir", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// LoadReport reads a report written by WriteReport.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, errors.NewParse("report", path, err.Error())
	}
	return &rep, nil
}

// Materialize writes a loaded corpus into one split of a SQLite split
// database. Documents and field records are stored as JSON under their
// record ids. Records without a usable id are skipped and logged.
func Materialize(db *sqlite.SplitDB, split string, res *loaders.Result) (int, error) {
	var ids []string
	var recs []any
	for _, doc := range res.Documents {
		ids = append(ids, doc.ID)
		recs = append(recs, doc)
	}
	for i, rec := range res.Records {
		id, ok := rec["id"].(string)
		if !ok || id == "" {
			logging.RecordSkipped(split, fmt.Sprintf("record %d", i),
				errors.NewValidation("id", "missing or empty"))
			continue
		}
		ids = append(ids, id)
		recs = append(recs, rec)
	}
	if err := db.InsertBatch(split, ids, recs); err != nil {
		return 0, err
	}
	return len(ids), nil
}
