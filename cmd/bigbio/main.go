// Command bigbio is the CLI for the biomedical corpus loader.
// It parses raw corpora, converts them into the unified schemas,
// validates the result, and manages the local archive store.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/biomedcorpora/bigbio/core/corpus"
	"github.com/biomedcorpora/bigbio/core/dataset"
	"github.com/biomedcorpora/bigbio/core/loaders"
	"github.com/biomedcorpora/bigbio/core/schema"
	"github.com/biomedcorpora/bigbio/core/sqlite"
	"github.com/biomedcorpora/bigbio/core/standoff"
	"github.com/biomedcorpora/bigbio/core/store"
	"github.com/biomedcorpora/bigbio/internal/api"
	"github.com/biomedcorpora/bigbio/internal/archive"
	"github.com/biomedcorpora/bigbio/internal/logging"

	// Register the built-in format handlers and dataset cards.
	_ "github.com/biomedcorpora/bigbio/internal/datasets"
	_ "github.com/biomedcorpora/bigbio/internal/formats/bioc"
	_ "github.com/biomedcorpora/bigbio/internal/formats/brat"
	_ "github.com/biomedcorpora/bigbio/internal/formats/csv"
	_ "github.com/biomedcorpora/bigbio/internal/formats/jsonl"
)

const version = "1.0.0"

// CLI defines the command-line interface for bigbio.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" enum:"debug,info,warn,error" default:"info"`
	LogFormat string `name:"log-format" help:"Log format (json, text)" enum:"json,text" default:"text"`
	StoreDir  string `name:"store-dir" help:"Archive store root" default:"./store" type:"path"`

	Corpus   CorpusGroup   `cmd:"" help:"Corpus operations (parse, convert, validate, materialize)"`
	Datasets DatasetsGroup `cmd:"" help:"Dataset registry operations"`
	Store    StoreGroup    `cmd:"" help:"Archive store operations"`
	API      APICmd        `cmd:"" help:"Start REST API server"`
	Version  VersionCmd    `cmd:"" help:"Print version information"`
}

// CorpusGroup contains corpus lifecycle operations.
type CorpusGroup struct {
	Parse       ParseCmd       `cmd:"" help:"Parse a raw corpus and report per-document drops"`
	Convert     ConvertCmd     `cmd:"" help:"Convert a raw corpus to unified records as JSON lines"`
	Validate    ValidateCmd    `cmd:"" help:"Validate a corpus under a config"`
	Materialize MaterializeCmd `cmd:"" help:"Write a corpus split into a SQLite file"`
}

// DatasetsGroup contains dataset registry operations.
type DatasetsGroup struct {
	List     DatasetsListCmd `cmd:"" help:"List registered datasets"`
	Describe DescribeCmd     `cmd:"" help:"Describe one dataset"`
	Configs  ConfigsCmd      `cmd:"" help:"List every config of every registered dataset"`
}

// StoreGroup contains archive store operations.
type StoreGroup struct {
	Add     StoreAddCmd     `cmd:"" help:"Add a raw archive to the store"`
	Get     StoreGetCmd     `cmd:"" help:"Extract a blob from the store by hash"`
	Verify  StoreVerifyCmd  `cmd:"" help:"Re-hash a stored blob and check it"`
	List    StoreListCmd    `cmd:"" help:"List stored archives for a dataset"`
	Extract StoreExtractCmd `cmd:"" help:"Unpack a raw corpus archive to a directory"`
}

// ParseCmd parses a raw corpus and prints its parse reports.
type ParseCmd struct {
	Path     string `arg:"" help:"Corpus file or directory" type:"path"`
	Warnings bool   `help:"Print every parse warning"`
}

func (c *ParseCmd) Run() error {
	results, err := parseCorpus(c.Path)
	if err != nil {
		return err
	}

	var lines, parsed, dropped int
	for _, r := range results {
		lines += r.Report.Lines
		parsed += r.Report.Parsed
		dropped += r.Report.Dropped
		status := "ok"
		if r.Report.Dropped > 0 {
			status = fmt.Sprintf("%d dropped", r.Report.Dropped)
		}
		fmt.Printf("%s: %d annotations, %s\n", r.DocID, r.Report.Parsed, status)
		if c.Warnings {
			for _, w := range r.Report.Warnings {
				fmt.Printf("  line %d: %s\n", w.Line, w.Message)
			}
		}
	}
	fmt.Printf("\n%d documents, %d lines, %d parsed, %d dropped\n",
		len(results), lines, parsed, dropped)
	return nil
}

// parseCorpus accepts either a directory of .txt/.ann pairs or one
// member of a single pair.
func parseCorpus(path string) ([]*standoff.FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return standoff.ParseDir(path)
	}

	base := strings.TrimSuffix(strings.TrimSuffix(path, ".ann"), ".txt")
	cols, report, err := standoff.ParsePair(base+".txt", base+".ann")
	if err != nil {
		return nil, err
	}
	return []*standoff.FileResult{{
		DocID:       strings.TrimSuffix(strings.TrimSuffix(info.Name(), ".ann"), ".txt"),
		Collections: cols,
		Report:      report,
	}}, nil
}

// ConvertCmd converts a raw corpus into unified records.
type ConvertCmd struct {
	Config string            `arg:"" help:"Config name, e.g. bc5cdr_bigbio_kb"`
	Path   string            `arg:"" help:"Raw corpus file or directory" type:"path"`
	Out    string            `help:"Output file (default stdout)" type:"path"`
	Format string            `help:"Force a format handler instead of detection"`
	Fields map[string]string `help:"Raw-to-unified field renames (raw=unified)"`
}

func (c *ConvertCmd) Run() error {
	_, res, err := corpus.Run(c.Config, c.Path, corpus.Options{
		Format: c.Format,
		Fields: c.Fields,
	})
	if err != nil {
		return err
	}

	out := os.Stdout
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	for _, doc := range res.Documents {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	for _, rec := range res.Records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCmd validates a corpus under a config.
type ValidateCmd struct {
	Config string            `arg:"" help:"Config name, e.g. bc5cdr_bigbio_kb"`
	Path   string            `arg:"" help:"Raw corpus file or directory" type:"path"`
	Format string            `help:"Force a format handler instead of detection"`
	Fields map[string]string `help:"Raw-to-unified field renames (raw=unified)"`
	Report string            `help:"Write the JSON report to this path" type:"path"`
}

func (c *ValidateCmd) Run() error {
	rep, _, err := corpus.Run(c.Config, c.Path, corpus.Options{
		Format: c.Format,
		Fields: c.Fields,
	})
	if err != nil {
		return err
	}

	if c.Report != "" {
		if err := corpus.WriteReport(rep, c.Report); err != nil {
			return err
		}
	}

	fmt.Printf("%s: %s (%d records, %d failed, %d annotations dropped)\n",
		rep.Config, rep.Status, rep.Records, rep.Failed, rep.Dropped)
	for _, f := range rep.Failures {
		fmt.Printf("  %s:\n", f.ID)
		for _, v := range f.Violations {
			fmt.Printf("    %s\n", v)
		}
	}

	if !rep.Passed() {
		return fmt.Errorf("validation failed: %d of %d records", rep.Failed, rep.Records)
	}
	return nil
}

// MaterializeCmd writes a corpus split into a SQLite file.
type MaterializeCmd struct {
	Config string            `arg:"" help:"Config name, e.g. bc5cdr_bigbio_kb"`
	Path   string            `arg:"" help:"Raw corpus file or directory" type:"path"`
	DB     string            `required:"" help:"Output SQLite file" type:"path"`
	Split  string            `help:"Split name" default:"train"`
	Format string            `help:"Force a format handler instead of detection"`
	Fields map[string]string `help:"Raw-to-unified field renames (raw=unified)"`
}

func (c *MaterializeCmd) Run() error {
	rep, res, err := corpus.Run(c.Config, c.Path, corpus.Options{
		Format: c.Format,
		Fields: c.Fields,
	})
	if err != nil {
		return err
	}
	if !rep.Passed() {
		return fmt.Errorf("refusing to materialize: %d of %d records failed validation",
			rep.Failed, rep.Records)
	}

	db, err := sqlite.OpenSplits(c.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := corpus.Materialize(db, c.Split, res)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d records to %s split %q (%s driver)\n",
		n, c.DB, c.Split, sqlite.DriverType())
	return nil
}

// DatasetsListCmd lists registered datasets.
type DatasetsListCmd struct{}

func (c *DatasetsListCmd) Run() error {
	entries := dataset.List()
	if len(entries) == 0 {
		fmt.Println("no datasets registered")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-12s %-10s %s [%s]\n",
			e.Card.Name, e.Format,
			strings.Join(e.Card.Schemas, ","), e.Card.License)
	}
	return nil
}

// DescribeCmd describes one dataset.
type DescribeCmd struct {
	Name string `arg:"" help:"Dataset name"`
}

func (c *DescribeCmd) Run() error {
	entry, err := dataset.Get(c.Name)
	if err != nil {
		return err
	}

	card := entry.Card
	fmt.Printf("Name:      %s\n", card.Name)
	if card.PrettyName != "" {
		fmt.Printf("Pretty:    %s\n", card.PrettyName)
	}
	if card.Homepage != "" {
		fmt.Printf("Homepage:  %s\n", card.Homepage)
	}
	fmt.Printf("License:   %s\n", card.License)
	fmt.Printf("Languages: %s\n", strings.Join(card.Languages, ", "))
	fmt.Printf("Tasks:     %s\n", strings.Join(card.Tasks, ", "))
	fmt.Printf("Format:    %s\n", entry.Format)
	fmt.Printf("Join:      %s\n", card.JoinConvention())
	fmt.Printf("Public:    %t\n", card.Public)
	fmt.Println("Configs:")
	for _, cfg := range card.Configs() {
		fmt.Printf("  %s\n", cfg.Name())
	}
	if card.Description != "" {
		fmt.Printf("\n%s\n", strings.TrimSpace(card.Description))
	}
	return nil
}

// ConfigsCmd lists every config of every registered dataset.
type ConfigsCmd struct {
	Schema string `help:"Only configs targeting this schema"`
}

func (c *ConfigsCmd) Run() error {
	for _, cfg := range dataset.Configs() {
		if c.Schema != "" && cfg.Schema != schema.Schema(c.Schema) {
			continue
		}
		fmt.Println(cfg.Name())
	}
	return nil
}

// StoreAddCmd adds a raw archive to the store.
type StoreAddCmd struct {
	Dataset string `arg:"" help:"Dataset the archive belongs to"`
	Path    string `arg:"" help:"Archive file" type:"existingfile"`
}

func (c *StoreAddCmd) Run() error {
	s, err := store.New(CLI.StoreDir)
	if err != nil {
		return err
	}
	m, err := s.AddArchive(c.Dataset, c.Path)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (%d bytes)\n", m.SHA256, m.OriginalName, m.SizeBytes)
	return nil
}

// StoreGetCmd extracts a blob from the store by hash.
type StoreGetCmd struct {
	Hash string `arg:"" help:"SHA-256 hash of the blob"`
	Out  string `required:"" help:"Output path" type:"path"`
}

func (c *StoreGetCmd) Run() error {
	s, err := store.New(CLI.StoreDir)
	if err != nil {
		return err
	}
	data, err := s.Get(c.Hash)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Out, data, 0o644)
}

// StoreVerifyCmd re-hashes a stored blob and checks it.
type StoreVerifyCmd struct {
	Hash string `arg:"" help:"SHA-256 hash of the blob"`
}

func (c *StoreVerifyCmd) Run() error {
	s, err := store.New(CLI.StoreDir)
	if err != nil {
		return err
	}
	if err := s.Verify(c.Hash); err != nil {
		return err
	}
	fmt.Printf("%s: ok\n", c.Hash)
	return nil
}

// StoreListCmd lists stored archives for a dataset.
type StoreListCmd struct {
	Dataset string `arg:"" help:"Dataset name"`
}

func (c *StoreListCmd) Run() error {
	s, err := store.New(CLI.StoreDir)
	if err != nil {
		return err
	}
	manifests, err := s.Manifests(c.Dataset)
	if err != nil {
		return err
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].OriginalName < manifests[j].OriginalName
	})
	for _, m := range manifests {
		fmt.Printf("%s %s (%d bytes)\n", m.SHA256, m.OriginalName, m.SizeBytes)
	}
	return nil
}

// StoreExtractCmd unpacks a raw corpus archive to a directory.
type StoreExtractCmd struct {
	Path string `arg:"" help:"Archive file (tar, tar.gz, tar.xz)" type:"existingfile"`
	Out  string `required:"" help:"Destination directory" type:"path"`
}

func (c *StoreExtractCmd) Run() error {
	if err := archive.Extract(c.Path, c.Out); err != nil {
		return err
	}
	fmt.Printf("extracted %s to %s\n", c.Path, c.Out)
	return nil
}

// APICmd starts the REST API server.
type APICmd struct {
	Port       int      `help:"HTTP server port" default:"8081"`
	DataDir    string   `help:"Directory raw corpus paths are resolved under" default:"./data" type:"path"`
	ReportsDir string   `help:"Directory job reports are written to" default:"./reports" type:"path"`
	Origins    []string `help:"CORS allowed origins (empty = allow all)"`
}

func (c *APICmd) Run() error {
	return api.Start(api.Config{
		Port:           c.Port,
		DataDir:        c.DataDir,
		ReportsDir:     c.ReportsDir,
		AllowedOrigins: c.Origins,
	})
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("bigbio %s (sqlite driver: %s)\n", version, sqlite.DriverType())
	fmt.Printf("formats: %s\n", strings.Join(formatNames(), ", "))
	return nil
}

func formatNames() []string {
	var names []string
	for _, h := range loaders.List() {
		names = append(names, h.Name())
	}
	return names
}

func logLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func logFormat(s string) logging.Format {
	if s == "json" {
		return logging.FormatJSON
	}
	return logging.FormatText
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bigbio"),
		kong.Description("Biomedical corpus loader and validator"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	logging.InitLogger(logLevel(CLI.LogLevel), logFormat(CLI.LogFormat))
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
