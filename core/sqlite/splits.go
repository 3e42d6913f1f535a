package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/biomedcorpora/bigbio/core/errors"
)

// splitSchema is the one-table layout of a materialized config file.
// Records are stored as JSON text; the JSON shape is the unified schema
// the config was materialized under.
const splitSchema = `
CREATE TABLE IF NOT EXISTS records (
	id     TEXT NOT NULL,
	split  TEXT NOT NULL,
	record TEXT NOT NULL,
	PRIMARY KEY (id, split)
);
CREATE INDEX IF NOT EXISTS idx_records_split ON records(split);
`

// SplitDB is one config's materialized split file.
type SplitDB struct {
	db *sql.DB
}

// OpenSplits opens (creating if needed) a split file at path.
func OpenSplits(path string) (*SplitDB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(splitSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating split schema")
	}
	return &SplitDB{db: db}, nil
}

// Close closes the underlying database.
func (s *SplitDB) Close() error {
	return s.db.Close()
}

// Insert writes one record into a split. The record is serialized as
// JSON. Writing an id that already exists in the split is an error;
// record ids are globally unique by construction, so a collision means
// the same corpus was materialized twice into one file.
func (s *SplitDB) Insert(split, id string, rec any) error {
	if split == "" || id == "" {
		return errors.NewValidation("record", "split and id must be non-empty")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshaling record")
	}
	_, err = s.db.Exec(`INSERT INTO records (id, split, record) VALUES (?, ?, ?)`,
		id, split, string(data))
	if err != nil {
		return errors.Wrapf(err, "inserting record %s into split %s", id, split)
	}
	return nil
}

// InsertBatch writes many records into a split inside one transaction.
// ids[i] identifies recs[i].
func (s *SplitDB) InsertBatch(split string, ids []string, recs []any) error {
	if len(ids) != len(recs) {
		return errors.NewValidation("batch",
			fmt.Sprintf("ids and records length mismatch: %d vs %d", len(ids), len(recs)))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	stmt, err := tx.Prepare(`INSERT INTO records (id, split, record) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "preparing insert")
	}
	defer stmt.Close()

	for i, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "marshaling record %s", ids[i])
		}
		if _, err := stmt.Exec(ids[i], split, string(data)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "inserting record %s", ids[i])
		}
	}
	return tx.Commit()
}

// Count returns the number of records in a split.
func (s *SplitDB) Count(split string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE split = ?`, split).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "counting records")
	}
	return n, nil
}

// Splits returns the distinct split names in the file, sorted.
func (s *SplitDB) Splits() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT split FROM records ORDER BY split`)
	if err != nil {
		return nil, errors.Wrap(err, "listing splits")
	}
	defer rows.Close()

	var splits []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scanning split name")
		}
		splits = append(splits, name)
	}
	return splits, rows.Err()
}

// Get retrieves one record's raw JSON by id and split.
func (s *SplitDB) Get(split, id string) (json.RawMessage, error) {
	var data string
	err := s.db.QueryRow(`SELECT record FROM records WHERE split = ? AND id = ?`,
		split, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("record", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading record")
	}
	return json.RawMessage(data), nil
}

// Each calls fn for every record of a split, in id order. Iteration
// stops at the first error.
func (s *SplitDB) Each(split string, fn func(id string, record json.RawMessage) error) error {
	rows, err := s.db.Query(`SELECT id, record FROM records WHERE split = ? ORDER BY id`, split)
	if err != nil {
		return errors.Wrap(err, "reading split")
	}
	defer rows.Close()

	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return errors.Wrap(err, "scanning record")
		}
		if err := fn(id, json.RawMessage(data)); err != nil {
			return err
		}
	}
	return rows.Err()
}
