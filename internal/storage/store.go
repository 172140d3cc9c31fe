package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ErrEmptyRow indicates a mutation was attempted with a row missing its key.
var ErrEmptyRow = errors.New("storage: row has no key value")

// Store owns a data directory holding one delimited file per series. It is
// the single writer: every mutation is a load, an in-memory edit, and a
// whole-file rewrite. Not safe for concurrent invocations.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore wires a data directory into a Store, creating it if needed.
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Dir returns the store's data directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

// Load returns the full historical table for a series. Missing or malformed
// storage degrades to an empty table with a logged warning; a transient read
// failure must never abort a collection run.
func (s *Store) Load(name string) *Table {
	table, err := readTable(s.path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("series", name).Msg("failed to load series, treating as empty")
		}
		return NewTable(DateColumn)
	}
	return table
}

// Save overwrites the persisted table with the given contents.
func (s *Store) Save(name string, table *Table) error {
	if err := writeTable(s.path(name), table); err != nil {
		return fmt.Errorf("save series %s: %w", name, err)
	}
	s.logger.Info().Str("series", name).Int("rows", len(table.Rows)).Msg("series saved")
	return nil
}

// Append inserts a single row unless its date already exists, then re-sorts
// and persists. Re-appending an existing date is a logged no-op, so the
// original values are always retained.
func (s *Store) Append(name string, row Row) error {
	if row.Key == "" {
		return ErrEmptyRow
	}

	table := s.Load(name)
	if table.HasKey(row.Key) {
		s.logger.Debug().Str("series", name).Str("key", row.Key).Msg("key already recorded, skipping")
		return nil
	}

	table.insert(row)
	return s.Save(name, table)
}

// AppendMany batches appends: rows whose date already exists in the persisted
// snapshot are dropped, as are later duplicates of a date within the batch
// itself (first occurrence wins). One sort and persist for the whole batch.
// Empty input is a no-op.
func (s *Store) AppendMany(name string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	table := s.Load(name)

	seen := make(map[string]struct{}, len(table.Rows))
	for _, row := range table.Rows {
		seen[row.Key] = struct{}{}
	}

	added := 0
	for _, row := range rows {
		if row.Key == "" {
			continue
		}
		if _, dup := seen[row.Key]; dup {
			continue
		}
		seen[row.Key] = struct{}{}
		table.registerColumns(row)
		table.Rows = append(table.Rows, row)
		added++
	}

	if added == 0 {
		s.logger.Debug().Str("series", name).Msg("no new rows to append")
		return nil
	}

	table.sortRows()
	if err := s.Save(name, table); err != nil {
		return err
	}
	s.logger.Info().Str("series", name).Int("appended", added).Msg("rows appended")
	return nil
}

// UpsertByKey merges a row into the series keyed by an arbitrary column. An
// existing row is updated with only the non-null fields of the incoming row,
// preserving previously captured values; otherwise the row is appended. Used
// for promotion records keyed by promo_month.
func (s *Store) UpsertByKey(name, keyColumn string, row Row) error {
	if row.Key == "" {
		return ErrEmptyRow
	}

	table := s.Load(name)
	if table.Empty() {
		table = NewTable(keyColumn)
	}
	table.KeyColumn = keyColumn

	if existing, ok := table.RowAt(row.Key); ok {
		merge(existing, row)
		table.registerColumns(row)
		table.sortRows()
		s.logger.Info().Str("series", name).Str("key", row.Key).Msg("updated existing row")
		return s.Save(name, table)
	}

	table.insert(row)
	s.logger.Info().Str("series", name).Str("key", row.Key).Msg("added new row")
	return s.Save(name, table)
}
