package storage

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateColumn is the natural key of date-keyed series.
	DateColumn = "date"
	// PromoMonthColumn keys promotion records instead of a calendar date.
	PromoMonthColumn = "promo_month"

	// DateLayout is the wire format for the date key.
	DateLayout = "2006-01-02"
)

// Table is the in-memory view of one persisted series: an ordered set of
// value columns plus rows sorted ascending by the key column. ISO dates and
// YYYY-MM promo months both sort correctly as strings.
type Table struct {
	KeyColumn string
	Columns   []string
	Rows      []Row
}

// Row maps column names to nullable decimal cells. A missing cell is null,
// never zero.
type Row struct {
	Key   string
	Cells map[string]decimal.NullDecimal
}

// NewRow builds a row keyed by the given value.
func NewRow(key string) Row {
	return Row{Key: key, Cells: make(map[string]decimal.NullDecimal)}
}

// Set records a non-null cell value.
func (r Row) Set(column string, value decimal.Decimal) Row {
	r.Cells[column] = decimal.NullDecimal{Decimal: value, Valid: true}
	return r
}

// SetFloat records a non-null cell from a float64.
func (r Row) SetFloat(column string, value float64) Row {
	return r.Set(column, decimal.NewFromFloat(value))
}

// Get returns the cell for a column; the bool reports whether it is non-null.
func (r Row) Get(column string) (decimal.Decimal, bool) {
	cell, ok := r.Cells[column]
	if !ok || !cell.Valid {
		return decimal.Decimal{}, false
	}
	return cell.Decimal, true
}

// NewTable creates an empty table keyed by the given column.
func NewTable(keyColumn string) *Table {
	return &Table{KeyColumn: keyColumn}
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// HasColumn reports whether the column is registered.
func (t *Table) HasColumn(column string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// HasKey reports whether a row with the given key value exists.
func (t *Table) HasKey(key string) bool {
	if t == nil {
		return false
	}
	for _, row := range t.Rows {
		if row.Key == key {
			return true
		}
	}
	return false
}

// RowAt returns the row for a key value, if present.
func (t *Table) RowAt(key string) (Row, bool) {
	for _, row := range t.Rows {
		if row.Key == key {
			return row, true
		}
	}
	return Row{}, false
}

// LastKey returns the key of the final (most recent) row.
func (t *Table) LastKey() (string, bool) {
	if t.Empty() {
		return "", false
	}
	return t.Rows[len(t.Rows)-1].Key, true
}

// LastDate parses the final row's key as a calendar date.
func (t *Table) LastDate() (time.Time, bool) {
	key, ok := t.LastKey()
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(DateLayout, key)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// registerColumns grows the column registry with any columns of the row not
// seen before, preserving first-seen order so the persisted header stays
// stable across schema drift.
func (t *Table) registerColumns(row Row) {
	names := make([]string, 0, len(row.Cells))
	for name := range row.Cells {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == t.KeyColumn || t.HasColumn(name) {
			continue
		}
		t.Columns = append(t.Columns, name)
	}
}

// insert adds a row (key assumed absent) and restores the sort invariant.
func (t *Table) insert(row Row) {
	t.registerColumns(row)
	t.Rows = append(t.Rows, row)
	t.sortRows()
}

func (t *Table) sortRows() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Key < t.Rows[j].Key
	})
}

// merge copies every non-null cell of src into dst, leaving other columns
// untouched. Nulls never overwrite previously recorded values.
func merge(dst Row, src Row) {
	for name, cell := range src.Cells {
		if cell.Valid {
			dst.Cells[name] = cell
		}
	}
}
