package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// readTable decodes one delimited series file. The header row names the
// columns; the key column is recognised by name. Historical rows may lack
// columns added later, those cells load as null.
func readTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return NewTable(DateColumn), nil
	}

	header := records[0]
	keyIdx := -1
	keyColumn := DateColumn
	for i, name := range header {
		if name == DateColumn || name == PromoMonthColumn {
			keyIdx = i
			keyColumn = name
			break
		}
	}
	if keyIdx < 0 {
		return nil, fmt.Errorf("parse %s: no key column in header", filepath.Base(path))
	}

	table := NewTable(keyColumn)
	for i, name := range header {
		if i != keyIdx {
			table.Columns = append(table.Columns, name)
		}
	}

	for _, record := range records[1:] {
		if keyIdx >= len(record) || record[keyIdx] == "" {
			continue
		}
		row := NewRow(record[keyIdx])
		for i, field := range record {
			if i == keyIdx || i >= len(header) || field == "" {
				continue
			}
			value, parseErr := decimal.NewFromString(field)
			if parseErr != nil {
				// Unparseable cells degrade to null, not an error.
				continue
			}
			row.Cells[header[i]] = decimal.NullDecimal{Decimal: value, Valid: true}
		}
		table.Rows = append(table.Rows, row)
	}

	table.sortRows()
	return table, nil
}

// writeTable rewrites the whole series file: header first, then one record
// per row in key order, null cells as empty fields.
func writeTable(path string, table *Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{table.KeyColumn}, table.Columns...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range table.Rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Key)
		for _, column := range table.Columns {
			if cell, ok := row.Cells[column]; ok && cell.Valid {
				record = append(record, cell.Decimal.String())
			} else {
				record = append(record, "")
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}
