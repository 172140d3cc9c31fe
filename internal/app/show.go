package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
)

// Show prints the most recent rows of a stored series.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if opts.Series == "" {
		return errors.New("--series is required")
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}

	table := store.Load(opts.Series)
	if table.Empty() {
		fmt.Fprintf(os.Stdout, "series %s has no rows\n", opts.Series)
		return nil
	}

	rows := table.Rows
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[len(rows)-opts.Limit:]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	header := table.KeyColumn
	for _, column := range table.Columns {
		header += "\t" + column
	}
	fmt.Fprintln(writer, header)

	for _, row := range rows {
		line := row.Key
		for _, column := range table.Columns {
			value, ok := row.Get(column)
			if !ok {
				line += "\t-"
				continue
			}
			line += "\t" + value.String()
		}
		fmt.Fprintln(writer, line)
	}

	return writer.Flush()
}
