package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"rate-monitor/internal/storage"
)

// Export renders a stored series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Series == "" {
		return errors.New("--series is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, err := a.openStore()
	if err != nil {
		return err
	}

	table := store.Load(opts.Series)
	if table.Empty() {
		a.Logger.Info().Str("series", opts.Series).Msg("no rows found for export")
		return nil
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = table.Columns
	}

	rows := clipRows(table.Rows, opts.From, opts.To)
	if len(rows) == 0 {
		a.Logger.Info().Str("series", opts.Series).Msg("no rows inside export window")
		return nil
	}

	downsampled := downsampleRows(rows, opts.MaxPoints)
	a.Logger.Info().Int("total", len(rows)).Int("exported", len(downsampled)).Msg("exporting rows")

	if opts.CSVPath != "" {
		if err := writeRowsCSV(opts.CSVPath, table.KeyColumn, columns, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRowsPNG(opts.PNGPath, opts.Series, columns, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func clipRows(rows []storage.Row, from, to *time.Time) []storage.Row {
	lo, hi := "", "9999-12-31"
	if from != nil {
		lo = from.UTC().Format(storage.DateLayout)
	}
	if to != nil {
		hi = to.UTC().Format(storage.DateLayout)
	}

	clipped := make([]storage.Row, 0, len(rows))
	for _, row := range rows {
		if row.Key < lo || row.Key > hi {
			continue
		}
		clipped = append(clipped, row)
	}
	return clipped
}

func downsampleRows(rows []storage.Row, max int) []storage.Row {
	if max <= 0 || len(rows) <= max {
		return rows
	}

	result := make([]storage.Row, 0, max)
	step := float64(len(rows)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(rows) {
			idx = len(rows) - 1
		}
		result = append(result, rows[idx])
	}
	return result
}

func writeRowsCSV(path, keyColumn string, columns []string, rows []storage.Row) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{keyColumn}, columns...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record, row.Key)
		for _, column := range columns {
			value, ok := row.Get(column)
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, value.String())
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRowsPNG(path, title string, columns []string, rows []storage.Row) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	series := make([]gochart.Series, 0, len(columns))
	for _, column := range columns {
		x := make([]time.Time, 0, len(rows))
		y := make([]float64, 0, len(rows))
		for _, row := range rows {
			value, ok := row.Get(column)
			if !ok {
				continue
			}
			date, err := time.Parse(storage.DateLayout, row.Key)
			if err != nil {
				continue
			}
			x = append(x, date)
			y = append(y, value.InexactFloat64())
		}
		if len(x) < 2 {
			continue
		}
		series = append(series, gochart.TimeSeries{Name: column, XValues: x, YValues: y})
	}
	if len(series) == 0 {
		return errors.New("no plottable column in export window")
	}

	rateFormatter := func(v interface{}) string {
		return gochart.FloatValueFormatterWithFormat(v, "%.3f")
	}
	graph := gochart.Chart{
		Title:  title,
		Width:  1280,
		Height: 720,
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatter,
		},
		YAxis: gochart.YAxis{
			Name:           "Rate (%)",
			ValueFormatter: rateFormatter,
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(gochart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
