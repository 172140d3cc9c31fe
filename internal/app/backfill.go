package app

import (
	"context"
	"errors"
	"time"

	"rate-monitor/internal/fetcher"
	"rate-monitor/internal/storage"
)

// Backfill loads historical observations for every daily series over the
// requested date range.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	start := opts.From.UTC().Truncate(24 * time.Hour)
	end := opts.To.UTC().Truncate(24 * time.Hour)
	if start.After(end) {
		return errors.New("backfill range is empty, check --from/--to")
	}
	days := int(end.Sub(start).Hours()/24) + 1

	var store *storage.Store
	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be persisted")
	} else {
		var err error
		store, err = a.openStore()
		if err != nil {
			return err
		}
	}

	src := a.Config.Sources
	hibor := fetcher.NewHIBOR(fetcher.HIBOROptions{BaseURL: src.HKABBaseURL, Timeout: src.RequestTimeout, UserAgent: src.UserAgent}, a.Logger)
	fred := fetcher.NewFRED(fetcher.FREDOptions{BaseURL: src.FREDBaseURL, APIKey: src.FREDAPIKey, Timeout: src.RequestTimeout}, a.Logger)
	sofr := fetcher.NewSOFR(fetcher.SOFROptions{BaseURL: src.NYFedBaseURL, Timeout: src.RequestTimeout}, a.Logger)
	treasury := fetcher.NewTreasury(fetcher.TreasuryOptions{BaseURL: src.TreasuryBaseURL, Timeout: src.RequestTimeout, UserAgent: src.UserAgent}, a.Logger)

	failed := 0

	hiborRows, err := a.backfillHIBOR(ctx, hibor, start, end)
	if err != nil {
		return err
	}
	failed += a.persistBackfill(store, "hibor_daily", hiborRows)

	if fedRows, err := fred.History(ctx, days); err != nil {
		a.Logger.Error().Err(err).Msg("fed funds backfill failed")
		failed++
	} else {
		failed += a.persistBackfill(store, fred.SeriesName(), clipRange(fedRows, start, end))
	}

	if sofrRows, err := sofr.History(ctx, days); err != nil {
		a.Logger.Error().Err(err).Msg("sofr backfill failed")
		failed++
	} else {
		failed += a.persistBackfill(store, sofr.SeriesName(), clipRange(sofrRows, start, end))
	}

	treasuryRows := make([]storage.Row, 0)
	for year := start.Year(); year <= end.Year(); year++ {
		rows, err := treasury.Year(ctx, year)
		if err != nil {
			a.Logger.Error().Err(err).Int("year", year).Msg("treasury backfill failed")
			failed++
			continue
		}
		treasuryRows = append(treasuryRows, rows...)
	}
	failed += a.persistBackfill(store, treasury.SeriesName(), clipRange(treasuryRows, start, end))

	a.Logger.Info().
		Str("from", start.Format(storage.DateLayout)).
		Str("to", end.Format(storage.DateLayout)).
		Int("failed", failed).
		Msg("backfill finished")
	if failed > 0 {
		return errors.New("some series failed to backfill, check the logs")
	}
	return nil
}

// backfillHIBOR walks the range one fixing day at a time, skipping holidays.
func (a *App) backfillHIBOR(ctx context.Context, hibor *fetcher.HIBOR, start, end time.Time) ([]storage.Row, error) {
	rows := make([]storage.Row, 0)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, holiday, err := hibor.FetchDay(ctx, day)
		if err != nil {
			a.Logger.Warn().Err(err).Str("day", day.Format(storage.DateLayout)).Msg("hibor day failed")
			continue
		}
		if holiday {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// persistBackfill appends the rows, returning 1 on failure so the caller can
// tally partially failed series.
func (a *App) persistBackfill(store *storage.Store, series string, rows []storage.Row) int {
	if len(rows) == 0 {
		a.Logger.Info().Str("series", series).Msg("no rows to backfill")
		return 0
	}
	if store == nil {
		a.Logger.Info().Str("series", series).Int("rows", len(rows)).Msg("dry-run: rows collected")
		return 0
	}
	if err := store.AppendMany(series, rows); err != nil {
		a.Logger.Error().Err(err).Str("series", series).Msg("failed to persist backfill rows")
		return 1
	}
	a.Logger.Info().Str("series", series).Int("rows", len(rows)).Msg("series backfilled")
	return 0
}

func clipRange(rows []storage.Row, start, end time.Time) []storage.Row {
	lo := start.Format(storage.DateLayout)
	hi := end.Format(storage.DateLayout)

	clipped := make([]storage.Row, 0, len(rows))
	for _, row := range rows {
		if row.Key < lo || row.Key > hi {
			continue
		}
		clipped = append(clipped, row)
	}
	return clipped
}
