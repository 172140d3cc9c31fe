package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rate-monitor/internal/alerting"
	"rate-monitor/internal/health"
	"rate-monitor/internal/storage"
)

// Report builds the HTML report, writes it to disk, and optionally sends it
// through the alert channel.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	tracker := a.newTracker()

	html, err := a.newReportBuilder(store, tracker).Build(ctx)
	if err != nil {
		return err
	}

	path := opts.OutPath
	if path == "" {
		path = a.reportPath(time.Now().UTC())
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	a.Logger.Info().Str("path", path).Msg("report written")

	if opts.Send {
		return a.sendReport(ctx, path, html)
	}
	return nil
}

// buildAndPublish is the scheduled weekly report hook.
func (a *App) buildAndPublish(ctx context.Context, store *storage.Store, tracker *health.Tracker) error {
	html, err := a.newReportBuilder(store, tracker).Build(ctx)
	if err != nil {
		return err
	}

	path := a.reportPath(time.Now().UTC())
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	a.Logger.Info().Str("path", path).Msg("weekly report written")

	if a.Config.Alerting.Enabled {
		return a.sendReport(ctx, path, html)
	}
	return nil
}

func (a *App) sendReport(ctx context.Context, path string, html []byte) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return fmt.Errorf("no alert channel configured")
	}

	now := time.Now().UTC()
	note := alerting.Notification{
		When:    now,
		Subject: "Rate Monitor Report",
		Lines:   []string{fmt.Sprintf("Weekly interest rate report for %s attached.", now.Format(storage.DateLayout))},
	}
	if err := notifier.Notify(ctx, note); err != nil {
		a.Logger.Error().Err(err).Msg("failed to send report summary")
	}

	caption := fmt.Sprintf("Interest rate report %s", now.Format(storage.DateLayout))
	return notifier.SendDocument(ctx, filepath.Base(path), html, caption)
}

func (a *App) reportPath(now time.Time) string {
	name := fmt.Sprintf("rates_%s.html", now.Format(storage.DateLayout))
	return filepath.Join(a.Config.Storage.ReportsDir, name)
}
