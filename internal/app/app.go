package app

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"rate-monitor/internal/alerting"
	"rate-monitor/internal/config"
	"rate-monitor/internal/fetcher"
	"rate-monitor/internal/health"
	"rate-monitor/internal/metrics"
	"rate-monitor/internal/report"
	"rate-monitor/internal/scheduler"
	"rate-monitor/internal/service"
	"rate-monitor/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetchers() []fetcher.Fetcher {
	src := a.Config.Sources

	hibor := fetcher.NewHIBOR(fetcher.HIBOROptions{
		BaseURL:   src.HKABBaseURL,
		Timeout:   src.RequestTimeout,
		UserAgent: src.UserAgent,
	}, a.Logger)

	fred := fetcher.NewFRED(fetcher.FREDOptions{
		BaseURL: src.FREDBaseURL,
		APIKey:  src.FREDAPIKey,
		Timeout: src.RequestTimeout,
	}, a.Logger)

	sofr := fetcher.NewSOFR(fetcher.SOFROptions{
		BaseURL: src.NYFedBaseURL,
		Timeout: src.RequestTimeout,
	}, a.Logger)

	treasury := fetcher.NewTreasury(fetcher.TreasuryOptions{
		BaseURL:   src.TreasuryBaseURL,
		Timeout:   src.RequestTimeout,
		UserAgent: src.UserAgent,
	}, a.Logger)

	esaver := fetcher.NewESaver(fetcher.ESaverOptions{
		URLTemplate: src.ESaverURLTemplate,
		Timeout:     src.RequestTimeout,
		UserAgent:   src.UserAgent,
	}, a.Logger)

	return []fetcher.Fetcher{hibor, fred, sofr, treasury, esaver}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore() (*storage.Store, error) {
	return storage.NewStore(a.Config.Storage.DataDir, a.Logger)
}

func (a *App) newTracker() *health.Tracker {
	return health.NewTracker(filepath.Join(a.Config.Storage.DataDir, "fetch_health.json"), a.Logger)
}

func (a *App) newEngine(store *storage.Store) *metrics.Engine {
	return metrics.NewEngine(store, a.Logger)
}

func (a *App) newReportBuilder(store *storage.Store, tracker *health.Tracker) *report.Builder {
	src := a.Config.Sources
	opts := report.Options{
		ShortWindowDays:  a.Config.Report.ShortWindow,
		LongWindowDays:   a.Config.Report.LongWindow,
		HistoryDays:      a.Config.Report.HistoryDays,
		SummaryDays:      a.Config.Report.SummaryDays,
		StalenessDays:    a.Config.Health.StalenessDays,
		FailureThreshold: a.Config.Health.FailureThreshold,
		DailySeries:      fetcher.DailySeriesNames(a.newFetchers()),
	}

	fedwatch := fetcher.NewFedWatch(fetcher.FedWatchOptions{
		URL:       src.FedWatchURL,
		Timeout:   src.RequestTimeout,
		UserAgent: src.UserAgent,
	}, a.Logger)
	forwards := fetcher.NewForwards(fetcher.ForwardsOptions{
		BaseURL:   src.HKMAForwardURL,
		Timeout:   src.RequestTimeout,
		UserAgent: src.UserAgent,
	}, a.Logger)

	return report.NewBuilder(store, a.newEngine(store), tracker, opts, a.Logger).
		WithForecasts(fedwatch, forwards)
}

func (a *App) newService(store *storage.Store, tracker *health.Tracker, sched *scheduler.Scheduler) *service.Service {
	return service.New(a.Config, sched, a.newFetchers(), store, tracker, a.newEngine(store), a.newNotifier(), a.Logger)
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	tracker := a.newTracker()

	sched := scheduler.New(scheduler.Options{
		RunHour:      a.Config.Scheduler.RunHour,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := a.newService(store, tracker, sched)
	svc.WithReport(func(ctx context.Context) error {
		return a.buildAndPublish(ctx, store, tracker)
	})

	a.Logger.Info().Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// Collect runs one fetch cycle and exits.
func (a *App) Collect(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	svc := a.newService(store, a.newTracker(), nil)
	return svc.Collect(ctx)
}

// ExportOptions hold parameters for exporting a stored series.
type ExportOptions struct {
	Series    string
	Columns   []string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Series string
	Limit  int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}

// ReportOptions configure report generation.
type ReportOptions struct {
	OutPath string
	Send    bool
}
