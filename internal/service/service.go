package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rate-monitor/internal/alerting"
	"rate-monitor/internal/config"
	"rate-monitor/internal/fetcher"
	"rate-monitor/internal/health"
	"rate-monitor/internal/metrics"
	"rate-monitor/internal/scheduler"
	"rate-monitor/internal/storage"
)

// ReportFunc builds and publishes the periodic report.
type ReportFunc func(ctx context.Context) error

// Service orchestrates fetching, persistence, health tracking, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	fetchers  []fetcher.Fetcher
	store     *storage.Store
	health    *health.Tracker
	metrics   *metrics.Engine
	notifier  alerting.Notifier
	report    ReportFunc
	logger    zerolog.Logger

	alertsOn         bool
	failureThreshold int
	stalenessDays    int
	weeklyDay        time.Weekday
	now              func() time.Time
}

// New constructs the monitoring service.
func New(cfg *config.Config, sched *scheduler.Scheduler, fetchers []fetcher.Fetcher, store *storage.Store, tracker *health.Tracker, engine *metrics.Engine, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	weeklyDay, err := config.ParseWeekday(cfg.Report.WeeklyDay)
	if err != nil {
		weeklyDay = time.Sunday
	}

	return &Service{
		scheduler:        sched,
		fetchers:         fetchers,
		store:            store,
		health:           tracker,
		metrics:          engine,
		notifier:         notifier,
		logger:           logger.With().Str("component", "service").Logger(),
		alertsOn:         cfg.Alerting.Enabled,
		failureThreshold: cfg.Health.FailureThreshold,
		stalenessDays:    cfg.Health.StalenessDays,
		weeklyDay:        weeklyDay,
		now:              time.Now,
	}
}

// WithClock overrides the wall clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithReport installs the periodic report hook.
func (s *Service) WithReport(fn ReportFunc) *Service {
	s.report = fn
	return s
}

// Run begins the daily collection loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessDay)
}

// ProcessDay 执行单日采集逻辑。
func (s *Service) ProcessDay(ctx context.Context, day time.Time) error {
	if err := s.Collect(ctx); err != nil {
		return err
	}

	if s.report != nil && day.Weekday() == s.weeklyDay {
		if err := s.report(ctx); err != nil {
			s.logger.Error().Err(err).Time("day", day).Msg("weekly report failed")
		}
	}
	return nil
}

// Collect runs every fetcher once, persists the results, and dispatches alerts.
func (s *Service) Collect(ctx context.Context) error {
	for _, f := range s.fetchers {
		res := fetcher.Run(ctx, f)
		failures := s.health.RecordResult(res.Source, res.OK())

		if !res.OK() {
			s.logger.Warn().Err(res.Err).
				Str("source", res.Source).
				Int("consecutive_failures", failures).
				Msg("fetch failed")
			continue
		}
		if len(res.Rows) == 0 {
			s.logger.Info().Str("source", res.Source).Msg("no new observations")
			continue
		}

		if err := s.persist(res); err != nil {
			s.logger.Error().Err(err).
				Str("source", res.Source).
				Str("series", res.SeriesName).
				Msg("failed to persist observations")
			continue
		}

		s.logger.Info().Str("source", res.Source).
			Str("series", res.SeriesName).
			Int("rows", len(res.Rows)).
			Msg("observations recorded")
	}

	s.dispatchAlerts(ctx)
	return nil
}

func (s *Service) persist(res fetcher.Result) error {
	if res.KeyColumn == storage.PromoMonthColumn {
		for _, row := range res.Rows {
			if err := s.store.UpsertByKey(res.SeriesName, res.KeyColumn, row); err != nil {
				return err
			}
		}
		return nil
	}
	return s.store.AppendMany(res.SeriesName, res.Rows)
}

func (s *Service) dispatchAlerts(ctx context.Context) {
	lines := make([]string, 0)

	for _, alert := range s.health.Alerts(s.failureThreshold) {
		lines = append(lines, fmt.Sprintf("%s: %d consecutive failures", alert.Source, alert.ConsecutiveFailures))
	}

	stale := s.metrics.Staleness(fetcher.DailySeriesNames(s.fetchers), s.stalenessDays)
	for _, sl := range stale {
		if sl.GapDays == metrics.NoDataGap {
			lines = append(lines, fmt.Sprintf("%s: %s", sl.Series, metrics.NoDataLabel))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: stale for %d days (last %s)", sl.Series, sl.GapDays, sl.LastDate))
	}

	if len(lines) == 0 {
		return
	}

	for _, line := range lines {
		s.logger.Warn().Str("alert", line).Msg("data quality alert")
	}

	if !s.alertsOn || s.notifier == nil {
		return
	}

	note := alerting.Notification{
		When:    s.now().UTC(),
		Subject: "Rate Monitor Alert",
		Lines:   lines,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Msg("failed to dispatch alert")
	}
}
