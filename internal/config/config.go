package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"rate-monitor/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Health    HealthConfig    `mapstructure:"health"`
	Report    ReportConfig    `mapstructure:"report"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StorageConfig locates the on-disk series and report directories.
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	ReportsDir string `mapstructure:"reports_dir"`
}

// SchedulerConfig governs collection cadence.
type SchedulerConfig struct {
	RunHour      int           `mapstructure:"run_hour"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// SourcesConfig covers external rate source access.
type SourcesConfig struct {
	HKABBaseURL       string        `mapstructure:"hkab_base_url"`
	FREDBaseURL       string        `mapstructure:"fred_base_url"`
	FREDAPIKey        string        `mapstructure:"fred_api_key"`
	NYFedBaseURL      string        `mapstructure:"nyfed_base_url"`
	TreasuryBaseURL   string        `mapstructure:"treasury_base_url"`
	ESaverURLTemplate string        `mapstructure:"esaver_url_template"`
	FedWatchURL       string        `mapstructure:"fedwatch_url"`
	HKMAForwardURL    string        `mapstructure:"hkma_forward_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// HealthConfig sets failure and freshness thresholds.
type HealthConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	StalenessDays    int `mapstructure:"staleness_days"`
}

// ReportConfig shapes the generated HTML report.
type ReportConfig struct {
	WeeklyDay   string `mapstructure:"weekly_day"`
	ShortWindow int    `mapstructure:"short_window_days"`
	LongWindow  int    `mapstructure:"long_window_days"`
	HistoryDays int    `mapstructure:"chart_history_days"`
	SummaryDays int    `mapstructure:"summary_window_days"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RATEWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ratewatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.reports_dir", "reports")

	v.SetDefault("scheduler.run_hour", 8)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("sources.hkab_base_url", "https://www.hkab.org.hk/api/hibor")
	v.SetDefault("sources.fred_base_url", "https://api.stlouisfed.org/fred/series/observations")
	v.SetDefault("sources.nyfed_base_url", "https://markets.newyorkfed.org/api/rates/secured/sofr")
	v.SetDefault("sources.treasury_base_url", "https://home.treasury.gov/resource-center/data-chart-center/interest-rates/daily-treasury-rates.csv")
	v.SetDefault("sources.esaver_url_template", "https://www.dbs.com.hk/iwov-resources/pdf/deposits/%s_eSaver_ETB_Generic_TC.pdf")
	v.SetDefault("sources.fedwatch_url", "https://www.cmegroup.com/services/fed-funds-implied/")
	v.SetDefault("sources.hkma_forward_url", "https://api.hkma.gov.hk/public/market-data-and-statistics/monthly-statistical-bulletin/er-ir/hkd-fer-daily")
	v.SetDefault("sources.request_timeout", "30s")
	v.SetDefault("sources.user_agent", "ratewatcher/1.0")

	v.SetDefault("health.failure_threshold", 3)
	v.SetDefault("health.staleness_days", 3)

	v.SetDefault("report.weekly_day", "Sunday")
	v.SetDefault("report.short_window_days", 7)
	v.SetDefault("report.long_window_days", 30)
	v.SetDefault("report.chart_history_days", 180)
	v.SetDefault("report.summary_window_days", 30)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if c.Scheduler.RunHour < 0 || c.Scheduler.RunHour > 23 {
		return fmt.Errorf("scheduler.run_hour must be between 0 and 23")
	}
	if c.Health.FailureThreshold <= 0 {
		return fmt.Errorf("health.failure_threshold must be greater than zero")
	}
	if c.Health.StalenessDays < 0 {
		return fmt.Errorf("health.staleness_days cannot be negative")
	}
	if c.Report.ShortWindow <= 0 || c.Report.LongWindow <= 0 {
		return fmt.Errorf("report windows must be greater than zero")
	}
	if _, err := ParseWeekday(c.Report.WeeklyDay); err != nil {
		return err
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ParseWeekday resolves a weekday name such as "Sunday".
func ParseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("report.weekly_day %q is not a weekday name", name)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
