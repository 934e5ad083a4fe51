package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Sites    SitesConfig    `mapstructure:"sites"`
	Consent  ConsentConfig  `mapstructure:"consent"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BrowserConfig configures every browser launch.
type BrowserConfig struct {
	Headless   bool     `mapstructure:"headless"`
	ExecPath   string   `mapstructure:"exec_path"`
	UserAgents []string `mapstructure:"user_agents"`
	Proxies    []string `mapstructure:"proxies"`
}

// AuditConfig holds the timeouts and delays of one audit unit.
type AuditConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	AnalysisTimeout   time.Duration `mapstructure:"analysis_timeout"`
	ConsentSettle     time.Duration `mapstructure:"consent_settle"`
	CountrySettle     time.Duration `mapstructure:"country_settle"`
	CookieSettle      time.Duration `mapstructure:"cookie_settle"`
	ScrollStep        int           `mapstructure:"scroll_step"`
	ScrollDelay       time.Duration `mapstructure:"scroll_delay"`
	ScrollSettle      time.Duration `mapstructure:"scroll_settle"`
	ThumbnailWidth    int           `mapstructure:"thumbnail_width"`
	Tags              []string      `mapstructure:"tags"`
	AxeScript         string        `mapstructure:"axe_script"`
	Resume            bool          `mapstructure:"resume"`
	CaptureWait       time.Duration `mapstructure:"capture_wait"`
}

// SessionsConfig configures the session state store.
type SessionsConfig struct {
	Dir          string   `mapstructure:"dir"`
	DenyPrefixes []string `mapstructure:"deny_prefixes"`
	DenyNames    []string `mapstructure:"deny_names"`
}

// ReportsConfig configures where run snapshots live.
type ReportsConfig struct {
	Dir string `mapstructure:"dir"`
}

// SitesConfig points at the site matrix file.
type SitesConfig struct {
	File string `mapstructure:"file"`
}

// ConsentConfig points at an optional consent catalog override.
type ConsentConfig struct {
	CatalogFile string `mapstructure:"catalog_file"`
}

// StoreConfig selects the score history backend: none, sqlite or postgres.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`
}

// RedisConfig enables the cross-process domain lock when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// ServerConfig configures the report server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Load reads configuration from an optional config.yaml and AUDITOR_* environment variables.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("AUDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agents", []string{})
	v.SetDefault("browser.proxies", []string{})

	v.SetDefault("audit.navigation_timeout", 5*time.Second)
	v.SetDefault("audit.analysis_timeout", 20*time.Second)
	v.SetDefault("audit.consent_settle", 2*time.Second)
	v.SetDefault("audit.country_settle", time.Second)
	v.SetDefault("audit.cookie_settle", 2*time.Second)
	v.SetDefault("audit.scroll_step", 1000)
	v.SetDefault("audit.scroll_delay", 500*time.Millisecond)
	v.SetDefault("audit.scroll_settle", time.Second)
	v.SetDefault("audit.thumbnail_width", 320)
	v.SetDefault("audit.tags", []string{"EN-301-549"})
	v.SetDefault("audit.axe_script", "node_modules/axe-core/axe.min.js")
	v.SetDefault("audit.resume", true)
	v.SetDefault("audit.capture_wait", 60*time.Second)

	v.SetDefault("sessions.dir", "cookies")
	v.SetDefault("sessions.deny_prefixes", []string{"ak"})
	v.SetDefault("sessions.deny_names", []string{"_abck", "bm_sv", "_uetsid", "_uetvid"})

	v.SetDefault("reports.dir", "reports")
	v.SetDefault("sites.file", "configs/sites.yaml")
	v.SetDefault("consent.catalog_file", "")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "reports/history.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 30*time.Minute)

	v.SetDefault("server.port", 8080)
}

// Validate rejects settings the audit cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver != "none" && c.Store.DatabaseURL == "" {
		return fmt.Errorf("config: store.database_url is required for driver %s", c.Store.Driver)
	}
	if c.Audit.NavigationTimeout <= 0 || c.Audit.AnalysisTimeout <= 0 {
		return fmt.Errorf("config: audit timeouts must be positive")
	}
	if c.Audit.ScrollStep <= 0 {
		return fmt.Errorf("config: audit.scroll_step must be positive")
	}
	if c.Reports.Dir == "" || c.Sessions.Dir == "" {
		return fmt.Errorf("config: reports.dir and sessions.dir are required")
	}
	return nil
}
