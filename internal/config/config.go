package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // analytics.timezone must resolve on hosts without zoneinfo

	"github.com/claude/nextrep/internal/models"
	"github.com/claude/nextrep/internal/scoring"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Log       LogConfig       `yaml:"log"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type StoreConfig struct {
	Driver string `yaml:"driver"`
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type AnalyticsConfig struct {
	// Timezone names the IANA zone that decides calendar days; "Local" or
	// empty uses the host zone.
	Timezone string `yaml:"timezone"`
	Scoring  string `yaml:"scoring"`
}

// PipelineConfig tunes the derivation pipeline. Zero values keep its defaults.
type PipelineConfig struct {
	IdleGrace     time.Duration `yaml:"idle_grace"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// BootstrapConfig lists plans created when the store starts out empty.
type BootstrapConfig struct {
	Plans []PlanConfig `yaml:"plans"`
}

type PlanConfig struct {
	Name      string           `yaml:"name"`
	Days      []string         `yaml:"days"`
	Exercises []ExerciseConfig `yaml:"exercises"`
}

type ExerciseConfig struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Series string `yaml:"series"`
	Reps   string `yaml:"reps"`
	RIR    string `yaml:"rir"`
	Tempo  string `yaml:"tempo"`
	Rest   string `yaml:"rest"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location resolves the configured time zone.
func (a AnalyticsConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || strings.EqualFold(a.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// SlogLevel maps the configured level name; unknown names are rejected by validate.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Drafts converts the configured plans into plan drafts.
func (b BootstrapConfig) Drafts() ([]models.PlanDraft, error) {
	drafts := make([]models.PlanDraft, 0, len(b.Plans))
	for _, p := range b.Plans {
		d := models.PlanDraft{Name: p.Name}
		for _, name := range p.Days {
			day, err := models.ParseWeekday(name)
			if err != nil {
				return nil, fmt.Errorf("plan %q: %w", p.Name, err)
			}
			d.Days = append(d.Days, day)
		}
		for _, e := range p.Exercises {
			kind := models.ExerciseKind(strings.ToUpper(e.Kind))
			switch kind {
			case "", models.KindRepsAndWeight, models.KindTime:
			default:
				return nil, fmt.Errorf("plan %q: exercise %q: unknown kind %q", p.Name, e.Name, e.Kind)
			}
			d.Exercises = append(d.Exercises, models.ExerciseDraft{
				Name:   e.Name,
				Kind:   kind,
				Series: e.Series,
				Reps:   e.Reps,
				RIR:    e.RIR,
				Tempo:  e.Tempo,
				Rest:   e.Rest,
			})
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func defaults() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Store:     StoreConfig{Driver: DriverSQLite, Path: "data/nextrep.db"},
		Tailscale: TailscaleConfig{Hostname: "nextrep", StateDir: "data/tsnet"},
		Analytics: AnalyticsConfig{Timezone: "Local", Scoring: "volume"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix NEXTREP_ and underscore-separated paths:
//
//	NEXTREP_SERVER_HOST, NEXTREP_SERVER_PORT,
//	NEXTREP_STORE_DRIVER, NEXTREP_STORE_PATH,
//	NEXTREP_DB_HOST, NEXTREP_DB_PORT, NEXTREP_DB_NAME,
//	NEXTREP_DB_USER, NEXTREP_DB_PASSWORD, NEXTREP_DB_SSLMODE,
//	NEXTREP_AUTH_API_KEY,
//	NEXTREP_TS_ENABLED, NEXTREP_TS_HOSTNAME, NEXTREP_TS_STATE_DIR,
//	NEXTREP_TIMEZONE, NEXTREP_SCORING, NEXTREP_LOG_LEVEL,
//	NEXTREP_PIPELINE_IDLE_GRACE, NEXTREP_PIPELINE_RETRY_INTERVAL
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString("NEXTREP_SERVER_HOST", &cfg.Server.Host)
	setInt("NEXTREP_SERVER_PORT", &cfg.Server.Port)
	setString("NEXTREP_STORE_DRIVER", &cfg.Store.Driver)
	setString("NEXTREP_STORE_PATH", &cfg.Store.Path)
	setString("NEXTREP_DB_HOST", &cfg.Database.Host)
	setInt("NEXTREP_DB_PORT", &cfg.Database.Port)
	setString("NEXTREP_DB_NAME", &cfg.Database.Name)
	setString("NEXTREP_DB_USER", &cfg.Database.User)
	setString("NEXTREP_DB_PASSWORD", &cfg.Database.Password)
	setString("NEXTREP_DB_SSLMODE", &cfg.Database.SSLMode)
	setString("NEXTREP_AUTH_API_KEY", &cfg.Auth.APIKey)
	if v := os.Getenv("NEXTREP_TS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	setString("NEXTREP_TS_HOSTNAME", &cfg.Tailscale.Hostname)
	setString("NEXTREP_TS_STATE_DIR", &cfg.Tailscale.StateDir)
	setString("NEXTREP_TIMEZONE", &cfg.Analytics.Timezone)
	setString("NEXTREP_SCORING", &cfg.Analytics.Scoring)
	setString("NEXTREP_LOG_LEVEL", &cfg.Log.Level)
	setDuration("NEXTREP_PIPELINE_IDLE_GRACE", &cfg.Pipeline.IdleGrace)
	setDuration("NEXTREP_PIPELINE_RETRY_INTERVAL", &cfg.Pipeline.RetryInterval)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of memory, sqlite, postgres", c.Store.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if _, err := scoring.ByName(c.Analytics.Scoring); err != nil {
		return fmt.Errorf("analytics.scoring: %w", err)
	}
	if _, err := c.Analytics.Location(); err != nil {
		return fmt.Errorf("analytics.timezone: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Pipeline.IdleGrace < 0 || c.Pipeline.RetryInterval < 0 {
		return errors.New("pipeline durations must not be negative")
	}
	if _, err := c.Bootstrap.Drafts(); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return nil
}
