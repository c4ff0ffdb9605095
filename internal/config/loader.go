// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/example/monitor-scheduler/internal/interval"
	"github.com/example/monitor-scheduler/internal/reconcile"
	"github.com/example/monitor-scheduler/internal/recurrence"
	"github.com/example/monitor-scheduler/internal/scheduler"
)

// EnvPrefix is prepended to every key, so http_port is read from MONITOR_HTTP_PORT.
const EnvPrefix = "MONITOR"

// MemoryDSN selects the in-memory store instead of SQLite.
const MemoryDSN = "memory:"

// Config captures environment driven configuration values for the monitor service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string

	Timezone string
	Calendar interval.Calendar

	MaxShift       time.Duration
	LateThreshold  time.Duration
	EarlyThreshold time.Duration
	MatchWindow    time.Duration

	UpdatePolicy    scheduler.UpdatePolicy
	OvernightPolicy recurrence.OvernightPolicy

	// ReportCron is a standard five field cron spec. Empty disables the job.
	ReportCron string

	LogLevel  slog.Level
	LogFormat string
}

// UsesMemoryStore reports whether the DSN selects the in-memory store.
func (c Config) UsesMemoryStore() bool {
	return strings.EqualFold(strings.TrimSpace(c.SQLiteDSN), MemoryDSN)
}

// ReconcileOptions returns the thresholds for the reconciliation engine.
func (c Config) ReconcileOptions() reconcile.Options {
	return reconcile.Options{
		LateThreshold:  c.LateThreshold,
		EarlyThreshold: c.EarlyThreshold,
		MatchWindow:    c.MatchWindow,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")
	v.SetDefault("sqlite_dsn", "monitor.db")
	v.SetDefault("timezone", interval.BogotaZone)
	v.SetDefault("max_shift", scheduler.DefaultMaxDuration.String())
	v.SetDefault("late_threshold", reconcile.DefaultLateThreshold.String())
	v.SetDefault("early_threshold", reconcile.DefaultEarlyThreshold.String())
	v.SetDefault("match_window", reconcile.DefaultMatchWindow.String())
	v.SetDefault("update_enforce_max_duration", "false")
	v.SetDefault("update_enforce_not_past", "false")
	v.SetDefault("overnight_policy", "reject")
	v.SetDefault("report_cron", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads an optional .env file (MONITOR_ENV_FILE overrides the path)
// and then the process environment. Every invalid value is reported in a
// single error.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	v.AutomaticEnv()

	return parse(v)
}

// loadDotEnv never overrides variables already present in the environment.
func loadDotEnv() error {
	path := strings.TrimSpace(os.Getenv(EnvPrefix + "_ENV_FILE"))
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("config: %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

type parser struct {
	v       *viper.Viper
	invalid []string
}

func (p *parser) reject(key, value, reason string) {
	p.invalid = append(p.invalid, fmt.Sprintf("%s_%s=%q (%s)", EnvPrefix, strings.ToUpper(key), value, reason))
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) port(key string) int {
	raw := p.str(key)
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		p.reject(key, raw, "se esperaba un puerto entre 1 y 65535")
		return 0
	}
	return port
}

func (p *parser) duration(key string) time.Duration {
	raw := p.str(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		p.reject(key, raw, "se esperaba una duración positiva como 5m o 12h")
		return 0
	}
	return d
}

func (p *parser) boolean(key string) bool {
	raw := p.str(key)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.reject(key, raw, "se esperaba true o false")
		return false
	}
	return b
}

func parse(v *viper.Viper) (Config, error) {
	p := &parser{v: v}

	cfg := Config{
		HTTPPort:       p.port("http_port"),
		SQLiteDSN:      p.str("sqlite_dsn"),
		Timezone:       p.str("timezone"),
		MaxShift:       p.duration("max_shift"),
		LateThreshold:  p.duration("late_threshold"),
		EarlyThreshold: p.duration("early_threshold"),
		MatchWindow:    p.duration("match_window"),
		UpdatePolicy: scheduler.UpdatePolicy{
			EnforceMaxDuration: p.boolean("update_enforce_max_duration"),
			EnforceNotPast:     p.boolean("update_enforce_not_past"),
		},
		ReportCron: p.str("report_cron"),
		LogFormat:  strings.ToLower(p.str("log_format")),
	}

	if cfg.SQLiteDSN == "" {
		p.reject("sqlite_dsn", "", "no puede estar vacío")
	}

	cal, err := interval.LoadCalendar(cfg.Timezone)
	if err != nil {
		p.reject("timezone", cfg.Timezone, "zona horaria desconocida")
	}
	cfg.Calendar = cal

	policy, err := recurrence.ParseOvernightPolicy(p.str("overnight_policy"))
	if err != nil {
		p.reject("overnight_policy", p.str("overnight_policy"), "se esperaba reject o rollover")
	}
	cfg.OvernightPolicy = policy

	if cfg.ReportCron != "" {
		if _, err := cron.ParseStandard(cfg.ReportCron); err != nil {
			p.reject("report_cron", cfg.ReportCron, "expresión cron inválida")
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(p.str("log_level"))); err != nil {
		p.reject("log_level", p.str("log_level"), "se esperaba debug, info, warn o error")
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		p.reject("log_format", cfg.LogFormat, "se esperaba json o text")
	}

	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("valores de configuración inválidos: %s", strings.Join(p.invalid, "; "))
	}
	return cfg, nil
}
