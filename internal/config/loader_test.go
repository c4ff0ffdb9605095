package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/monitor-scheduler/internal/recurrence"
)

var monitorKeys = []string{
	"MONITOR_ENV_FILE",
	"MONITOR_HTTP_PORT",
	"MONITOR_SQLITE_DSN",
	"MONITOR_TIMEZONE",
	"MONITOR_MAX_SHIFT",
	"MONITOR_LATE_THRESHOLD",
	"MONITOR_EARLY_THRESHOLD",
	"MONITOR_MATCH_WINDOW",
	"MONITOR_UPDATE_ENFORCE_MAX_DURATION",
	"MONITOR_UPDATE_ENFORCE_NOT_PAST",
	"MONITOR_OVERNIGHT_POLICY",
	"MONITOR_REPORT_CRON",
	"MONITOR_LOG_LEVEL",
	"MONITOR_LOG_FORMAT",
}

// clearEnv blanks every key for the duration of the test. Empty values are
// treated as unset by the loader.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range monitorKeys {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.HTTPPort)
		assert.Equal(t, "monitor.db", cfg.SQLiteDSN)
		assert.False(t, cfg.UsesMemoryStore())
		assert.Equal(t, "America/Bogota", cfg.Timezone)
		assert.Equal(t, 12*time.Hour, cfg.MaxShift)
		assert.Equal(t, 5*time.Minute, cfg.LateThreshold)
		assert.Equal(t, 5*time.Minute, cfg.EarlyThreshold)
		assert.Equal(t, 2*time.Hour, cfg.MatchWindow)
		assert.False(t, cfg.UpdatePolicy.EnforceMaxDuration)
		assert.False(t, cfg.UpdatePolicy.EnforceNotPast)
		assert.Equal(t, recurrence.OvernightReject, cfg.OvernightPolicy)
		assert.Empty(t, cfg.ReportCron)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)

		_, offset := time.Date(2024, 1, 8, 12, 0, 0, 0, cfg.Calendar.Location()).Zone()
		assert.Equal(t, -5*60*60, offset)
	})

	t.Run("parses overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MONITOR_HTTP_PORT", "9090")
		t.Setenv("MONITOR_SQLITE_DSN", "memory:")
		t.Setenv("MONITOR_MAX_SHIFT", "8h")
		t.Setenv("MONITOR_LATE_THRESHOLD", "10m")
		t.Setenv("MONITOR_MATCH_WINDOW", "90m")
		t.Setenv("MONITOR_UPDATE_ENFORCE_MAX_DURATION", "true")
		t.Setenv("MONITOR_UPDATE_ENFORCE_NOT_PAST", "1")
		t.Setenv("MONITOR_OVERNIGHT_POLICY", "Rollover")
		t.Setenv("MONITOR_REPORT_CRON", "15 0 * * *")
		t.Setenv("MONITOR_LOG_LEVEL", "DEBUG")
		t.Setenv("MONITOR_LOG_FORMAT", "text")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.HTTPPort)
		assert.True(t, cfg.UsesMemoryStore())
		assert.Equal(t, 8*time.Hour, cfg.MaxShift)
		assert.Equal(t, 10*time.Minute, cfg.ReconcileOptions().LateThreshold)
		assert.Equal(t, 90*time.Minute, cfg.ReconcileOptions().MatchWindow)
		assert.True(t, cfg.UpdatePolicy.EnforceMaxDuration)
		assert.True(t, cfg.UpdatePolicy.EnforceNotPast)
		assert.Equal(t, recurrence.OvernightRollover, cfg.OvernightPolicy)
		assert.Equal(t, "15 0 * * *", cfg.ReportCron)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
	})

	t.Run("reports every invalid value together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MONITOR_HTTP_PORT", "http")
		t.Setenv("MONITOR_TIMEZONE", "Mars/Olympus")
		t.Setenv("MONITOR_LATE_THRESHOLD", "-5m")
		t.Setenv("MONITOR_UPDATE_ENFORCE_NOT_PAST", "maybe")
		t.Setenv("MONITOR_OVERNIGHT_POLICY", "split")
		t.Setenv("MONITOR_REPORT_CRON", "every day")
		t.Setenv("MONITOR_LOG_FORMAT", "xml")

		_, err := Load()
		require.Error(t, err)

		msg := err.Error()
		for _, key := range []string{
			"MONITOR_HTTP_PORT",
			"MONITOR_TIMEZONE",
			"MONITOR_LATE_THRESHOLD",
			"MONITOR_UPDATE_ENFORCE_NOT_PAST",
			"MONITOR_OVERNIGHT_POLICY",
			"MONITOR_REPORT_CRON",
			"MONITOR_LOG_FORMAT",
		} {
			assert.Contains(t, msg, key)
		}
		assert.NotContains(t, msg, "MONITOR_MAX_SHIFT")
		assert.Equal(t, 6, strings.Count(msg, "; "))
	})

	t.Run("reads an env file without overriding the environment", func(t *testing.T) {
		clearEnv(t)
		require.NoError(t, os.Unsetenv("MONITOR_MATCH_WINDOW"))
		t.Cleanup(func() { _ = os.Unsetenv("MONITOR_MATCH_WINDOW") })
		t.Setenv("MONITOR_HTTP_PORT", "7070")

		path := filepath.Join(t.TempDir(), "monitor.env")
		require.NoError(t, os.WriteFile(path, []byte("MONITOR_MATCH_WINDOW=45m\nMONITOR_HTTP_PORT=1111\n"), 0o600))
		t.Setenv("MONITOR_ENV_FILE", path)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 45*time.Minute, cfg.MatchWindow)
		assert.Equal(t, 7070, cfg.HTTPPort)
	})

	t.Run("missing explicit env file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MONITOR_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

		_, err := Load()
		require.Error(t, err)
	})
}
