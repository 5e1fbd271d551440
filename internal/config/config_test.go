package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "radmon", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.False(t, cfg.MQTT.Enabled)
	assert.False(t, cfg.NATS.Enabled)

	assert.Equal(t, "redis", cfg.Radmon.Storage)
	assert.Equal(t, "sim", cfg.Radmon.Source)
	assert.Equal(t, time.Second, cfg.Radmon.TickInterval)
	assert.Equal(t, 10, cfg.Radmon.MinSessionSeconds)
	assert.Equal(t, 100, cfg.Radmon.HistoryCapacity)
	assert.Equal(t, 20, cfg.Radmon.HistoryPageSize)
	assert.Equal(t, 60, cfg.Radmon.ChartPoints)
	assert.Equal(t, 240, cfg.Radmon.StabilizationSeconds)
	assert.Equal(t, 3*time.Second, cfg.Radmon.BannerDisplay)
	assert.Equal(t, 300*time.Millisecond, cfg.Radmon.BannerTransition)
	assert.Equal(t, 2*time.Second, cfg.Radmon.CalibrationDelay)

	assert.Equal(t, 0.1, cfg.Radmon.Defaults.CautionThreshold)
	assert.Equal(t, 1.0, cfg.Radmon.Defaults.DangerThreshold)
	assert.Equal(t, 1.0, cfg.Radmon.Defaults.Sensitivity)
	assert.True(t, cfg.Radmon.Defaults.SoundAlerts)
	assert.True(t, cfg.Radmon.Defaults.VibrationAlerts)

	assert.Equal(t, "radmon:settings", cfg.Radmon.Cache.SettingsKey)
	assert.Equal(t, "radmon:history", cfg.Radmon.Cache.HistoryKey)
	assert.Equal(t, "radmon:live", cfg.Radmon.Cache.LiveKey)
	assert.Equal(t, 10, cfg.Radmon.Cache.LiveTTL)
	assert.Equal(t, "radmon:alerts:stream", cfg.Radmon.Cache.AlertStream)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "6543")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("RADMON_STORAGE", "postgres")
	os.Setenv("RADMON_SOURCE", "mqtt")
	os.Setenv("RADMON_CAUTION_THRESHOLD", "0.25")
	os.Setenv("RADMON_SOUND_ALERTS", "false")
	os.Setenv("MQTT_ENABLED", "true")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "postgres", cfg.Radmon.Storage)
	assert.Equal(t, "mqtt", cfg.Radmon.Source)
	assert.Equal(t, 0.25, cfg.Radmon.Defaults.CautionThreshold)
	assert.False(t, cfg.Radmon.Defaults.SoundAlerts)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// 清理环境变量
	os.Clearenv()
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PORT", "not-a-port")
	os.Setenv("RADMON_DANGER_THRESHOLD", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 1.0, cfg.Radmon.Defaults.DangerThreshold)

	os.Clearenv()
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "radmon", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=radmon sslmode=disable", c.GetDSN())
}

func TestGetEnv(t *testing.T) {
	os.Clearenv()
	value := getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "default-value", value)

	os.Setenv("TEST_KEY", "env-value")
	value = getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "env-value", value)

	os.Unsetenv("TEST_KEY")
}
