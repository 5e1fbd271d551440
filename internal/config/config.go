package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// NATSConfig NATS 配置（实时数据推送给其它服务）
type NATSConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string // 如 "radmon"，发布到 radmon.reading / radmon.chart ...
}

// Config 辐射监测服务配置
type Config struct {
	HTTP struct {
		Addr string
	}

	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	NATS     NATSConfig

	// 监测服务特定配置
	Radmon struct {
		// 持久化后端：redis / postgres / memory
		Storage string

		// 信号来源：sim（模拟）/ mqtt（设备上报）
		Source        string
		Seed          int64         // 模拟信号随机种子，0 表示按时间生成
		ReadingMaxAge time.Duration // 设备读数过期时间，超过后按 0 处理，默认 10 秒

		TickInterval         time.Duration // 采样间隔，默认 1 秒
		MinSessionSeconds    int           // 记录历史所需的最短会话时长（秒），默认 10
		HistoryCapacity      int           // 历史记录上限，默认 100
		HistoryPageSize      int           // 历史页面默认显示条数，默认 20
		ChartPoints          int           // 图表滚动窗口点数，默认 60
		StabilizationSeconds int           // 稳定时间（秒），默认 240

		BannerDisplay    time.Duration // 报警横幅显示时长，默认 3 秒
		BannerTransition time.Duration // 横幅移除过渡时长，默认 300 毫秒
		CalibrationDelay time.Duration // 自动校准耗时，默认 2 秒

		// 默认设置（存储中没有设置时使用）
		Defaults struct {
			CautionThreshold float64
			DangerThreshold  float64
			Sensitivity      float64
			SoundAlerts      bool
			VibrationAlerts  bool
		}

		// Redis 键配置
		Cache struct {
			SettingsKey string // 设置键，如 "radmon:settings"
			HistoryKey  string // 历史键，如 "radmon:history"
			LiveKey     string // 实时状态键，如 "radmon:live"
			LiveTTL     int    // 实时状态 TTL（秒），默认 10 秒
			AlertStream string // 报警事件流，如 "radmon:alerts:stream"
		}

		// MQTT 主题
		Topics struct {
			Reading string // 设备读数主题，如 "radmon/+/reading"
			Alert   string // 报警命令主题，如 "radmon/alerts"
		}

		WebhookURL string // 报警 webhook（为空则不启用）
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "radmon")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "5"), 5)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "2"), 2)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = parseBool(getEnv("MQTT_ENABLED", "false"), false)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-radmon")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.NATS.Enabled = parseBool(getEnv("NATS_ENABLED", "false"), false)
	cfg.NATS.URL = getEnv("NATS_URL", "nats://127.0.0.1:4222")
	cfg.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", "radmon")

	// 监测服务配置
	cfg.Radmon.Storage = getEnv("RADMON_STORAGE", "redis")
	cfg.Radmon.Source = getEnv("RADMON_SOURCE", "sim")
	cfg.Radmon.Seed = int64(parseInt(getEnv("RADMON_SEED", "0"), 0))
	cfg.Radmon.ReadingMaxAge = time.Duration(parseInt(getEnv("RADMON_READING_MAX_AGE_SEC", "10"), 10)) * time.Second

	cfg.Radmon.TickInterval = time.Second
	cfg.Radmon.MinSessionSeconds = 10
	cfg.Radmon.HistoryCapacity = parseInt(getEnv("RADMON_HISTORY_CAPACITY", "100"), 100)
	cfg.Radmon.HistoryPageSize = parseInt(getEnv("RADMON_HISTORY_PAGE_SIZE", "20"), 20)
	cfg.Radmon.ChartPoints = parseInt(getEnv("RADMON_CHART_POINTS", "60"), 60)
	cfg.Radmon.StabilizationSeconds = 240

	cfg.Radmon.BannerDisplay = 3 * time.Second
	cfg.Radmon.BannerTransition = 300 * time.Millisecond
	cfg.Radmon.CalibrationDelay = 2 * time.Second

	cfg.Radmon.Defaults.CautionThreshold = parseFloat(getEnv("RADMON_CAUTION_THRESHOLD", "0.1"), 0.1)
	cfg.Radmon.Defaults.DangerThreshold = parseFloat(getEnv("RADMON_DANGER_THRESHOLD", "1.0"), 1.0)
	cfg.Radmon.Defaults.Sensitivity = parseFloat(getEnv("RADMON_SENSITIVITY", "1.0"), 1.0)
	cfg.Radmon.Defaults.SoundAlerts = parseBool(getEnv("RADMON_SOUND_ALERTS", "true"), true)
	cfg.Radmon.Defaults.VibrationAlerts = parseBool(getEnv("RADMON_VIBRATION_ALERTS", "true"), true)

	cfg.Radmon.Cache.SettingsKey = getEnv("CACHE_SETTINGS_KEY", "radmon:settings")
	cfg.Radmon.Cache.HistoryKey = getEnv("CACHE_HISTORY_KEY", "radmon:history")
	cfg.Radmon.Cache.LiveKey = getEnv("CACHE_LIVE_KEY", "radmon:live")
	cfg.Radmon.Cache.LiveTTL = 10 // 10秒
	cfg.Radmon.Cache.AlertStream = getEnv("CACHE_ALERT_STREAM", "radmon:alerts:stream")

	cfg.Radmon.Topics.Reading = getEnv("MQTT_TOPIC_READING", "radmon/+/reading")
	cfg.Radmon.Topics.Alert = getEnv("MQTT_TOPIC_ALERT", "radmon/alerts")

	cfg.Radmon.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
