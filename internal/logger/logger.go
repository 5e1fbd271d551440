package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger 创建新的Logger实例
// level: "debug", "info", "warn", "error" (默认: "info")
// format: "json" 或 "console" (默认: "json")
// serviceName: 服务名称，如 "wisefido-radmon"
func NewLogger(level string, format string, serviceName string) (*zap.Logger, error) {
	l, _, err := NewWithLevel(level, format, serviceName)
	return l, err
}

// NewWithLevel 同 NewLogger，同时返回可在运行时调整的级别（实现 http.Handler）
func NewWithLevel(level string, format string, serviceName string) (*zap.Logger, zap.AtomicLevel, error) {
	atom := zap.NewAtomicLevelAt(ParseLevel(level))

	cfg := buildConfig(format)
	cfg.Level = atom

	baseLogger, err := cfg.Build()
	if err != nil {
		return nil, atom, err
	}

	fields := make([]zap.Field, 0, 2)
	if serviceName != "" {
		fields = append(fields, zap.String("service_name", serviceName))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		fields = append(fields, zap.String("hostname", hostname))
	}
	return baseLogger.With(fields...), atom, nil
}

func buildConfig(format string) zap.Config {
	if format == "console" {
		// 开发模式配置（控制台输出）
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}

	// 生产模式配置（JSON输出）
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	// 不采样，报警日志逐条保留
	cfg.Sampling = nil
	return cfg
}

// ParseLevel 解析日志级别（大小写不敏感），未知级别按 info 处理
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
