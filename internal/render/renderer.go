package render

import (
	"time"

	"wisefido-radmon/internal/models"

	"go.uber.org/zap"
)

// Renderer 实时数据的推送目标；只接收快照，从不回读
type Renderer interface {
	OnReadingUpdated(value float64, severity models.Severity)
	OnChartFrame(frame models.ChartFrame)
	OnElapsedUpdated(seconds int)
	OnReliabilityUpdated(reliability models.Reliability)
	OnBatteryUpdated(percent int)
	OnHistoryUpdated(records []models.HistoryRecord, stats models.HistoryStats)
	OnSessionStateChanged(state models.LiveState)
	OnStabilizationUpdated(remainingSeconds int)
}

// 更新类型
const (
	TypeReading       = "reading"
	TypeChart         = "chart"
	TypeElapsed       = "elapsed"
	TypeReliability   = "reliability"
	TypeBattery       = "battery"
	TypeHistory       = "history"
	TypeSession       = "session"
	TypeStabilization = "stabilization"
)

// Update 一次推送的消息体
type Update struct {
	Type    string      `json:"type"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}

// ReadingPayload 读数更新
type ReadingPayload struct {
	Value    float64         `json:"value"`
	Severity models.Severity `json:"severity"`
	Label    string          `json:"label"`
	Color    string          `json:"color"`
}

// ElapsedPayload 计时更新
type ElapsedPayload struct {
	Seconds int    `json:"seconds"`
	Display string `json:"display"` // MM:SS
}

// ReliabilityPayload 可信度更新
type ReliabilityPayload struct {
	Percent   int    `json:"percent"`
	Available bool   `json:"available"`
	Display   string `json:"display"` // "76%" 或 "--"
}

// HistoryPayload 历史更新
type HistoryPayload struct {
	Records []models.HistoryRecord `json:"records"`
	Stats   models.HistoryStats    `json:"stats"`
}

// Multi 扇出到多个 Renderer
type Multi []Renderer

func (m Multi) OnReadingUpdated(value float64, severity models.Severity) {
	for _, r := range m {
		r.OnReadingUpdated(value, severity)
	}
}

func (m Multi) OnChartFrame(frame models.ChartFrame) {
	for _, r := range m {
		r.OnChartFrame(frame)
	}
}

func (m Multi) OnElapsedUpdated(seconds int) {
	for _, r := range m {
		r.OnElapsedUpdated(seconds)
	}
}

func (m Multi) OnReliabilityUpdated(reliability models.Reliability) {
	for _, r := range m {
		r.OnReliabilityUpdated(reliability)
	}
}

func (m Multi) OnBatteryUpdated(percent int) {
	for _, r := range m {
		r.OnBatteryUpdated(percent)
	}
}

func (m Multi) OnHistoryUpdated(records []models.HistoryRecord, stats models.HistoryStats) {
	for _, r := range m {
		r.OnHistoryUpdated(records, stats)
	}
}

func (m Multi) OnSessionStateChanged(state models.LiveState) {
	for _, r := range m {
		r.OnSessionStateChanged(state)
	}
}

func (m Multi) OnStabilizationUpdated(remainingSeconds int) {
	for _, r := range m {
		r.OnStabilizationUpdated(remainingSeconds)
	}
}

// LogRenderer 把更新写入 debug 日志
type LogRenderer struct {
	logger *zap.Logger
}

func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	return &LogRenderer{logger: logger}
}

func (l *LogRenderer) OnReadingUpdated(value float64, severity models.Severity) {
	l.logger.Debug("Reading updated",
		zap.Float64("value", value),
		zap.String("severity", severity.String()),
	)
}

func (l *LogRenderer) OnChartFrame(frame models.ChartFrame) {
	l.logger.Debug("Chart frame", zap.Int("points", len(frame.Points)), zap.Float64("scale_max", frame.ScaleMax))
}

func (l *LogRenderer) OnElapsedUpdated(seconds int) {}

func (l *LogRenderer) OnReliabilityUpdated(reliability models.Reliability) {
	l.logger.Debug("Reliability updated", zap.String("reliability", reliability.String()))
}

func (l *LogRenderer) OnBatteryUpdated(percent int) {}

func (l *LogRenderer) OnHistoryUpdated(records []models.HistoryRecord, stats models.HistoryStats) {
	l.logger.Info("History updated",
		zap.Int("record_count", stats.Count),
		zap.Float64("average", stats.Average),
		zap.Float64("max", stats.Max),
	)
}

func (l *LogRenderer) OnSessionStateChanged(state models.LiveState) {
	l.logger.Info("Session state changed",
		zap.Bool("active", state.Active),
		zap.String("elapsed", state.Elapsed),
	)
}

func (l *LogRenderer) OnStabilizationUpdated(remainingSeconds int) {}
