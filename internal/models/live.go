package models

import (
	"fmt"
	"time"
)

// Reading 单个 tick 的读数
type Reading struct {
	Tick  int     `json:"tick"`
	Value float64 `json:"value"`
}

// Reliability 测量可信度；会话未激活时 Available=false（显示为 "--"）
type Reliability struct {
	Percent   int  `json:"percent"`
	Available bool `json:"available"`
}

// UnavailableReliability 无会话时的占位值
func UnavailableReliability() Reliability {
	return Reliability{}
}

func (r Reliability) String() string {
	if !r.Available {
		return "--"
	}
	return fmt.Sprintf("%d%%", r.Percent)
}

// ChartFrame 图表帧（渲染端只读快照）
type ChartFrame struct {
	Points   []float64 `json:"points"` // 旧 -> 新
	Capacity int       `json:"capacity"`
	ScaleMax float64   `json:"scaleMax"`
	Caution  float64   `json:"caution"`
	Danger   float64   `json:"danger"`
}

// LiveState 当前会话状态快照
type LiveState struct {
	Active                 bool        `json:"active"`
	StartTime              *time.Time  `json:"startTime,omitempty"`
	CurrentValue           float64     `json:"currentValue"`
	Severity               Severity    `json:"severity"`
	ElapsedSeconds         int         `json:"elapsedSeconds"`
	Elapsed                string      `json:"elapsed"`
	Reliability            Reliability `json:"reliability"`
	BatteryPercent         int         `json:"batteryPercent"`
	StabilizationRemaining int         `json:"stabilizationRemaining"`
	Calibrating            bool        `json:"calibrating"`
	Ticks                  int         `json:"ticks"`
}

// FormatElapsed 将秒数格式化为 MM:SS
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// AlertEvent 报警事件（发送到 MQTT / Redis Streams / webhook）
type AlertEvent struct {
	EventID   string    `json:"event_id"`
	Kind      string    `json:"kind"` // banner, tone, vibrate
	Severity  Severity  `json:"severity,omitempty"`
	Message   string    `json:"message,omitempty"`
	Pattern   []int     `json:"pattern,omitempty"` // 振动模式（毫秒）
	Triggered time.Time `json:"triggered_at"`
}
