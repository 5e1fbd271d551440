package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedRecord 存储中的历史记录损坏
var ErrMalformedRecord = errors.New("malformed history record")

// HistoryRecord 一次完成的检测会话（创建后不可变）
type HistoryRecord struct {
	ID              string    `json:"id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Value           float64   `json:"value"`  // 会话结束时的读数
	Status          Severity  `json:"status"` // safe, caution, danger
	DurationSeconds int       `json:"duration"`
}

// Validate 检查记录是否可用
func (r HistoryRecord) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedRecord)
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) || r.Value < 0 {
		return fmt.Errorf("%w: invalid value %v", ErrMalformedRecord, r.Value)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: invalid status %d", ErrMalformedRecord, int(r.Status))
	}
	if r.DurationSeconds < 1 {
		return fmt.Errorf("%w: duration must be >= 1, got %d", ErrMalformedRecord, r.DurationSeconds)
	}
	return nil
}

// HistoryStats 历史统计（覆盖全部保留记录）
type HistoryStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
}
