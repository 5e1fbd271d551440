package session

import (
	"wisefido-radmon/internal/alert"
	"wisefido-radmon/internal/models"
)

type counters struct {
	ticks             int64
	sessionsStarted   int64
	sessionsRecorded  int64
	sessionsDiscarded int64
	bySeverity        [3]int64
}

// Metrics 运行计数
type Metrics struct {
	Ticks             int64            `json:"ticks"`
	SessionsStarted   int64            `json:"sessionsStarted"`
	SessionsRecorded  int64            `json:"sessionsRecorded"`
	SessionsDiscarded int64            `json:"sessionsDiscarded"`
	Readings          map[string]int64 `json:"readings"` // 按级别计数
	Alerts            alert.Stats      `json:"alerts"`
	HistoryCount      int              `json:"historyCount"`
	StoreDegraded     bool             `json:"storeDegraded"`
}

// Metrics 返回计数快照
func (c *Controller) Metrics() Metrics {
	c.mu.Lock()
	m := Metrics{
		Ticks:             c.counters.ticks,
		SessionsStarted:   c.counters.sessionsStarted,
		SessionsRecorded:  c.counters.sessionsRecorded,
		SessionsDiscarded: c.counters.sessionsDiscarded,
		Readings: map[string]int64{
			models.SeveritySafe.String():    c.counters.bySeverity[models.SeveritySafe],
			models.SeverityCaution.String(): c.counters.bySeverity[models.SeverityCaution],
			models.SeverityDanger.String():  c.counters.bySeverity[models.SeverityDanger],
		},
		HistoryCount: c.history.Len(),
	}
	c.mu.Unlock()

	m.Alerts = c.alerts.Stats()
	m.StoreDegraded = c.degraded.Load()
	return m
}
