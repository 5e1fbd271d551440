package alert

import (
	"sync"
	"time"

	"wisefido-radmon/internal/models"
	"wisefido-radmon/internal/scheduler"

	"go.uber.org/zap"
)

// Sink 报警输出通道；所有调用都是 fire-and-forget，不能阻塞
type Sink interface {
	ShowBanner(severity models.Severity)
	PlayTone()
	Vibrate(pattern []int)
}

// HapticsProber 可选接口：通道是否具备振动能力
type HapticsProber interface {
	HapticsAvailable() bool
}

// BannerDismisser 可选接口：横幅开始移除时通知通道
type BannerDismisser interface {
	DismissBanner()
}

var (
	dangerPattern  = []int{200, 100, 200}
	cautionPattern = []int{100}
)

// VibrationPattern 返回级别对应的振动模式（毫秒）；Safe 返回 nil
func VibrationPattern(severity models.Severity) []int {
	switch severity {
	case models.SeverityDanger:
		return append([]int(nil), dangerPattern...)
	case models.SeverityCaution:
		return append([]int(nil), cautionPattern...)
	default:
		return nil
	}
}

// Stats 报警计数
type Stats struct {
	Banners           int64 `json:"banners"`
	BannersSuppressed int64 `json:"bannersSuppressed"`
	Tones             int64 `json:"tones"`
	Vibrations        int64 `json:"vibrations"`
}

// Coordinator 报警协调器
// 同一时间最多一个横幅；声音和振动不受横幅去抖影响
type Coordinator struct {
	sink       Sink
	sched      scheduler.Scheduler
	display    time.Duration
	transition time.Duration
	logger     *zap.Logger

	mu           sync.Mutex
	bannerActive bool
	stats        Stats
}

// NewCoordinator 创建报警协调器
func NewCoordinator(sink Sink, sched scheduler.Scheduler, display, transition time.Duration, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		sink:       sink,
		sched:      sched,
		display:    display,
		transition: transition,
		logger:     logger,
	}
}

// Evaluate 根据级别和当前设置触发报警
func (c *Coordinator) Evaluate(severity models.Severity, settings models.Settings) {
	if !severity.IsAlerting() {
		return
	}

	c.mu.Lock()
	showBanner := !c.bannerActive
	if showBanner {
		c.bannerActive = true
		c.stats.Banners++
	} else {
		c.stats.BannersSuppressed++
	}
	playTone := settings.SoundAlerts
	if playTone {
		c.stats.Tones++
	}
	vibrate := settings.VibrationAlerts && hapticsAvailable(c.sink)
	if vibrate {
		c.stats.Vibrations++
	}
	c.mu.Unlock()

	if showBanner {
		c.sink.ShowBanner(severity)
		c.sched.After(c.display, c.hideBanner)
		c.logger.Debug("Alert banner shown", zap.String("severity", severity.String()))
	}
	if playTone {
		c.sink.PlayTone()
	}
	if vibrate {
		c.sink.Vibrate(VibrationPattern(severity))
	}
}

// hideBanner 显示时间结束，进入移除过渡
func (c *Coordinator) hideBanner() {
	if d, ok := c.sink.(BannerDismisser); ok {
		d.DismissBanner()
	}
	c.sched.After(c.transition, c.clearBanner)
}

func (c *Coordinator) clearBanner() {
	c.mu.Lock()
	c.bannerActive = false
	c.mu.Unlock()
}

// BannerActive 当前是否有横幅显示
func (c *Coordinator) BannerActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bannerActive
}

// Stats 返回计数快照
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func hapticsAvailable(s Sink) bool {
	p, ok := s.(HapticsProber)
	return ok && p.HapticsAvailable()
}
