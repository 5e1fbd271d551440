package alert

import (
	"context"
	"sync"
	"time"

	"wisefido-radmon/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	KindBanner  = "banner"
	KindDismiss = "dismiss"
	KindTone    = "tone"
	KindVibrate = "vibrate"

	deliverTimeout = 5 * time.Second
)

// LogSink 仅记录日志的通道（无振动能力）
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) ShowBanner(severity models.Severity) {
	s.logger.Warn("Radiation alert",
		zap.String("severity", severity.String()),
		zap.String("message", severity.BannerMessage()),
	)
}

func (s *LogSink) PlayTone() {
	s.logger.Info("Alert tone requested")
}

func (s *LogSink) Vibrate(pattern []int) {
	s.logger.Info("Vibration requested", zap.Ints("pattern", pattern))
}

func (s *LogSink) HapticsAvailable() bool { return false }

// MultiSink 扇出到多个通道；振动只发给具备振动能力的通道
type MultiSink []Sink

func (m MultiSink) ShowBanner(severity models.Severity) {
	for _, s := range m {
		s.ShowBanner(severity)
	}
}

func (m MultiSink) PlayTone() {
	for _, s := range m {
		s.PlayTone()
	}
}

func (m MultiSink) Vibrate(pattern []int) {
	for _, s := range m {
		if hapticsAvailable(s) {
			s.Vibrate(pattern)
		}
	}
}

func (m MultiSink) DismissBanner() {
	for _, s := range m {
		if d, ok := s.(BannerDismisser); ok {
			d.DismissBanner()
		}
	}
}

func (m MultiSink) HapticsAvailable() bool {
	for _, s := range m {
		if hapticsAvailable(s) {
			return true
		}
	}
	return false
}

// deliverFunc 把事件投递到外部系统
type deliverFunc func(ctx context.Context, evt models.AlertEvent) error

// eventSink 把报警命令编码为 AlertEvent 并在后台投递
type eventSink struct {
	name    string
	deliver deliverFunc
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func newEventSink(name string, deliver deliverFunc, logger *zap.Logger) *eventSink {
	return &eventSink{
		name:    name,
		deliver: deliver,
		timeout: deliverTimeout,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *eventSink) ShowBanner(severity models.Severity) {
	s.dispatch(models.AlertEvent{
		Kind:     KindBanner,
		Severity: severity,
		Message:  severity.BannerMessage(),
	})
}

func (s *eventSink) DismissBanner() {
	s.dispatch(models.AlertEvent{Kind: KindDismiss})
}

func (s *eventSink) PlayTone() {
	s.dispatch(models.AlertEvent{Kind: KindTone})
}

func (s *eventSink) Vibrate(pattern []int) {
	s.dispatch(models.AlertEvent{
		Kind:    KindVibrate,
		Pattern: append([]int(nil), pattern...),
	})
}

func (s *eventSink) dispatch(evt models.AlertEvent) {
	evt.EventID = uuid.New().String()
	evt.Triggered = s.now()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.deliver(ctx, evt); err != nil {
			s.logger.Warn("Failed to deliver alert event",
				zap.String("sink", s.name),
				zap.String("kind", evt.Kind),
				zap.String("event_id", evt.EventID),
				zap.Error(err),
			)
		}
	}()
}

// Wait 等待已发出的事件投递完成
func (s *eventSink) Wait() {
	s.wg.Wait()
}
