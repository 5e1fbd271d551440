package render

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"wisefido-radmon/internal/models"

	"go.uber.org/zap"
)

// UpdateSink 接收编码后的 Update（websocket、NATS、Redis 等）
type UpdateSink interface {
	Publish(ctx context.Context, u Update) error
}

// Broadcaster 把 Renderer 调用转换为 Update 并异步投递到 UpdateSink
// 队列满时丢弃新消息，tick 不会被 I/O 阻塞
type Broadcaster struct {
	name   string
	sink   UpdateSink
	queue  chan Update
	now    func() time.Time
	logger *zap.Logger

	dropped atomic.Int64
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewBroadcaster 创建异步推送器
func NewBroadcaster(name string, sink UpdateSink, queueSize int, logger *zap.Logger) *Broadcaster {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Broadcaster{
		name:   name,
		sink:   sink,
		queue:  make(chan Update, queueSize),
		now:    time.Now,
		logger: logger,
	}
}

// Start 启动投递协程
func (b *Broadcaster) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.run(ctx)
}

// Stop 停止投递并等待协程退出（未投递的消息丢弃）
func (b *Broadcaster) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

// Name 推送目标名称
func (b *Broadcaster) Name() string {
	return b.name
}

// Dropped 因队列满丢弃的消息数
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Broadcaster) run(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-b.queue:
			if err := b.sink.Publish(ctx, u); err != nil {
				b.logger.Warn("Failed to publish update",
					zap.String("renderer", b.name),
					zap.String("type", u.Type),
					zap.Error(err),
				)
			}
		}
	}
}

func (b *Broadcaster) enqueue(typ string, payload interface{}) {
	u := Update{Type: typ, At: b.now(), Payload: payload}
	select {
	case b.queue <- u:
	default:
		if b.dropped.Add(1) == 1 {
			b.logger.Warn("Update queue full, dropping updates", zap.String("renderer", b.name))
		}
	}
}

func (b *Broadcaster) OnReadingUpdated(value float64, severity models.Severity) {
	b.enqueue(TypeReading, ReadingPayload{
		Value:    value,
		Severity: severity,
		Label:    severity.Label(),
		Color:    severity.Color(),
	})
}

func (b *Broadcaster) OnChartFrame(frame models.ChartFrame) {
	b.enqueue(TypeChart, frame)
}

func (b *Broadcaster) OnElapsedUpdated(seconds int) {
	b.enqueue(TypeElapsed, ElapsedPayload{Seconds: seconds, Display: models.FormatElapsed(seconds)})
}

func (b *Broadcaster) OnReliabilityUpdated(reliability models.Reliability) {
	b.enqueue(TypeReliability, ReliabilityPayload{
		Percent:   reliability.Percent,
		Available: reliability.Available,
		Display:   reliability.String(),
	})
}

func (b *Broadcaster) OnBatteryUpdated(percent int) {
	b.enqueue(TypeBattery, percent)
}

func (b *Broadcaster) OnHistoryUpdated(records []models.HistoryRecord, stats models.HistoryStats) {
	b.enqueue(TypeHistory, HistoryPayload{Records: records, Stats: stats})
}

func (b *Broadcaster) OnSessionStateChanged(state models.LiveState) {
	b.enqueue(TypeSession, state)
}

func (b *Broadcaster) OnStabilizationUpdated(remainingSeconds int) {
	b.enqueue(TypeStabilization, remainingSeconds)
}
