package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"wisefido-radmon/internal/alert"
	"wisefido-radmon/internal/chart"
	"wisefido-radmon/internal/evaluator"
	"wisefido-radmon/internal/history"
	"wisefido-radmon/internal/models"
	"wisefido-radmon/internal/render"
	"wisefido-radmon/internal/repository"
	"wisefido-radmon/internal/scheduler"
	"wisefido-radmon/internal/signal"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionActive 会话已在进行中
var ErrSessionActive = errors.New("session already active")

// Options 会话控制参数
type Options struct {
	TickInterval         time.Duration
	MinSessionSeconds    int // 会话时长必须大于该值才记录历史
	HistoryCapacity      int
	HistoryPageSize      int
	ChartPoints          int
	StabilizationSeconds int
	CalibrationDelay     time.Duration
	Defaults             models.Settings
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		TickInterval:         time.Second,
		MinSessionSeconds:    10,
		HistoryCapacity:      history.DefaultCapacity,
		HistoryPageSize:      20,
		ChartPoints:          chart.DefaultCapacity,
		StabilizationSeconds: 240,
		CalibrationDelay:     2 * time.Second,
		Defaults:             models.DefaultSettings(),
	}
}

// Deps 控制器依赖的外部协作者
type Deps struct {
	Source    signal.Source
	Battery   evaluator.Battery
	Renderer  render.Renderer
	Alerts    *alert.Coordinator
	Store     repository.PersistentStore
	Scheduler scheduler.Scheduler
	Now       func() time.Time
	Logger    *zap.Logger
}

// Controller 会话状态机（Idle <-> Active）
// 设置、历史、图表窗口和会话字段只由控制器持有，外部只拿到副本
type Controller struct {
	opts     Options
	source   signal.Source
	battery  evaluator.Battery
	renderer render.Renderer
	alerts   *alert.Coordinator
	store    repository.PersistentStore
	sched    scheduler.Scheduler
	now      func() time.Time
	logger   *zap.Logger

	mu          sync.Mutex
	settings    models.Settings
	history     *history.Store
	buffer      *chart.RollingBuffer
	active      bool
	generation  uint64
	cancelTick  scheduler.Cancel
	startTime   time.Time
	current     float64
	severity    models.Severity
	elapsed     int
	reliability models.Reliability
	battLevel   int
	ticks       int
	calibrating bool
	counters    counters

	persistMu       sync.Mutex
	settingsVersion uint64
	historyVersion  uint64
	savedSettings   uint64
	savedHistory    uint64
	degraded        atomic.Bool
}

// NewController 创建会话控制器
func NewController(opts Options, deps Deps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Battery == nil {
		deps.Battery = evaluator.NewSimulatedBattery()
	}
	if deps.Store == nil {
		deps.Store = repository.NewMemoryStore()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}

	return &Controller{
		opts:        opts,
		source:      deps.Source,
		battery:     deps.Battery,
		renderer:    deps.Renderer,
		alerts:      deps.Alerts,
		store:       deps.Store,
		sched:       deps.Scheduler,
		now:         deps.Now,
		logger:      deps.Logger,
		settings:    opts.Defaults,
		history:     history.NewStore(opts.HistoryCapacity),
		buffer:      chart.NewRollingBuffer(opts.ChartPoints),
		reliability: models.UnavailableReliability(),
		battLevel:   deps.Battery.Level(0),
	}
}

// Start Idle -> Active
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return ErrSessionActive
	}

	c.generation++
	gen := c.generation
	c.active = true
	c.startTime = c.now()
	c.buffer.Reset()
	c.battery.Reset()
	c.current = 0
	c.severity = models.SeveritySafe
	c.elapsed = 0
	c.ticks = 0
	c.battLevel = c.battery.Level(0)
	c.reliability = evaluator.Reliability(true, 0, c.battLevel)
	c.counters.sessionsStarted++
	c.cancelTick = c.sched.Every(c.opts.TickInterval, func() { c.tick(gen) })

	c.logger.Info("Measurement session started", zap.Time("start_time", c.startTime))

	c.renderer.OnSessionStateChanged(c.liveStateLocked())
	c.renderer.OnChartFrame(c.buffer.Frame(c.settings))
	c.renderer.OnElapsedUpdated(0)
	c.renderer.OnReliabilityUpdated(c.reliability)
	c.renderer.OnBatteryUpdated(c.battLevel)
	c.renderer.OnStabilizationUpdated(c.opts.StabilizationSeconds)
	return nil
}

// tick 单次采样；gen 不匹配说明所属会话已结束
func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || gen != c.generation {
		return
	}

	settings := c.settings
	elapsed := c.now().Sub(c.startTime)

	c.ticks++
	reading := models.Reading{Tick: c.ticks, Value: c.source.Next(settings.Sensitivity)}
	severity := evaluator.Classify(reading.Value, settings)

	c.battLevel = c.battery.Level(elapsed)
	c.reliability = evaluator.Reliability(true, elapsed, c.battLevel)
	c.buffer.Push(reading.Value)
	c.alerts.Evaluate(severity, settings)

	c.current = reading.Value
	c.severity = severity
	c.elapsed = int(elapsed / time.Second)
	c.counters.ticks++
	c.counters.bySeverity[severity]++

	c.renderer.OnReadingUpdated(reading.Value, severity)
	c.renderer.OnChartFrame(c.buffer.Frame(settings))
	c.renderer.OnElapsedUpdated(c.elapsed)
	c.renderer.OnReliabilityUpdated(c.reliability)
	c.renderer.OnBatteryUpdated(c.battLevel)
	c.renderer.OnStabilizationUpdated(evaluator.StabilizationRemaining(c.elapsed, c.opts.StabilizationSeconds))
}

// Stop Active -> Idle；时长超过下限时生成历史记录并返回
// Idle 状态下调用为空操作
func (c *Controller) Stop(ctx context.Context) (*models.HistoryRecord, error) {
	c.mu.Lock()

	if !c.active {
		c.mu.Unlock()
		return nil, nil
	}

	c.cancelTick()
	c.cancelTick = nil
	c.generation++
	c.active = false

	now := c.now()
	duration := int(math.Round(now.Sub(c.startTime).Seconds()))
	c.reliability = models.UnavailableReliability()

	var (
		record  *models.HistoryRecord
		records []models.HistoryRecord
		version uint64
	)
	if duration > c.opts.MinSessionSeconds {
		r := models.HistoryRecord{
			ID:              uuid.New().String(),
			Timestamp:       now,
			Value:           c.current,
			Status:          evaluator.Classify(c.current, c.settings),
			DurationSeconds: duration,
		}
		c.history.Append(r)
		record = &r
		records = c.history.Records()
		c.historyVersion++
		version = c.historyVersion
		c.counters.sessionsRecorded++

		c.logger.Info("Measurement session recorded",
			zap.String("record_id", r.ID),
			zap.Int("duration_sec", duration),
			zap.Float64("value", r.Value),
			zap.String("status", r.Status.String()),
		)
	} else {
		c.counters.sessionsDiscarded++
		c.logger.Info("Measurement session too short, discarded", zap.Int("duration_sec", duration))
	}

	c.renderer.OnSessionStateChanged(c.liveStateLocked())
	c.renderer.OnReliabilityUpdated(c.reliability)
	if record != nil {
		c.renderer.OnHistoryUpdated(c.history.List(c.opts.HistoryPageSize), c.history.Stats())
	}
	c.mu.Unlock()

	if record != nil {
		c.persistHistory(ctx, records, version)
	}
	return record, nil
}

// Toggle 切换会话状态，返回切换后是否处于 Active
func (c *Controller) Toggle(ctx context.Context) (bool, *models.HistoryRecord, error) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active {
		record, err := c.Stop(ctx)
		return false, record, err
	}
	if err := c.Start(); err != nil {
		if errors.Is(err, ErrSessionActive) {
			return true, nil, nil
		}
		return false, nil, err
	}
	return true, nil, nil
}

// Active 是否处于检测中
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Snapshot 当前实时状态
func (c *Controller) Snapshot() models.LiveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveStateLocked()
}

func (c *Controller) liveStateLocked() models.LiveState {
	state := models.LiveState{
		Active:         c.active,
		CurrentValue:   c.current,
		Severity:       c.severity,
		ElapsedSeconds: c.elapsed,
		Elapsed:        models.FormatElapsed(c.elapsed),
		Reliability:    c.reliability,
		BatteryPercent: c.battLevel,
		Calibrating:    c.calibrating,
		Ticks:          c.ticks,
	}
	if c.active {
		start := c.startTime
		state.StartTime = &start
		state.StabilizationRemaining = evaluator.StabilizationRemaining(c.elapsed, c.opts.StabilizationSeconds)
	}
	return state
}

// History 返回前 limit 条记录（limit <= 0 使用页面默认值）和全部记录的统计
func (c *Controller) History(limit int) ([]models.HistoryRecord, models.HistoryStats) {
	if limit <= 0 {
		limit = c.opts.HistoryPageSize
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.List(limit), c.history.Stats()
}

// AllHistory 全部保留的记录（导出用）
func (c *Controller) AllHistory() []models.HistoryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Records()
}

// ClearHistory 清空历史并持久化
func (c *Controller) ClearHistory(ctx context.Context) {
	c.mu.Lock()
	c.history.Clear()
	c.historyVersion++
	version := c.historyVersion
	c.renderer.OnHistoryUpdated(c.history.List(0), c.history.Stats())
	c.mu.Unlock()

	c.logger.Info("History cleared")
	c.persistHistory(ctx, nil, version)
}
