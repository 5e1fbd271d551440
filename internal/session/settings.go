package session

import (
	"context"
	"errors"
	"time"

	"wisefido-radmon/internal/models"
	"wisefido-radmon/internal/repository"

	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// Settings 当前设置副本
func (c *Controller) Settings() models.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings 校验并替换设置，从下一个 tick 开始生效
// 校验失败时保留原设置并返回 ErrConfigInvalid
func (c *Controller) UpdateSettings(ctx context.Context, settings models.Settings) error {
	_, err := c.PatchSettings(ctx, func(s *models.Settings) error {
		*s = settings
		return nil
	})
	return err
}

// PatchSettings 在锁内对当前设置的副本应用 patch，校验通过后替换
// 并发的部分更新按顺序叠加，不会互相覆盖
func (c *Controller) PatchSettings(ctx context.Context, patch func(*models.Settings) error) (models.Settings, error) {
	c.mu.Lock()
	next := c.settings
	if err := patch(&next); err != nil {
		c.mu.Unlock()
		c.logger.Warn("Rejected settings update", zap.Error(err))
		return models.Settings{}, err
	}
	if err := next.Validate(); err != nil {
		c.mu.Unlock()
		c.logger.Warn("Rejected settings update", zap.Error(err))
		return models.Settings{}, err
	}
	c.settings = next
	c.settingsVersion++
	version := c.settingsVersion
	c.mu.Unlock()

	c.logger.Info("Settings updated",
		zap.Float64("caution_threshold", next.CautionThreshold),
		zap.Float64("danger_threshold", next.DangerThreshold),
		zap.Float64("sensitivity", next.Sensitivity),
		zap.Bool("sound_alerts", next.SoundAlerts),
		zap.Bool("vibration_alerts", next.VibrationAlerts),
	)

	c.persistSettings(ctx, next, version)
	return next, nil
}

// Calibrate 自动校准：CalibrationDelay 之后将灵敏度重置为 1.0
// 校准进行中重复调用不会重新计时
func (c *Controller) Calibrate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.calibrating {
		return
	}
	c.calibrating = true
	c.sched.After(c.opts.CalibrationDelay, c.finishCalibration)
	c.renderer.OnSessionStateChanged(c.liveStateLocked())
	c.logger.Info("Calibration started", zap.Duration("delay", c.opts.CalibrationDelay))
}

func (c *Controller) finishCalibration() {
	c.mu.Lock()
	c.calibrating = false
	c.settings.Sensitivity = 1.0
	c.settingsVersion++
	settings := c.settings
	version := c.settingsVersion
	c.renderer.OnSessionStateChanged(c.liveStateLocked())
	c.mu.Unlock()

	c.logger.Info("Calibration complete")
	c.persistSettings(context.Background(), settings, version)
}

// Restore 启动时从持久化加载设置和历史
// 不存在时使用默认值；存储不可用时切换为仅内存运行
func (c *Controller) Restore(ctx context.Context) {
	settings, err := c.store.LoadSettings(ctx)
	switch {
	case err != nil && c.handleStoreError("load settings", err):
	case err != nil:
		c.logger.Warn("Stored settings invalid, using defaults", zap.Error(err))
	case settings != nil:
		c.mu.Lock()
		c.settings = *settings
		c.mu.Unlock()
	}

	if !c.degraded.Load() {
		records, err := c.store.LoadHistory(ctx)
		switch {
		case err != nil && c.handleStoreError("load history", err):
		case err != nil:
			c.logger.Warn("Stored history unreadable, starting empty", zap.Error(err))
		case records != nil:
			c.mu.Lock()
			c.history.Replace(records)
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	current := c.settings
	c.renderer.OnHistoryUpdated(c.history.List(c.opts.HistoryPageSize), c.history.Stats())
	count := c.history.Len()
	c.mu.Unlock()

	c.logger.Info("Restored state",
		zap.Float64("caution_threshold", current.CautionThreshold),
		zap.Float64("danger_threshold", current.DangerThreshold),
		zap.Int("history_count", count),
		zap.Bool("store_degraded", c.degraded.Load()),
	)
}

// Degraded 持久化是否已不可用（仅内存运行）
func (c *Controller) Degraded() bool {
	return c.degraded.Load()
}

// persistContext 保存不跟随调用方（HTTP 请求）取消，只受 persistTimeout 限制
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

func (c *Controller) persistSettings(ctx context.Context, settings models.Settings, version uint64) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if c.degraded.Load() || version <= c.savedSettings {
		return
	}
	ctx, cancel := persistContext(ctx)
	defer cancel()
	if err := c.store.SaveSettings(ctx, settings); err != nil {
		if !c.handleStoreError("save settings", err) {
			c.logger.Error("Failed to save settings", zap.Error(err))
		}
		return
	}
	c.savedSettings = version
}

func (c *Controller) persistHistory(ctx context.Context, records []models.HistoryRecord, version uint64) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	if c.degraded.Load() || version <= c.savedHistory {
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	ctx, cancel := persistContext(ctx)
	defer cancel()
	if err := c.store.SaveHistory(ctx, records); err != nil {
		if !c.handleStoreError("save history", err) {
			c.logger.Error("Failed to save history", zap.Error(err))
		}
		return
	}
	c.savedHistory = version
}

// handleStoreError 存储不可用时切换为仅内存运行（不重试），返回是否为不可用错误
func (c *Controller) handleStoreError(op string, err error) bool {
	if !isUnavailable(err) {
		return false
	}
	if c.degraded.CompareAndSwap(false, true) {
		c.logger.Error("Persistent store unavailable, continuing in memory only",
			zap.String("operation", op),
			zap.Error(err),
		)
	}
	return true
}

func isUnavailable(err error) bool {
	return errors.Is(err, repository.ErrStoreUnavailable)
}
