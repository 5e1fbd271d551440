package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wisefido-radmon/internal/models"

	"go.uber.org/zap"
)

// ErrStoreUnavailable 持久化层不可用
var ErrStoreUnavailable = errors.New("store unavailable")

// PersistentStore 设置与历史的持久化接口
// Load* 在数据不存在时返回 (nil, nil)
type PersistentStore interface {
	LoadSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
	LoadHistory(ctx context.Context) ([]models.HistoryRecord, error)
	SaveHistory(ctx context.Context, records []models.HistoryRecord) error
}

// unavailable 包装底层错误为 ErrStoreUnavailable
// 调用方上下文已取消或超时的错误原样返回，不代表存储不可用
func unavailable(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// DecodeSettings 将保存的设置覆盖到默认值上；结果非法时返回 ErrConfigInvalid
func DecodeSettings(raw []byte, defaults models.Settings) (*models.Settings, error) {
	settings := defaults
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfigInvalid, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// DecodeHistory 逐条解析历史记录，损坏的记录跳过并记录日志
func DecodeHistory(raw []byte, logger *zap.Logger) ([]models.HistoryRecord, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: history is not a list: %v", models.ErrMalformedRecord, err)
	}

	records := make([]models.HistoryRecord, 0, len(entries))
	for i, entry := range entries {
		var r models.HistoryRecord
		if err := json.Unmarshal(entry, &r); err != nil {
			logger.Warn("Skipping malformed history entry",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		if err := r.Validate(); err != nil {
			logger.Warn("Skipping malformed history entry",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
