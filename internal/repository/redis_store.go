package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"wisefido-radmon/internal/models"

	"go.uber.org/zap"
)

// RedisStore 把设置和历史以 JSON 保存在 KV 中（不设置 TTL）
type RedisStore struct {
	kv          KVStore
	settingsKey string
	historyKey  string
	defaults    models.Settings
	logger      *zap.Logger
}

// NewRedisStore 创建 KV 持久化
func NewRedisStore(kv KVStore, settingsKey, historyKey string, defaults models.Settings, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		kv:          kv,
		settingsKey: settingsKey,
		historyKey:  historyKey,
		defaults:    defaults,
		logger:      logger,
	}
}

func (s *RedisStore) LoadSettings(ctx context.Context) (*models.Settings, error) {
	raw, err := s.kv.Get(ctx, s.settingsKey)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return DecodeSettings([]byte(raw), s.defaults)
}

func (s *RedisStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := s.kv.Set(ctx, s.settingsKey, string(data), 0); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	raw, err := s.kv.Get(ctx, s.historyKey)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load history: %w", err)
	}
	return DecodeHistory([]byte(raw), s.logger)
}

func (s *RedisStore) SaveHistory(ctx context.Context, records []models.HistoryRecord) error {
	if records == nil {
		records = []models.HistoryRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.kv.Set(ctx, s.historyKey, string(data), 0); err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	s.logger.Debug("Saved history",
		zap.String("key", s.historyKey),
		zap.Int("record_count", len(records)),
	)
	return nil
}
