package repository

import (
	"context"
	"sync"

	"wisefido-radmon/internal/models"
)

// MemoryStore 进程内存储（未配置持久化时使用）
type MemoryStore struct {
	mu       sync.RWMutex
	settings *models.Settings
	history  []models.HistoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LoadSettings(ctx context.Context) (*models.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return nil, nil
	}
	s := *m.settings
	return &s, nil
}

func (m *MemoryStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &settings
	return nil
}

func (m *MemoryStore) LoadHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.history == nil {
		return nil, nil
	}
	return append([]models.HistoryRecord(nil), m.history...), nil
}

func (m *MemoryStore) SaveHistory(ctx context.Context, records []models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append([]models.HistoryRecord{}, records...)
	return nil
}
