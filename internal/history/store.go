package history

import (
	"math"

	"wisefido-radmon/internal/models"
)

// DefaultCapacity 默认最多保留 100 条
const DefaultCapacity = 100

// Store 有界历史记录（新 -> 旧）
type Store struct {
	capacity int
	records  []models.HistoryRecord
}

// NewStore capacity <= 0 时使用默认容量
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// Append 插入到最前面，超出容量时丢弃最旧的记录
func (s *Store) Append(record models.HistoryRecord) {
	records := make([]models.HistoryRecord, 0, min(len(s.records)+1, s.capacity))
	records = append(records, record)
	for _, r := range s.records {
		if len(records) == s.capacity {
			break
		}
		records = append(records, r)
	}
	s.records = records
}

// Replace 用已加载的记录（新 -> 旧）替换当前内容
func (s *Store) Replace(records []models.HistoryRecord) {
	n := min(len(records), s.capacity)
	s.records = append([]models.HistoryRecord(nil), records[:n]...)
}

// Clear 清空历史
func (s *Store) Clear() {
	s.records = nil
}

func (s *Store) Len() int { return len(s.records) }

// List 返回前 limit 条（limit <= 0 返回全部）
func (s *Store) List(limit int) []models.HistoryRecord {
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]models.HistoryRecord, limit)
	copy(out, s.records[:limit])
	return out
}

// Records 全部记录副本
func (s *Store) Records() []models.HistoryRecord {
	return s.List(0)
}

// Stats 统计全部保留记录的数量、平均值和最大值
func (s *Store) Stats() models.HistoryStats {
	if len(s.records) == 0 {
		return models.HistoryStats{}
	}
	sum := 0.0
	maxValue := math.Inf(-1)
	for _, r := range s.records {
		sum += r.Value
		maxValue = math.Max(maxValue, r.Value)
	}
	return models.HistoryStats{
		Count:   len(s.records),
		Average: sum / float64(len(s.records)),
		Max:     maxValue,
	}
}
