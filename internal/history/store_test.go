package history

import (
	"testing"
	"time"

	"wisefido-radmon/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(i int) models.HistoryRecord {
	return models.HistoryRecord{
		Timestamp:       time.Unix(int64(i), 0),
		Value:           float64(i) / 100,
		Status:          models.SeveritySafe,
		DurationSeconds: 11 + i,
	}
}

func TestStore_AppendKeepsMostRecent(t *testing.T) {
	s := NewStore(100)

	for i := 0; i <= 100; i++ {
		s.Append(record(i))
		assert.LessOrEqual(t, s.Len(), 100)
	}

	all := s.Records()
	require.Len(t, all, 100)
	// 新 -> 旧：第一个是最后追加的，最旧的 record(0) 被丢弃
	assert.Equal(t, record(100), all[0])
	assert.Equal(t, record(1), all[99])
}

func TestStore_StatsOverWholeLog(t *testing.T) {
	s := NewStore(0)
	assert.Equal(t, models.HistoryStats{}, s.Stats())

	for _, v := range []float64{0.1, 0.5, 0.3} {
		s.Append(models.HistoryRecord{Timestamp: time.Now(), Value: v, DurationSeconds: 20})
	}
	for i := 0; i < 30; i++ {
		s.Append(models.HistoryRecord{Timestamp: time.Now(), Value: 0.1, DurationSeconds: 20})
	}

	// 统计覆盖全部记录，不受 List 的 limit 影响
	assert.Len(t, s.List(20), 20)
	stats := s.Stats()
	assert.Equal(t, 33, stats.Count)
	assert.InDelta(t, (0.1+0.5+0.3+3.0)/33, stats.Average, 1e-9)
	assert.Equal(t, 0.5, stats.Max)
}

func TestStore_ListAndClear(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 3; i++ {
		s.Append(record(i))
	}

	assert.Equal(t, []models.HistoryRecord{record(2), record(1)}, s.List(2))
	assert.Len(t, s.List(0), 3)
	assert.Len(t, s.List(50), 3)

	list := s.List(1)
	list[0].Value = 99
	assert.Equal(t, record(2), s.List(1)[0])

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.List(10))
}

func TestStore_ReplaceTruncates(t *testing.T) {
	s := NewStore(2)
	s.Replace([]models.HistoryRecord{record(3), record(2), record(1)})

	assert.Equal(t, []models.HistoryRecord{record(3), record(2)}, s.Records())
}
