package chart

import (
	"math"

	"wisefido-radmon/internal/models"
)

// DefaultCapacity 图表默认保留点数
const DefaultCapacity = 60

// RollingBuffer 固定容量的 FIFO 读数窗口（满时丢弃最旧的点）
type RollingBuffer struct {
	values []float64
	start  int // 最旧元素的位置
	size   int
}

// NewRollingBuffer capacity <= 0 时使用默认容量
func NewRollingBuffer(capacity int) *RollingBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RollingBuffer{values: make([]float64, capacity)}
}

// Push 追加读数
func (b *RollingBuffer) Push(v float64) {
	capacity := len(b.values)
	if b.size < capacity {
		b.values[(b.start+b.size)%capacity] = v
		b.size++
		return
	}
	b.values[b.start] = v
	b.start = (b.start + 1) % capacity
}

// Reset 清空（每次会话开始时调用）
func (b *RollingBuffer) Reset() {
	b.start = 0
	b.size = 0
}

func (b *RollingBuffer) Len() int { return b.size }

func (b *RollingBuffer) Cap() int { return len(b.values) }

// Snapshot 按插入顺序（旧 -> 新）返回副本
func (b *RollingBuffer) Snapshot() []float64 {
	out := make([]float64, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.values[(b.start+i)%len(b.values)]
	}
	return out
}

// Frame 生成图表帧，纵轴上限为 max(数据最大值, 危险阈值*1.2)
func (b *RollingBuffer) Frame(settings models.Settings) models.ChartFrame {
	points := b.Snapshot()
	scaleMax := settings.DangerThreshold * 1.2
	for _, p := range points {
		scaleMax = math.Max(scaleMax, p)
	}
	return models.ChartFrame{
		Points:   points,
		Capacity: b.Cap(),
		ScaleMax: scaleMax,
		Caution:  settings.CautionThreshold,
		Danger:   settings.DangerThreshold,
	}
}
