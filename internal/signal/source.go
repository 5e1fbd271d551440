package signal

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Source 信号源：每个 tick 调用一次，返回 [0, ∞) 内的读数，不会失败
type Source interface {
	Next(sensitivity float64) float64
}

// 模拟参数
const (
	simBase        = 0.05   // 背景辐射
	simNoise       = 0.02   // 噪声幅度（±0.01）
	simDriftPeriod = 10000.0 // 漂移周期（毫秒）
	simDriftAmp    = 0.01
	simSpikeProb   = 0.05
	simSpikeMax    = 0.3
)

// RadiationSim 模拟辐射读数：背景值 + 噪声 + 缓慢漂移 + 偶发尖峰
type RadiationSim struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewRadiationSim rnd 为 nil 时按当前时间播种；now 为 nil 时使用 time.Now
func NewRadiationSim(rnd *rand.Rand, now func() time.Time) *RadiationSim {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &RadiationSim{rnd: rnd, now: now}
}

// Next 生成下一个读数，灵敏度在截断到 0 之后再相乘
func (s *RadiationSim) Next(sensitivity float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	noise := (s.rnd.Float64() - 0.5) * simNoise
	drift := math.Sin(float64(s.now().UnixMilli())/simDriftPeriod) * simDriftAmp

	spike := 0.0
	if s.rnd.Float64() < simSpikeProb {
		spike = s.rnd.Float64() * simSpikeMax
	}

	return math.Max(0, simBase+noise+drift+spike) * sensitivity
}

// LatestValueSource 使用设备最近一次上报的读数（由 MQTT consumer 写入）
// 超过 maxAge 未上报时读数视为 0，避免过期的危险读数持续报警
type LatestValueSource struct {
	maxAge time.Duration // 0 表示不过期
	now    func() time.Time

	mu        sync.RWMutex
	value     float64
	updatedAt time.Time
}

func NewLatestValueSource(maxAge time.Duration) *LatestValueSource {
	return &LatestValueSource{maxAge: maxAge, now: time.Now}
}

// Update 写入设备上报的原始读数
func (s *LatestValueSource) Update(value float64, at time.Time) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	s.mu.Lock()
	s.value = value
	s.updatedAt = at
	s.mu.Unlock()
}

// UpdatedAt 最近一次上报时间（零值表示尚未收到数据）
func (s *LatestValueSource) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *LatestValueSource) Next(sensitivity float64) float64 {
	if s.Stale() {
		return 0
	}
	s.mu.RLock()
	v := s.value
	s.mu.RUnlock()
	return math.Max(0, v) * sensitivity
}

// Stale 最近一次上报是否已超过 maxAge
func (s *LatestValueSource) Stale() bool {
	if s.maxAge <= 0 {
		return false
	}
	s.mu.RLock()
	at := s.updatedAt
	s.mu.RUnlock()
	return !at.IsZero() && s.now().Sub(at) > s.maxAge
}
