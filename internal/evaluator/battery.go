package evaluator

import (
	"math"
	"time"
)

// Battery 电量来源；会话开始时 Reset
type Battery interface {
	Level(elapsed time.Duration) int
	Reset()
}

// SimulatedBattery 模拟电量：每小时下降 10%，单次会话最多下降 5%（不低于 85%）
type SimulatedBattery struct{}

func NewSimulatedBattery() *SimulatedBattery {
	return &SimulatedBattery{}
}

// Level 返回四舍五入后的电量百分比
func (b *SimulatedBattery) Level(elapsed time.Duration) int {
	return int(math.Round(SimulatedBatteryPercent(elapsed)))
}

// Reset 模拟电量只与本次会话时长有关，无需额外状态
func (b *SimulatedBattery) Reset() {}

// SimulatedBatteryPercent max(85, 100 - min(5, hours*10))
func SimulatedBatteryPercent(elapsed time.Duration) float64 {
	drain := math.Min(5, elapsed.Hours()*10)
	return math.Max(85, 100-drain)
}
