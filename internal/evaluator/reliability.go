package evaluator

import (
	"math"
	"time"

	"wisefido-radmon/internal/models"
)

const (
	reliabilityFloor    = 60.0
	reliabilityCeiling  = 95.0
	reliabilityRampSecs = 240.0 // 4 分钟达到上限
	lowBatteryPercent   = 20
	lowBatteryFactor    = 0.8
)

// EstimateReliability 可信度：60% 线性爬升到 240 秒时的 95%，低电量时打八折
func EstimateReliability(elapsedSeconds float64, batteryPercent int) int {
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	base := math.Min(reliabilityCeiling, reliabilityFloor+(elapsedSeconds/reliabilityRampSecs)*(reliabilityCeiling-reliabilityFloor))

	factor := 1.0
	if batteryPercent < lowBatteryPercent {
		factor = lowBatteryFactor
	}
	return int(math.Round(base * factor))
}

// Reliability 会话激活时返回可信度，否则返回 "--" 占位
func Reliability(active bool, elapsed time.Duration, batteryPercent int) models.Reliability {
	if !active {
		return models.UnavailableReliability()
	}
	return models.Reliability{
		Percent:   EstimateReliability(elapsed.Seconds(), batteryPercent),
		Available: true,
	}
}

// StabilizationRemaining 距离稳定（可信度达到上限）的剩余秒数，0 表示已完成
func StabilizationRemaining(elapsedSeconds, stabilizationSeconds int) int {
	if elapsedSeconds >= stabilizationSeconds {
		return 0
	}
	return stabilizationSeconds - elapsedSeconds
}
