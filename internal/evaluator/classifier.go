package evaluator

import "wisefido-radmon/internal/models"

// Classify 按阈值判定读数级别，等于阈值时取更高级别
func Classify(value float64, settings models.Settings) models.Severity {
	if value >= settings.DangerThreshold {
		return models.SeverityDanger
	}
	if value >= settings.CautionThreshold {
		return models.SeverityCaution
	}
	return models.SeveritySafe
}
