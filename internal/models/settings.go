package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrConfigInvalid 设置非法（阈值顺序错误或非数值）
var ErrConfigInvalid = errors.New("config invalid")

// Settings 检测设置（每个 tick 内不可变）
type Settings struct {
	CautionThreshold float64 `json:"cautionThreshold"`
	DangerThreshold  float64 `json:"dangerThreshold"`
	SoundAlerts      bool    `json:"soundAlerts"`
	VibrationAlerts  bool    `json:"vibrationAlerts"`
	Sensitivity      float64 `json:"sensitivity"`
}

// DefaultSettings 默认设置
func DefaultSettings() Settings {
	return Settings{
		CautionThreshold: 0.1,
		DangerThreshold:  1.0,
		SoundAlerts:      true,
		VibrationAlerts:  true,
		Sensitivity:      1.0,
	}
}

// Validate 校验 dangerThreshold > cautionThreshold >= 0 且 sensitivity > 0
func (s Settings) Validate() error {
	for name, v := range map[string]float64{
		"cautionThreshold": s.CautionThreshold,
		"dangerThreshold":  s.DangerThreshold,
		"sensitivity":      s.Sensitivity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrConfigInvalid, name)
		}
	}
	if s.CautionThreshold < 0 {
		return fmt.Errorf("%w: cautionThreshold must be >= 0, got %g", ErrConfigInvalid, s.CautionThreshold)
	}
	if s.DangerThreshold <= s.CautionThreshold {
		return fmt.Errorf("%w: dangerThreshold (%g) must be greater than cautionThreshold (%g)",
			ErrConfigInvalid, s.DangerThreshold, s.CautionThreshold)
	}
	if s.Sensitivity <= 0 {
		return fmt.Errorf("%w: sensitivity must be > 0, got %g", ErrConfigInvalid, s.Sensitivity)
	}
	return nil
}
