package models

import (
	"fmt"
	"strings"
)

// Severity 读数严重级别（Safe < Caution < Danger）
type Severity int

const (
	SeveritySafe Severity = iota
	SeverityCaution
	SeverityDanger
)

// String 返回存储/传输用的编码："safe" / "caution" / "danger"
func (s Severity) String() string {
	switch s {
	case SeveritySafe:
		return "safe"
	case SeverityCaution:
		return "caution"
	case SeverityDanger:
		return "danger"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Label 显示名称
func (s Severity) Label() string {
	switch s {
	case SeverityDanger:
		return "Danger"
	case SeverityCaution:
		return "Caution"
	case SeveritySafe:
		return "Safe"
	default:
		return "Standby"
	}
}

// Color 图表/指示灯颜色
func (s Severity) Color() string {
	switch s {
	case SeverityDanger:
		return "#EF4444"
	case SeverityCaution:
		return "#F59E0B"
	default:
		return "#10B981"
	}
}

// BannerMessage 报警横幅文案
func (s Severity) BannerMessage() string {
	if s == SeverityDanger {
		return "Dangerous radiation level detected!"
	}
	return "Caution: radiation level is higher than usual."
}

// IsAlerting Caution 和 Danger 触发报警
func (s Severity) IsAlerting() bool {
	return s == SeverityCaution || s == SeverityDanger
}

// Valid 是否为已知级别
func (s Severity) Valid() bool {
	return s >= SeveritySafe && s <= SeverityDanger
}

// ParseSeverity 解析级别编码（大小写不敏感）
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "safe":
		return SeveritySafe, nil
	case "caution":
		return SeverityCaution, nil
	case "danger":
		return SeverityDanger, nil
	default:
		return SeveritySafe, fmt.Errorf("unknown severity: %q", v)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
