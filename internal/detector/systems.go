package detector

import (
	"fmt"

	"github.com/flybeeper/flightlog-engine/internal/models"
)

// levelRule общий вид правил "значение параметра относительно порога"
type levelRule struct {
	name        string
	description string
	parameter   string
	anomaly     models.AnomalyType
	severity    models.Severity
	expected    *models.ValueRange
	match       func(v float64) bool
	format      string
}

func (r *levelRule) Name() string { return r.name }

func (r *levelRule) Description() string { return r.description }

func (r *levelRule) Detect(in *Input) []models.Anomaly {
	points, values := numericPoints(in.Resolve(r.parameter))

	var anomalies []models.Anomaly
	for i, v := range values {
		if !r.match(v) {
			continue
		}
		anomalies = append(anomalies, models.Anomaly{
			Type:          r.anomaly,
			Severity:      r.severity,
			Parameter:     r.parameter,
			Timestamp:     points[i].Timestamp,
			Value:         v,
			ExpectedRange: r.expected,
			Description:   fmt.Sprintf(r.format, v),
		})
	}
	return anomalies
}

// NewBatteryCriticalRule напряжение батареи ниже критического
func NewBatteryCriticalRule(config *Config) Rule {
	limit := config.BatteryCritical
	return &levelRule{
		name:        "battery_critical",
		description: fmt.Sprintf("Flags battery voltage below %.1fV", limit),
		parameter:   "BATTERY_VOLTAGE",
		anomaly:     models.AnomalyBatteryCritical,
		severity:    models.SeverityCritical,
		expected:    &models.ValueRange{Min: models.Bound(limit)},
		match:       func(v float64) bool { return v < limit },
		format:      "Critical battery voltage: %.1fV",
	}
}

// NewBatteryLowRule напряжение батареи в диапазоне [critical, low)
func NewBatteryLowRule(config *Config) Rule {
	critical, low := config.BatteryCritical, config.BatteryLow
	return &levelRule{
		name:        "battery_low",
		description: fmt.Sprintf("Flags battery voltage between %.1fV and %.1fV", critical, low),
		parameter:   "BATTERY_VOLTAGE",
		anomaly:     models.AnomalyBatteryLow,
		severity:    models.SeverityHigh,
		expected:    &models.ValueRange{Min: models.Bound(low)},
		match:       func(v float64) bool { return v >= critical && v < low },
		format:      "Low battery voltage: %.1fV",
	}
}

// NewHighTemperatureRule температура выше допустимой
func NewHighTemperatureRule(config *Config) Rule {
	limit := config.TemperatureHigh
	return &levelRule{
		name:        "high_temperature",
		description: fmt.Sprintf("Flags temperature above %.1f°C", limit),
		parameter:   "TEMPERATURE",
		anomaly:     models.AnomalyHighTemperature,
		severity:    models.SeverityHigh,
		expected:    &models.ValueRange{Max: models.Bound(limit)},
		match:       func(v float64) bool { return v > limit },
		format:      "High temperature: %.1f°C",
	}
}

// NewElevatedTemperatureRule температура в диапазоне (elevated, high]
func NewElevatedTemperatureRule(config *Config) Rule {
	elevated, high := config.TemperatureElevated, config.TemperatureHigh
	return &levelRule{
		name:        "elevated_temperature",
		description: fmt.Sprintf("Flags temperature between %.1f°C and %.1f°C", elevated, high),
		parameter:   "TEMPERATURE",
		anomaly:     models.AnomalyElevatedTemperature,
		severity:    models.SeverityMedium,
		expected:    &models.ValueRange{Max: models.Bound(elevated)},
		match:       func(v float64) bool { return v > elevated && v <= high },
		format:      "Elevated temperature: %.1f°C",
	}
}

// NewRCSignalWeakRule слабый сигнал пульта
func NewRCSignalWeakRule(config *Config) Rule {
	limit := config.RCWeak
	return &levelRule{
		name:        "rc_signal_weak",
		description: fmt.Sprintf("Flags RC signal strength below %.1f", limit),
		parameter:   "RC_SIGNAL",
		anomaly:     models.AnomalyRCSignalWeak,
		severity:    models.SeverityMedium,
		expected:    &models.ValueRange{Min: models.Bound(limit)},
		match:       func(v float64) bool { return v < limit },
		format:      "Weak RC signal: %.1f%%",
	}
}

// RCSignalLossRule потеря сигнала пульта
type RCSignalLossRule struct{}

// NewRCSignalLossRule создает правило потери RC сигнала
func NewRCSignalLossRule() *RCSignalLossRule {
	return &RCSignalLossRule{}
}

func (r *RCSignalLossRule) Name() string { return "rc_signal_loss" }

func (r *RCSignalLossRule) Description() string {
	return "Flags samples where the RC link reports signal loss"
}

func (r *RCSignalLossRule) Detect(in *Input) []models.Anomaly {
	var anomalies []models.Anomaly
	for _, p := range in.Resolve("RC_SIGNAL_LOST") {
		lost, ok := p.Value.(bool)
		if !ok || !lost {
			continue
		}
		anomalies = append(anomalies, models.Anomaly{
			Type:        models.AnomalyRCSignalLoss,
			Severity:    models.SeverityCritical,
			Parameter:   "RC_SIGNAL_LOST",
			Timestamp:   p.Timestamp,
			Value:       true,
			Description: fmt.Sprintf("RC signal lost at %.1f", p.Timestamp),
		})
	}
	return anomalies
}
