package detector

import (
	"fmt"

	"github.com/flybeeper/flightlog-engine/internal/models"
)

// Threshold допустимый диапазон логического параметра. Значение на границе нарушением не является.
type Threshold struct {
	Parameter string   `yaml:"parameter" json:"parameter"`
	Min       *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Range возвращает границы в виде models.ValueRange
func (t Threshold) Range() *models.ValueRange {
	return &models.ValueRange{Min: t.Min, Max: t.Max}
}

// Config пороги правил детектора аномалий
type Config struct {
	// Множитель стандартного отклонения для резкого изменения
	SuddenChangeSigma float64 `yaml:"sudden_change_sigma"`
	// Порог коэффициента вариации
	VarianceCV float64 `yaml:"variance_cv"`
	// Таблица допустимых диапазонов, проверяется по порядку
	Thresholds []Threshold `yaml:"thresholds"`

	SatelliteDrop int `yaml:"satellite_drop"`
	MinSatellites int `yaml:"min_satellites"`

	HAccDegraded float64 `yaml:"hacc_degraded"`
	HAccCritical float64 `yaml:"hacc_critical"`
	HAccJump     float64 `yaml:"hacc_jump"`

	HDOPPoor float64 `yaml:"hdop_poor"`
	HDOPBad  float64 `yaml:"hdop_bad"`
	HDOPJump float64 `yaml:"hdop_jump"`

	// Скачок позиции между соседними точками траектории, метры
	PositionJumpMeters float64 `yaml:"position_jump_meters"`

	BatteryCritical float64 `yaml:"battery_critical"`
	BatteryLow      float64 `yaml:"battery_low"`

	TemperatureHigh     float64 `yaml:"temperature_high"`
	TemperatureElevated float64 `yaml:"temperature_elevated"`

	RCWeak float64 `yaml:"rc_weak"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		SuddenChangeSigma: 3.0,
		VarianceCV:        0.5,
		Thresholds: []Threshold{
			{Parameter: "BATTERY_VOLTAGE", Min: models.Bound(10.0), Max: models.Bound(15.0)},
			{Parameter: "ALTITUDE", Min: models.Bound(-100.0), Max: models.Bound(1000.0)},
			{Parameter: "HACC", Max: models.Bound(5.0)},
			{Parameter: "TEMPERATURE", Min: models.Bound(-20.0), Max: models.Bound(60.0)},
		},
		SatelliteDrop:       3,
		MinSatellites:       4,
		HAccDegraded:        5.0,
		HAccCritical:        20.0,
		HAccJump:            10.0,
		HDOPPoor:            2.0,
		HDOPBad:             5.0,
		HDOPJump:            2.0,
		PositionJumpMeters:  1000.0,
		BatteryCritical:     10.5,
		BatteryLow:          11.0,
		TemperatureHigh:     60.0,
		TemperatureElevated: 45.0,
		RCWeak:              20.0,
	}
}

// Validate проверяет согласованность порогов
func (c *Config) Validate() error {
	if c.SuddenChangeSigma <= 0 {
		return fmt.Errorf("sudden_change_sigma must be positive, got %v", c.SuddenChangeSigma)
	}
	if c.VarianceCV <= 0 {
		return fmt.Errorf("variance_cv must be positive, got %v", c.VarianceCV)
	}
	for i, t := range c.Thresholds {
		if t.Parameter == "" {
			return fmt.Errorf("thresholds[%d]: parameter is required", i)
		}
		if t.Min == nil && t.Max == nil {
			return fmt.Errorf("thresholds[%d] (%s): at least one of min or max is required", i, t.Parameter)
		}
		if t.Min != nil && t.Max != nil && *t.Min > *t.Max {
			return fmt.Errorf("thresholds[%d] (%s): min %v is greater than max %v", i, t.Parameter, *t.Min, *t.Max)
		}
	}
	if c.SatelliteDrop < 0 || c.MinSatellites < 0 {
		return fmt.Errorf("satellite thresholds must not be negative")
	}
	if c.HAccCritical < c.HAccDegraded {
		return fmt.Errorf("hacc_critical (%v) must not be below hacc_degraded (%v)", c.HAccCritical, c.HAccDegraded)
	}
	if c.HDOPBad < c.HDOPPoor {
		return fmt.Errorf("hdop_bad (%v) must not be below hdop_poor (%v)", c.HDOPBad, c.HDOPPoor)
	}
	if c.BatteryLow < c.BatteryCritical {
		return fmt.Errorf("battery_low (%v) must not be below battery_critical (%v)", c.BatteryLow, c.BatteryCritical)
	}
	if c.TemperatureHigh < c.TemperatureElevated {
		return fmt.Errorf("temperature_high (%v) must not be below temperature_elevated (%v)", c.TemperatureHigh, c.TemperatureElevated)
	}
	if c.PositionJumpMeters <= 0 {
		return fmt.Errorf("position_jump_meters must be positive, got %v", c.PositionJumpMeters)
	}
	return nil
}
