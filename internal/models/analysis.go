package models

import "math"

// Trend направление изменения параметра
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// StatSummary статистическая сводка по серии значений
type StatSummary struct {
	Count      int         `json:"count"`
	Numeric    bool        `json:"numeric"`
	Min        float64     `json:"min"`
	Max        float64     `json:"max"`
	Mean       float64     `json:"mean"`
	Median     float64     `json:"median"`
	StdDev     float64     `json:"std_dev"`
	Range      float64     `json:"range"`
	FirstValue interface{} `json:"first_value"`
	LastValue  interface{} `json:"last_value"`
	TimeSpan   float64     `json:"time_span"`
	Trend      Trend       `json:"trend"`
}

// CoefficientOfVariation возвращает std_dev/|mean|; при нулевом среднем +Inf
func (s StatSummary) CoefficientOfVariation() float64 {
	if s.Mean == 0 {
		return math.Inf(1)
	}
	return s.StdDev / math.Abs(s.Mean)
}

// Severity критичность аномалии
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank возвращает порядок критичности (больше = серьезнее)
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AnomalyType тип аномалии
type AnomalyType string

const (
	AnomalySuddenChange                  AnomalyType = "sudden_change"
	AnomalyThresholdViolation            AnomalyType = "threshold_violation"
	AnomalyHighVariance                  AnomalyType = "high_variance"
	AnomalyGpsSignalLoss                 AnomalyType = "gps_signal_loss"
	AnomalySatelliteDrop                 AnomalyType = "satellite_drop"
	AnomalyGpsAccuracyDegradation        AnomalyType = "gps_accuracy_degradation"
	AnomalyBatteryCritical               AnomalyType = "battery_critical"
	AnomalyHighTemperature               AnomalyType = "high_temperature"
	AnomalyRCSignalLoss                  AnomalyType = "rc_signal_loss"
	AnomalyLowSatelliteCount             AnomalyType = "low_satellite_count"
	AnomalyGpsAccuracyRapidDegradation   AnomalyType = "gps_accuracy_rapid_degradation"
	AnomalySignalQualityPoor             AnomalyType = "signal_quality_poor"
	AnomalySignalQualityRapidDegradation AnomalyType = "signal_quality_rapid_degradation"
	AnomalyGpsPositionJump               AnomalyType = "gps_position_jump"
	AnomalyBatteryLow                    AnomalyType = "battery_low"
	AnomalyElevatedTemperature           AnomalyType = "elevated_temperature"
	AnomalyRCSignalWeak                  AnomalyType = "rc_signal_weak"
)

// ValueRange допустимый диапазон значения; nil граница не ограничивает
type ValueRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Bound возвращает указатель на значение границы
func Bound(v float64) *float64 {
	return &v
}

// Anomaly обнаруженная аномалия телеметрии
type Anomaly struct {
	Type          AnomalyType `json:"type"`
	Severity      Severity    `json:"severity"`
	Parameter     string      `json:"parameter,omitempty"`
	Timestamp     float64     `json:"timestamp"`
	Value         interface{} `json:"value,omitempty"`
	ExpectedRange *ValueRange `json:"expected_range,omitempty"`
	Description   string      `json:"description"`
}

// PhaseKind фаза полета
type PhaseKind string

const (
	PhaseTakeoff PhaseKind = "takeoff"
	PhaseCruise  PhaseKind = "cruise"
	PhaseLanding PhaseKind = "landing"
)

// AltitudeRange диапазон высот фазы
type AltitudeRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FlightPhase интервал полета, соответствующий полосе высот
type FlightPhase struct {
	Phase         PhaseKind     `json:"phase"`
	StartTime     float64       `json:"start_time"`
	EndTime       float64       `json:"end_time"`
	AltitudeRange AltitudeRange `json:"altitude_range"`
}

// Duration длительность фазы в единицах временных меток
func (p FlightPhase) Duration() float64 {
	return p.EndTime - p.StartTime
}

// DataSource описание доступного источника данных
type DataSource struct {
	Type        string `json:"type"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

// QualityReport отчет о полноте и качестве данных
type QualityReport struct {
	TotalParameters     int          `json:"total_parameters"`
	AvailableParameters int          `json:"available_parameters"`
	DataCoverage        float64      `json:"data_coverage"`
	TemporalCoverage    float64      `json:"temporal_coverage"`
	QualityScore        float64      `json:"quality_score"`
	TemporalSpan        float64      `json:"temporal_span"`
	TotalDataPoints     int          `json:"total_data_points"`
	MissingParameters   []string     `json:"missing_parameters,omitempty"`
	DataSources         []DataSource `json:"data_sources,omitempty"`
	Diagnostics         int          `json:"diagnostics"`
	HomeGeohash         string       `json:"home_geohash,omitempty"`
	FlightArea          *Bounds      `json:"flight_area,omitempty"`
	AreaCenterGeohash   string       `json:"area_center_geohash,omitempty"`
	FlightExtentKm      float64      `json:"flight_extent_km,omitempty"`
}
