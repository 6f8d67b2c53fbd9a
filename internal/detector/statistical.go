package detector

import (
	"fmt"
	"math"

	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/stats"
)

// SuddenChangeRule резкое изменение между соседними значениями относительно разброса серии
type SuddenChangeRule struct {
	sigma float64
}

// NewSuddenChangeRule создает правило резких изменений
func NewSuddenChangeRule(config *Config) *SuddenChangeRule {
	return &SuddenChangeRule{sigma: config.SuddenChangeSigma}
}

func (r *SuddenChangeRule) Name() string { return "sudden_change" }

func (r *SuddenChangeRule) Description() string {
	return fmt.Sprintf("Flags consecutive changes larger than %.1f standard deviations", r.sigma)
}

// Detect использует стандартное отклонение из переданной сводки, а не пересчитывает его
func (r *SuddenChangeRule) Detect(in *Input) []models.Anomaly {
	var anomalies []models.Anomaly

	for _, name := range in.SummaryNames() {
		summary := in.Summaries[name]
		if !summary.Numeric || summary.Count < 2 {
			continue
		}
		threshold := r.sigma * summary.StdDev

		points, values := numericPoints(in.Resolve(name))
		for i := 1; i < len(points); i++ {
			change := math.Abs(values[i] - values[i-1])
			if change <= threshold || points[i].Timestamp <= points[i-1].Timestamp {
				continue
			}
			anomalies = append(anomalies, models.Anomaly{
				Type:        models.AnomalySuddenChange,
				Severity:    models.SeverityHigh,
				Parameter:   name,
				Timestamp:   points[i].Timestamp,
				Value:       values[i],
				Description: fmt.Sprintf("Sudden change of %.1f in %s (threshold %.1f)", change, name, threshold),
			})
		}
	}

	return anomalies
}

// ThresholdRule выход значения за допустимый диапазон параметра
type ThresholdRule struct {
	thresholds []Threshold
}

// NewThresholdRule создает правило по таблице диапазонов
func NewThresholdRule(config *Config) *ThresholdRule {
	return &ThresholdRule{thresholds: config.Thresholds}
}

func (r *ThresholdRule) Name() string { return "threshold_violation" }

func (r *ThresholdRule) Description() string {
	return "Flags values outside the configured per-parameter range"
}

func (r *ThresholdRule) Detect(in *Input) []models.Anomaly {
	var anomalies []models.Anomaly

	for _, t := range r.thresholds {
		points, values := numericPoints(in.Resolve(t.Parameter))
		for i, v := range values {
			var bound float64
			var direction string
			switch {
			case t.Min != nil && v < *t.Min:
				bound, direction = *t.Min, "below minimum"
			case t.Max != nil && v > *t.Max:
				bound, direction = *t.Max, "above maximum"
			default:
				continue
			}

			severity := models.SeverityMedium
			if math.Abs(v-bound) > math.Abs(bound) {
				severity = models.SeverityCritical
			}

			anomalies = append(anomalies, models.Anomaly{
				Type:          models.AnomalyThresholdViolation,
				Severity:      severity,
				Parameter:     t.Parameter,
				Timestamp:     points[i].Timestamp,
				Value:         v,
				ExpectedRange: t.Range(),
				Description:   fmt.Sprintf("%s %.1f %s %.1f", t.Parameter, v, direction, bound),
			})
		}
	}

	return anomalies
}

// VarianceRule высокий коэффициент вариации параметра
type VarianceRule struct {
	threshold float64
}

// NewVarianceRule создает правило высокой вариативности
func NewVarianceRule(config *Config) *VarianceRule {
	return &VarianceRule{threshold: config.VarianceCV}
}

func (r *VarianceRule) Name() string { return "high_variance" }

func (r *VarianceRule) Description() string {
	return fmt.Sprintf("Flags parameters with coefficient of variation above %.1f", r.threshold)
}

// Detect возвращает одну аномалию на параметр с меткой первой точки серии.
// Value содержит стандартное отклонение: CV может быть бесконечным.
func (r *VarianceRule) Detect(in *Input) []models.Anomaly {
	var anomalies []models.Anomaly

	for _, name := range in.SummaryNames() {
		summary := in.Summaries[name]
		if !stats.HighVariance(summary, r.threshold) {
			continue
		}

		var ts float64
		if points := in.Resolve(name); len(points) > 0 {
			ts = points[0].Timestamp
		}

		anomalies = append(anomalies, models.Anomaly{
			Type:        models.AnomalyHighVariance,
			Severity:    models.SeverityMedium,
			Parameter:   name,
			Timestamp:   ts,
			Value:       summary.StdDev,
			Description: fmt.Sprintf("High variance in %s (CV: %.1f)", name, summary.CoefficientOfVariation()),
		})
	}

	return anomalies
}
