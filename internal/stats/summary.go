package stats

import (
	"math"
	"sort"

	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/pkg/pool"
)

// TrendSlopeThreshold порог наклона регрессии для классификации тренда.
// Наклон измеряется в единицах значения на единицу метки времени и не масштабируется.
const TrendSlopeThreshold = 0.01

// Summarize строит статистическую сводку по точкам, упорядоченным по времени.
// Если хотя бы одно значение нечисловое, сводка содержит только количество и первое/последнее значение.
func Summarize(points []models.Point) models.StatSummary {
	summary := models.StatSummary{
		Count: len(points),
		Trend: models.TrendStable,
	}
	if len(points) == 0 {
		return summary
	}

	first, last := points[0], points[len(points)-1]
	summary.FirstValue = first.Value
	summary.LastValue = last.Value
	summary.TimeSpan = last.Timestamp - first.Timestamp

	buf := pool.Global.GetFloats()
	defer pool.Global.PutFloats(buf)

	for _, p := range points {
		v, ok := p.Float()
		if !ok {
			return summary
		}
		*buf = append(*buf, v)
	}
	values := *buf

	summary.Numeric = true
	summary.Min, summary.Max = values[0], values[0]
	sum := 0.0
	for _, v := range values {
		sum += v
		summary.Min = math.Min(summary.Min, v)
		summary.Max = math.Max(summary.Max, v)
	}
	n := float64(len(values))
	summary.Mean = sum / n
	summary.Range = summary.Max - summary.Min
	summary.StdDev = sampleStdDev(values, summary.Mean, summary.Range)
	summary.Median = median(values)
	summary.Trend = classifyTrend(Slope(points))

	return summary
}

// sampleStdDev несмещенное стандартное отклонение (n-1); для постоянной серии строго 0
func sampleStdDev(values []float64, mean, spread float64) float64 {
	if len(values) < 2 || spread == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// median сортирует values на месте
func median(values []float64) float64 {
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}

// Slope наклон прямой наименьших квадратов value(timestamp).
// Нечисловые точки пропускаются; меньше двух точек или одинаковые метки дают 0.
func Slope(points []models.Point) float64 {
	var n, sumX, sumY float64
	for _, p := range points {
		y, ok := p.Float()
		if !ok {
			continue
		}
		n++
		sumX += p.Timestamp
		sumY += y
	}
	if n < 2 {
		return 0
	}
	meanX := sumX / n
	meanY := sumY / n

	var covariance, variance float64
	for _, p := range points {
		y, ok := p.Float()
		if !ok {
			continue
		}
		dx := p.Timestamp - meanX
		covariance += dx * (y - meanY)
		variance += dx * dx
	}
	if variance == 0 {
		return 0
	}
	return covariance / variance
}

func classifyTrend(slope float64) models.Trend {
	switch {
	case slope > TrendSlopeThreshold:
		return models.TrendIncreasing
	case slope < -TrendSlopeThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// HighVariance сообщает, превышает ли коэффициент вариации порог.
// Для сводки менее чем из двух числовых точек всегда false.
func HighVariance(s models.StatSummary, threshold float64) bool {
	if !s.Numeric || s.Count < 2 {
		return false
	}
	return s.CoefficientOfVariation() > threshold
}
