package filter

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/flybeeper/flightlog-engine/internal/models"
)

// ErrUnknownAggregation неизвестный вид агрегации
var ErrUnknownAggregation = errors.New("unknown aggregation")

// AggregationKind вид агрегации
type AggregationKind string

const (
	AggregationRaw      AggregationKind = "raw"
	AggregationMean     AggregationKind = "mean"
	AggregationMax      AggregationKind = "max"
	AggregationMin      AggregationKind = "min"
	AggregationStd      AggregationKind = "std"
	AggregationDecimate AggregationKind = "decimate"
)

// Aggregation способ агрегации отфильтрованного среза. Factor используется только для decimate.
type Aggregation struct {
	Kind   AggregationKind `json:"kind"`
	Factor int             `json:"factor,omitempty"`
}

// Raw возвращает агрегацию без изменений
func Raw() Aggregation {
	return Aggregation{Kind: AggregationRaw}
}

// Decimate возвращает агрегацию прореживания с шагом n
func Decimate(n int) Aggregation {
	return Aggregation{Kind: AggregationDecimate, Factor: n}
}

// String возвращает каноническое текстовое представление
func (a Aggregation) String() string {
	if a.Kind == "" {
		return string(AggregationRaw)
	}
	if a.Kind == AggregationDecimate {
		return fmt.Sprintf("decimate(%d)", a.Factor)
	}
	return string(a.Kind)
}

// ParseAggregation разбирает агрегацию из строки: raw, mean|avg, max, min, std,
// decimate(n) или decimate:n
func ParseAggregation(s string) (Aggregation, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "raw", "none":
		return Raw(), nil
	case "mean", "avg", "average":
		return Aggregation{Kind: AggregationMean}, nil
	case "max":
		return Aggregation{Kind: AggregationMax}, nil
	case "min":
		return Aggregation{Kind: AggregationMin}, nil
	case "std", "stddev":
		return Aggregation{Kind: AggregationStd}, nil
	}

	if strings.HasPrefix(v, "decimate") {
		arg := strings.TrimPrefix(v, "decimate")
		arg = strings.TrimPrefix(arg, ":")
		arg = strings.TrimSuffix(strings.TrimPrefix(arg, "("), ")")
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return Aggregation{}, fmt.Errorf("%w: invalid decimation factor %q", ErrUnknownAggregation, arg)
		}
		if n <= 0 {
			return Aggregation{}, fmt.Errorf("%w: decimation factor must be positive, got %d", ErrUnknownAggregation, n)
		}
		return Decimate(n), nil
	}

	return Aggregation{}, fmt.Errorf("%w: %q", ErrUnknownAggregation, s)
}

// TimeRange замкнутый интервал времени [Start, End]
type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Apply вырезает временной диапазон (если задан) и применяет агрегацию.
// Точки должны быть отсортированы по времени.
func Apply(points []models.Point, tr *TimeRange, agg Aggregation) []models.Point {
	if tr != nil {
		points = Range(points, tr.Start, tr.End)
	}
	return Aggregate(points, agg)
}

// Range возвращает точки с меткой в [start, end] бинарным поиском: от lowerBound(start)
// до upperBound(end). При start > end результат пуст.
func Range(points []models.Point, start, end float64) []models.Point {
	if start > end || len(points) == 0 {
		return []models.Point{}
	}
	lo := sort.Search(len(points), func(i int) bool { return points[i].Timestamp >= start })
	hi := sort.Search(len(points), func(i int) bool { return points[i].Timestamp > end })
	if lo >= hi {
		return []models.Point{}
	}
	out := make([]models.Point, hi-lo)
	copy(out, points[lo:hi])
	return out
}

// Aggregate применяет агрегацию к срезу
func Aggregate(points []models.Point, agg Aggregation) []models.Point {
	switch agg.Kind {
	case "", AggregationRaw:
		return points
	case AggregationDecimate:
		return DecimatePoints(points, agg.Factor)
	case AggregationMean, AggregationMax, AggregationMin, AggregationStd:
		return collapse(points, agg.Kind)
	default:
		panic(fmt.Sprintf("filter: unsupported aggregation kind %q", agg.Kind))
	}
}

// DecimatePoints оставляет каждую n-ю точку; первая и последняя точки сохраняются всегда.
// n <= 0 является ошибкой программиста.
func DecimatePoints(points []models.Point, n int) []models.Point {
	if n <= 0 {
		panic(fmt.Sprintf("filter: decimation factor must be positive, got %d", n))
	}
	if n == 1 || len(points) <= 2 {
		return points
	}

	out := make([]models.Point, 0, len(points)/n+2)
	last := len(points) - 1
	for i := 0; i <= last; i += n {
		out = append(out, points[i])
	}
	if (last % n) != 0 {
		out = append(out, points[last])
	}
	return out
}

// collapse сворачивает срез в одну синтетическую точку в середине интервала.
// Участвуют только числовые значения; без них результат пуст.
func collapse(points []models.Point, kind AggregationKind) []models.Point {
	values := models.Floats(points)
	if len(values) == 0 {
		return []models.Point{}
	}

	var result float64
	switch kind {
	case AggregationMean:
		result = mean(values)
	case AggregationMax:
		result = values[0]
		for _, v := range values[1:] {
			result = math.Max(result, v)
		}
	case AggregationMin:
		result = values[0]
		for _, v := range values[1:] {
			result = math.Min(result, v)
		}
	case AggregationStd:
		m := mean(values)
		sum := 0.0
		for _, v := range values {
			sum += (v - m) * (v - m)
		}
		result = math.Sqrt(sum / float64(len(values)))
	}

	mid := (points[0].Timestamp + points[len(points)-1].Timestamp) / 2
	return []models.Point{{Timestamp: mid, Value: result}}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
