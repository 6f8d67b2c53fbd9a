package models

import (
	"encoding/json"
	"math"
)

// Point значение параметра во времени, результат разрешения параметра
type Point struct {
	Timestamp float64                `json:"timestamp"`
	Value     interface{}            `json:"value"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Float возвращает числовое значение точки
func (p Point) Float() (float64, bool) {
	return ToFloat(p.Value)
}

// ToFloat приводит числовое значение к float64.
// Строки и bool числами не считаются, NaN и бесконечности отбрасываются.
func ToFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsNumeric сообщает, является ли значение числом
func IsNumeric(v interface{}) bool {
	_, ok := ToFloat(v)
	return ok
}

// Floats извлекает числовые значения точек, пропуская нечисловые
func Floats(points []Point) []float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if f, ok := p.Float(); ok {
			values = append(values, f)
		}
	}
	return values
}
