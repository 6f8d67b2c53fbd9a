package normalizer

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/flybeeper/flightlog-engine/internal/models"
)

// Ключи, под которыми во входных строках встречается временная метка
var timestampKeys = []string{"timestamp", "time", "ts", "t", "time_boot"}

// parseNumber приводит значение к float64, допускаются числовые строки
func parseNumber(v interface{}) (float64, bool) {
	if f, ok := models.ToFloat(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseBool приводит значение к bool: bool, 0/1 и строковые формы
func parseBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1", "lost":
			return true, true
		case "false", "no", "0", "ok":
			return false, true
		}
		return false, false
	}
	if f, ok := models.ToFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

// scalar приводит значение поля к одному из допустимых типов: float64, string, bool
func scalar(v interface{}) (interface{}, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return s, true
	}
	if f, ok := models.ToFloat(v); ok {
		return f, true
	}
	return nil, false
}

// lookup возвращает значение первого присутствующего ключа
func lookup(row map[string]interface{}, keys ...string) (interface{}, string, bool) {
	for _, key := range keys {
		if v, ok := row[key]; ok && v != nil {
			return v, key, true
		}
	}
	return nil, "", false
}

// lookupNumber возвращает первое числовое значение среди ключей
func lookupNumber(row map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := row[key]; ok {
			if f, ok := parseNumber(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// rowTimestamp извлекает временную метку строки-объекта
func rowTimestamp(row map[string]interface{}) (float64, bool) {
	return lookupNumber(row, timestampKeys...)
}

func isTimestampKey(key string) bool {
	for _, k := range timestampKeys {
		if k == key {
			return true
		}
	}
	return false
}

// canonical приводит типизированные Go значения к форме encoding/json:
// []interface{}, map[string]interface{}, float64, string, bool, json.Number
func canonical(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, string, bool, float64, json.Number:
		return v
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = canonical(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = canonical(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = canonical(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return v
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = canonical(iter.Value().Interface())
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return canonical(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

// asMap приводит значение к объекту JSON
func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// asList приводит значение к массиву JSON
func asList(v interface{}) ([]interface{}, bool) {
	l, ok := v.([]interface{})
	return l, ok
}

// fieldAliases описывает каноническое имя поля и его устаревшие варианты
type fieldAliases struct {
	canonical string
	aliases   []string
}

// canonicalFields собирает поля выборки: сначала канонические имена по алиасам,
// затем остальные скалярные поля строки без изменений.
func canonicalFields(row map[string]interface{}, aliases []fieldAliases) map[string]interface{} {
	fields := make(map[string]interface{}, len(row))
	consumed := make(map[string]struct{})

	for _, fa := range aliases {
		for _, key := range append([]string{fa.canonical}, fa.aliases...) {
			raw, ok := row[key]
			if !ok {
				continue
			}
			consumed[key] = struct{}{}
			if _, set := fields[fa.canonical]; set {
				continue
			}
			if v, ok := scalar(raw); ok {
				if f, isNum := parseNumber(v); isNum {
					fields[fa.canonical] = f
				} else {
					fields[fa.canonical] = v
				}
			}
		}
	}

	for key, raw := range row {
		if isTimestampKey(key) {
			continue
		}
		if _, ok := consumed[key]; ok {
			continue
		}
		if v, ok := scalar(raw); ok {
			fields[key] = v
		}
	}
	return fields
}

// timedEntry значение из карты, ключом которой является временная метка
type timedEntry struct {
	timestamp float64
	value     interface{}
}

// timeKeyed разбирает карту {timestamp: value}. Ключи обходятся в лексикографическом
// порядке, чтобы результат не зависел от порядка обхода карты. Возвращает число
// ключей, которые не удалось разобрать как время.
func timeKeyed(m map[string]interface{}) ([]timedEntry, int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]timedEntry, 0, len(keys))
	bad := 0
	for _, k := range keys {
		ts, ok := parseNumber(k)
		if !ok {
			bad++
			continue
		}
		entries = append(entries, timedEntry{timestamp: ts, value: m[k]})
	}
	return entries, bad
}

// sortSamples устойчиво сортирует выборки по времени; равные метки сохраняют порядок поступления
func sortSamples(samples []models.Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp < samples[j].Timestamp
	})
}

// decodeJSON разбирает JSON с сохранением точности чисел
func decodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
