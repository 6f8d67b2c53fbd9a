package normalizer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/flybeeper/flightlog-engine/internal/models"
)

// applyGpsMetadata строит GpsHealth из раздела gps_metadata
func applyGpsMetadata(b *builder, field string, v interface{}) bool {
	m, ok := asMap(v)
	if !ok {
		b.malformed(field, fmt.Sprintf("expected object, got %T", v))
		return false
	}

	health := &models.GpsHealth{}
	if raw, ok := m["status_changes"]; ok && raw != nil {
		health.StatusChanges = parseStatusChanges(b, field+".status_changes", raw)
	}
	if raw, ok := m["satellite_counts"]; ok && raw != nil {
		health.SatelliteCounts = parseSatelliteCounts(b, field+".satellite_counts", raw)
	}
	if raw, ok := m["signal_quality"]; ok && raw != nil {
		health.SignalQuality = parseSignalQuality(b, field+".signal_quality", raw)
	}
	if raw, ok := m["accuracy_metrics"]; ok && raw != nil {
		health.AccuracyMetrics = parseAccuracyMetrics(b, field+".accuracy_metrics", raw)
	}

	if health.Empty() {
		return false
	}
	b.record.GPS = health
	return true
}

// statusName приводит статус GPS к каноническому имени; числовые коды переводятся по таблице
func statusName(raw interface{}) (string, bool) {
	if f, ok := parseNumber(raw); ok {
		return models.GpsStatusFromCode(int(f))
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, s != ""
}

// parseStatusChanges возвращает только переходы статуса: одинаковые подряд идущие
// пары (status, fix_type) схлопываются после сортировки по времени.
func parseStatusChanges(b *builder, field string, v interface{}) []models.GpsStatusChange {
	fromRow := func(_ int, row interface{}) (models.Sample, bool) {
		var ts float64
		var rawStatus, rawFix interface{}
		switch r := row.(type) {
		case map[string]interface{}:
			t, ok := rowTimestamp(r)
			if !ok {
				return models.Sample{}, false
			}
			ts = t
			rawStatus, _, _ = lookup(r, "status", "fix_status", "gps_status")
			rawFix, _, _ = lookup(r, "fix_type", "fixType")
		case []interface{}:
			if len(r) < 2 {
				return models.Sample{}, false
			}
			t, ok := parseNumber(r[0])
			if !ok {
				return models.Sample{}, false
			}
			ts = t
			rawStatus = r[1]
			if len(r) > 2 {
				rawFix = r[2]
			}
		default:
			return models.Sample{}, false
		}

		status, ok := statusName(rawStatus)
		if !ok {
			return models.Sample{}, false
		}
		fields := map[string]interface{}{"status": status}
		if rawFix != nil {
			if fix, ok := scalar(rawFix); ok {
				fields["fix_type"] = fmt.Sprint(fix)
			}
		}
		return models.Sample{Timestamp: ts, Fields: fields}, true
	}

	samples := b.collect(field, v, fromRow, nil)
	sortSamples(samples)

	changes := make([]models.GpsStatusChange, 0, len(samples))
	for _, s := range samples {
		status, _ := s.String("status")
		fix, _ := s.String("fix_type")
		if n := len(changes); n > 0 && changes[n-1].Status == status && changes[n-1].FixType == fix {
			continue
		}
		changes = append(changes, models.GpsStatusChange{Timestamp: s.Timestamp, Status: status, FixType: fix})
	}
	return changes
}

// parseSatelliteCounts принимает числа (время = индекс), пары [ts, count] или объекты
func parseSatelliteCounts(b *builder, field string, v interface{}) []models.SatelliteCount {
	list, ok := asList(v)
	if !ok {
		b.malformed(field, fmt.Sprintf("unsupported shape %T", v))
		return nil
	}

	counts := make([]models.SatelliteCount, 0, len(list))
	for i, item := range list {
		ts := float64(i)
		var count float64
		valid := false

		switch r := item.(type) {
		case map[string]interface{}:
			if t, ok := rowTimestamp(r); ok {
				ts = t
			}
			count, valid = lookupNumber(r, "count", "satellites", "nsats", "num_sats", "value")
		case []interface{}:
			if len(r) >= 2 {
				t, okTS := parseNumber(r[0])
				c, okCount := parseNumber(r[1])
				if okTS && okCount {
					ts, count, valid = t, c, true
				}
			}
		default:
			count, valid = parseNumber(r)
		}

		if !valid || count < 0 {
			b.malformed(field, fmt.Sprintf("uninterpretable row at index %d", i))
			continue
		}
		counts = append(counts, models.SatelliteCount{Timestamp: ts, Count: int(math.Round(count))})
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Timestamp < counts[j].Timestamp })
	return counts
}

func parseSignalQuality(b *builder, field string, v interface{}) []models.SignalQuality {
	fromRow := func(_ int, row interface{}) (models.Sample, bool) {
		var fields map[string]interface{}
		var ts float64
		switch r := row.(type) {
		case map[string]interface{}:
			t, ok := rowTimestamp(r)
			if !ok {
				return models.Sample{}, false
			}
			ts = t
			fields = canonicalFields(r, []fieldAliases{
				{canonical: "hdop", aliases: []string{"HDOP", "hdop_value"}},
				{canonical: "vdop", aliases: []string{"VDOP", "vdop_value"}},
			})
		case []interface{}:
			if len(r) < 2 {
				return models.Sample{}, false
			}
			t, ok := parseNumber(r[0])
			if !ok {
				return models.Sample{}, false
			}
			ts = t
			fields = numericTuple(r[1:], []string{"hdop", "vdop"})
		default:
			return models.Sample{}, false
		}
		if !models.IsNumeric(fields["hdop"]) {
			return models.Sample{}, false
		}
		return models.Sample{Timestamp: ts, Fields: fields}, true
	}

	samples := b.collect(field, v, fromRow, nil)
	sortSamples(samples)

	quality := make([]models.SignalQuality, 0, len(samples))
	for _, s := range samples {
		hdop, _ := s.Float("hdop")
		q := models.SignalQuality{Timestamp: s.Timestamp, HDOP: hdop}
		if vdop, ok := s.Float("vdop"); ok {
			q.VDOP = models.Bound(vdop)
		}
		quality = append(quality, q)
	}
	return quality
}

func parseAccuracyMetrics(b *builder, field string, v interface{}) []models.AccuracyMetric {
	names := []string{"hacc", "vacc", "sacc"}
	fromRow := func(_ int, row interface{}) (models.Sample, bool) {
		var fields map[string]interface{}
		var ts float64
		switch r := row.(type) {
		case map[string]interface{}:
			t, ok := rowTimestamp(r)
			if !ok {
				return models.Sample{}, false
			}
			ts = t
			fields = canonicalFields(r, []fieldAliases{
				{canonical: "hacc", aliases: []string{"HAcc", "h_acc", "horizontal_accuracy"}},
				{canonical: "vacc", aliases: []string{"VAcc", "v_acc", "vertical_accuracy"}},
				{canonical: "sacc", aliases: []string{"SAcc", "s_acc", "speed_accuracy"}},
			})
		case []interface{}:
			if len(r) < 2 {
				return models.Sample{}, false
			}
			t, ok := parseNumber(r[0])
			if !ok {
				return models.Sample{}, false
			}
			ts = t
			fields = numericTuple(r[1:], names)
		default:
			return models.Sample{}, false
		}
		for _, name := range names {
			if models.IsNumeric(fields[name]) {
				return models.Sample{Timestamp: ts, Fields: fields}, true
			}
		}
		return models.Sample{}, false
	}

	samples := b.collect(field, v, fromRow, nil)
	sortSamples(samples)

	metrics := make([]models.AccuracyMetric, 0, len(samples))
	for _, s := range samples {
		m := models.AccuracyMetric{Timestamp: s.Timestamp}
		if f, ok := s.Float("hacc"); ok {
			m.HAcc = models.Bound(f)
		}
		if f, ok := s.Float("vacc"); ok {
			m.VAcc = models.Bound(f)
		}
		if f, ok := s.Float("sacc"); ok {
			m.SAcc = models.Bound(f)
		}
		metrics = append(metrics, m)
	}
	return metrics
}
