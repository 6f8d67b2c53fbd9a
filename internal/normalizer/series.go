package normalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flybeeper/flightlog-engine/internal/models"
)

var attitudeFields = []fieldAliases{
	{canonical: "roll", aliases: []string{"Roll", "r"}},
	{canonical: "pitch", aliases: []string{"Pitch", "p"}},
	{canonical: "yaw", aliases: []string{"Yaw", "heading", "y"}},
}

var batteryFields = []fieldAliases{
	{canonical: "voltage", aliases: []string{"Volt", "volt", "V", "battery_voltage"}},
	{canonical: "current", aliases: []string{"Curr", "curr", "I", "battery_current"}},
	{canonical: "remaining", aliases: []string{"rem", "Rem", "battery_remaining", "percent"}},
	{canonical: "temperature", aliases: []string{"temp", "Temp", "battery_temperature"}},
}

var rcFields = []fieldAliases{
	{canonical: "signal_strength", aliases: []string{"rssi", "RSSI", "signal"}},
}

// numericTuple заполняет поля выборки числовыми элементами массива по позициям
func numericTuple(values []interface{}, names []string) map[string]interface{} {
	fields := make(map[string]interface{}, len(names))
	for i, name := range names {
		if i >= len(values) {
			break
		}
		if f, ok := parseNumber(values[i]); ok {
			fields[name] = f
		}
	}
	return fields
}

// hasAny сообщает, присутствует ли хотя бы одно из полей
func hasAny(fields map[string]interface{}, names ...string) bool {
	for _, name := range names {
		if _, ok := fields[name]; ok {
			return true
		}
	}
	return false
}

func applyAttitude(b *builder, field string, v interface{}) bool {
	names := []string{"roll", "pitch", "yaw"}
	fromRow := func(_ int, row interface{}) (models.Sample, bool) {
		switch r := row.(type) {
		case map[string]interface{}:
			ts, ok := rowTimestamp(r)
			if !ok {
				return models.Sample{}, false
			}
			fields := canonicalFields(r, attitudeFields)
			return models.Sample{Timestamp: ts, Fields: fields}, hasAny(fields, names...)
		case []interface{}:
			if len(r) < 2 {
				return models.Sample{}, false
			}
			ts, ok := parseNumber(r[0])
			if !ok {
				return models.Sample{}, false
			}
			fields := numericTuple(r[1:], names)
			return models.Sample{Timestamp: ts, Fields: fields}, hasAny(fields, names...)
		}
		return models.Sample{}, false
	}
	fromKeyed := func(ts float64, row interface{}) (models.Sample, bool) {
		switch r := row.(type) {
		case []interface{}:
			fields := numericTuple(r, names)
			return models.Sample{Timestamp: ts, Fields: fields}, hasAny(fields, names...)
		case map[string]interface{}:
			fields := canonicalFields(r, attitudeFields)
			return models.Sample{Timestamp: ts, Fields: fields}, hasAny(fields, names...)
		}
		return models.Sample{}, false
	}
	return b.addSeries(models.SeriesAttitude, b.collect(field, v, fromRow, fromKeyed))
}

func applyBattery(b *builder, field string, v interface{}) bool {
	names := []string{"voltage", "current", "remaining", "temperature"}
	fromRow := func(_ int, row interface{}) (models.Sample, bool) {
		switch r := row.(type) {
		case map[string]interface{}:
			ts, ok := rowTimestamp(r)
			if !ok {
				return models.Sample{}, false
			}
			fields := canonicalFields(r, batteryFields)
			return models.Sample{Timestamp: ts, Fields: fields}, hasAny(fields, names...)
		case []interface{}:
			if len(r) < 2 {
				return models.Sample{}, false
			}
			ts, ok := parseNumber(r[0])
			if !ok {
				return models.Sample{}, false
			}
			fields := numericTuple(r[1:], names)
			return models.Sample{Timestamp: ts, Fields: fields}, hasAny(fields, names...)
		}
		return models.Sample{}, false
	}
	fromKeyed := func(ts float64, row interface{}) (models.Sample, bool) {
		switch r := row.(type) {
		case []interface{}:
			fields := numericTuple(r, names)
			return models.Sample{Timestamp: ts, Fields: fields}, hasAny(fields, names...)
		case map[string]interface{}:
			fields := canonicalFields(r, batteryFields)
			return models.Sample{Timestamp: ts, Fields: fields}, hasAny(fields, names...)
		default:
			if f, ok := parseNumber(r); ok {
				return models.Sample{Timestamp: ts, Fields: map[string]interface{}{"voltage": f}}, true
			}
		}
		return models.Sample{}, false
	}
	return b.addSeries(models.SeriesBattery, b.collect(field, v, fromRow, fromKeyed))
}

// rcSample строит выборку RC входа из объекта
func rcSample(ts float64, r map[string]interface{}) (models.Sample, bool) {
	fields := canonicalFields(r, rcFields)

	for _, key := range []string{"signal_lost", "failsafe", "lost"} {
		raw, ok := r[key]
		if !ok {
			continue
		}
		delete(fields, key)
		if _, set := fields["signal_lost"]; set {
			continue
		}
		if lost, ok := parseBool(raw); ok {
			fields["signal_lost"] = lost
		}
	}

	if channels, ok := asList(r["channels"]); ok {
		for i, ch := range channels {
			if f, ok := parseNumber(ch); ok {
				fields[fmt.Sprintf("ch%d", i+1)] = f
			}
		}
	}

	return models.Sample{Timestamp: ts, Fields: fields}, len(fields) > 0
}

func applyRCInputs(b *builder, field string, v interface{}) bool {
	fromRow := func(_ int, row interface{}) (models.Sample, bool) {
		switch r := row.(type) {
		case map[string]interface{}:
			ts, ok := rowTimestamp(r)
			if !ok {
				return models.Sample{}, false
			}
			return rcSample(ts, r)
		case []interface{}:
			if len(r) < 2 {
				return models.Sample{}, false
			}
			ts, ok := parseNumber(r[0])
			if !ok {
				return models.Sample{}, false
			}
			fields := numericTuple(r[1:2], []string{"signal_strength"})
			if len(r) > 2 {
				if lost, ok := parseBool(r[2]); ok {
					fields["signal_lost"] = lost
				}
			}
			return models.Sample{Timestamp: ts, Fields: fields}, len(fields) > 0
		}
		return models.Sample{}, false
	}
	fromKeyed := func(ts float64, row interface{}) (models.Sample, bool) {
		if r, ok := asMap(row); ok {
			return rcSample(ts, r)
		}
		return models.Sample{}, false
	}
	return b.addSeries(models.SeriesRCInputs, b.collect(field, v, fromRow, fromKeyed))
}

// modeValue приводит режим полета к скаляру
func modeValue(raw interface{}) (interface{}, bool) {
	value, ok := scalar(raw)
	if !ok {
		return nil, false
	}
	if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return value, true
}

func applyFlightModes(b *builder, field string, v interface{}) bool {
	fromRow := func(_ int, row interface{}) (models.Sample, bool) {
		switch r := row.(type) {
		case []interface{}:
			if len(r) < 2 {
				return models.Sample{}, false
			}
			ts, ok := parseNumber(r[0])
			if !ok {
				return models.Sample{}, false
			}
			mode, ok := modeValue(r[1])
			if !ok {
				return models.Sample{}, false
			}
			return models.Sample{Timestamp: ts, Fields: map[string]interface{}{"mode": mode}}, true
		case map[string]interface{}:
			ts, ok := rowTimestamp(r)
			if !ok {
				return models.Sample{}, false
			}
			raw, _, ok := lookup(r, "mode", "name", "flight_mode")
			if !ok {
				return models.Sample{}, false
			}
			mode, ok := modeValue(raw)
			if !ok {
				return models.Sample{}, false
			}
			return models.Sample{Timestamp: ts, Fields: map[string]interface{}{"mode": mode}}, true
		}
		return models.Sample{}, false
	}
	fromKeyed := func(ts float64, row interface{}) (models.Sample, bool) {
		mode, ok := modeValue(row)
		if !ok {
			return models.Sample{}, false
		}
		return models.Sample{Timestamp: ts, Fields: map[string]interface{}{"mode": mode}}, true
	}
	return b.addSeries(models.SeriesFlightModes, b.collect(field, v, fromRow, fromKeyed))
}

// Значения событий по умолчанию
const (
	DefaultEventType     = "EVENT"
	DefaultEventSeverity = "info"
)

// eventSample строит выборку события из объекта
func eventSample(ts float64, r map[string]interface{}) models.Sample {
	fields := map[string]interface{}{
		"type":     DefaultEventType,
		"message":  "",
		"severity": DefaultEventSeverity,
	}
	consumed := map[string]struct{}{}

	if raw, key, ok := lookup(r, "type", "event_type", "event", "name"); ok {
		consumed[key] = struct{}{}
		if s, ok := raw.(string); ok && s != "" {
			fields["type"] = s
		}
	}
	if raw, key, ok := lookup(r, "message", "msg", "text", "label", "description"); ok {
		consumed[key] = struct{}{}
		if s, ok := scalar(raw); ok {
			fields["message"] = fmt.Sprint(s)
		}
	}
	if raw, key, ok := lookup(r, "severity", "level"); ok {
		consumed[key] = struct{}{}
		if s, ok := raw.(string); ok && s != "" {
			fields["severity"] = strings.ToLower(s)
		}
	}

	for key, raw := range r {
		if isTimestampKey(key) {
			continue
		}
		if _, ok := consumed[key]; ok {
			continue
		}
		if _, reserved := fields[key]; reserved {
			continue
		}
		if value, ok := scalar(raw); ok {
			fields[key] = value
		}
	}
	return models.Sample{Timestamp: ts, Fields: fields}
}

func applyEvents(b *builder, field string, v interface{}) bool {
	fromRow := func(_ int, row interface{}) (models.Sample, bool) {
		switch r := row.(type) {
		case []interface{}:
			if len(r) < 2 {
				return models.Sample{}, false
			}
			ts, ok := parseNumber(r[0])
			if !ok {
				return models.Sample{}, false
			}
			label, ok := scalar(r[1])
			if !ok {
				return models.Sample{}, false
			}
			return eventSample(ts, map[string]interface{}{"message": fmt.Sprint(label)}), true
		case map[string]interface{}:
			ts, ok := rowTimestamp(r)
			if !ok {
				return models.Sample{}, false
			}
			return eventSample(ts, r), true
		}
		return models.Sample{}, false
	}
	fromKeyed := func(ts float64, row interface{}) (models.Sample, bool) {
		if r, ok := asMap(row); ok {
			return eventSample(ts, r), true
		}
		if label, ok := scalar(row); ok {
			return eventSample(ts, map[string]interface{}{"message": fmt.Sprint(label)}), true
		}
		return models.Sample{}, false
	}
	return b.addSeries(models.SeriesEvents, b.collect(field, v, fromRow, fromKeyed))
}

// applyMission разбирает элементы миссии. Элементы без времени индексируются по позиции.
func applyMission(b *builder, field string, v interface{}) bool {
	fromRow := func(index int, row interface{}) (models.Sample, bool) {
		fields := map[string]interface{}{"seq": float64(index)}
		ts := float64(index)
		switch r := row.(type) {
		case map[string]interface{}:
			if t, ok := rowTimestamp(r); ok {
				ts = t
			}
			for key, raw := range r {
				if isTimestampKey(key) {
					continue
				}
				if value, ok := scalar(raw); ok {
					fields[key] = value
				}
			}
		case []interface{}:
			for i, raw := range r {
				if value, ok := scalar(raw); ok {
					fields[fmt.Sprintf("param%d", i+1)] = value
				}
			}
		default:
			return models.Sample{}, false
		}
		return models.Sample{Timestamp: ts, Fields: fields}, len(fields) > 1
	}
	return b.addSeries(models.SeriesMission, b.collect(field, v, fromRow, nil))
}

// trackPoint разбирает точку траектории [lon, lat, alt?, ts?] или объект
func trackPoint(row interface{}) (models.GeoPoint, float64, bool, bool) {
	var p models.GeoPoint
	switch r := row.(type) {
	case []interface{}:
		if len(r) < 2 {
			return p, 0, false, false
		}
		lon, okLon := parseNumber(r[0])
		lat, okLat := parseNumber(r[1])
		if !okLon || !okLat {
			return p, 0, false, false
		}
		p.Longitude, p.Latitude = lon, lat
		if len(r) > 2 {
			if alt, ok := parseNumber(r[2]); ok {
				p.Altitude = alt
			}
		}
		if len(r) > 3 {
			if ts, ok := parseNumber(r[3]); ok {
				return p, ts, true, true
			}
		}
		return p, 0, false, true
	case map[string]interface{}:
		lon, okLon := lookupNumber(r, "lon", "lng", "longitude")
		lat, okLat := lookupNumber(r, "lat", "latitude")
		if !okLon || !okLat {
			return p, 0, false, false
		}
		p.Longitude, p.Latitude = lon, lat
		if alt, ok := lookupNumber(r, "alt", "altitude", "height"); ok {
			p.Altitude = alt
		}
		if ts, ok := rowTimestamp(r); ok {
			return p, ts, true, true
		}
		return p, 0, false, true
	}
	return p, 0, false, false
}

func positionSample(ts float64, p models.GeoPoint) models.Sample {
	pos := p
	return models.Sample{
		Timestamp: ts,
		Fields: map[string]interface{}{
			"lon": p.Longitude,
			"lat": p.Latitude,
			"alt": p.Altitude,
		},
		Position: &pos,
	}
}

// applyTrajectories разбирает карту именованных траекторий. Каждая траектория
// может содержать форму trajectory и/или timeTrajectory; недостающая форма не достраивается.
func applyTrajectories(b *builder, field string, v interface{}) bool {
	m, ok := asMap(v)
	if !ok {
		b.malformed(field, fmt.Sprintf("expected object, got %T", v))
		return false
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := field + "." + name
		t := &models.Trajectory{Name: name}

		var trackRaw, timeRaw interface{}
		switch body := m[name].(type) {
		case map[string]interface{}:
			trackRaw = body["trajectory"]
			timeRaw = body["timeTrajectory"]
			if timeRaw == nil {
				timeRaw = body["time_trajectory"]
			}
		case []interface{}:
			trackRaw = body
		default:
			b.malformed(path, fmt.Sprintf("unsupported shape %T", m[name]))
			continue
		}

		fromRow := func(index int, row interface{}) (models.Sample, bool) {
			p, ts, hasTS, ok := trackPoint(row)
			if !ok {
				return models.Sample{}, false
			}
			if !hasTS {
				ts = float64(index)
			}
			return positionSample(ts, p), true
		}

		if trackRaw != nil {
			samples := b.collect(path+".trajectory", trackRaw, fromRow, nil)
			if len(samples) > 0 {
				sortSamples(samples)
				t.Track = &models.Series{Name: name, Samples: samples}
			}
		}

		if timeRaw != nil {
			fromKeyed := func(ts float64, row interface{}) (models.Sample, bool) {
				p, _, _, ok := trackPoint(row)
				if !ok {
					return models.Sample{}, false
				}
				return positionSample(ts, p), true
			}
			samples := b.collect(path+".timeTrajectory", timeRaw, fromRow, fromKeyed)
			if len(samples) > 0 {
				sortSamples(samples)
				t.TimeTrack = &models.Series{Name: name, Samples: samples}
			}
		}

		if t.Points() != nil {
			b.record.Trajectories[name] = t
		}
	}
	return len(b.record.Trajectories) > 0
}
