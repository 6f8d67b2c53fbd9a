package normalizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/flybeeper/flightlog-engine/internal/metrics"
	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

// recordNamespace пространство имен для детерминированных идентификаторов записей
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://flybeeper.com/flightlog/record"))

// Normalizer приводит полетные логи разных диалектов к FlightRecord.
// Normalize тотальна: некорректные поля превращаются в отсутствие данных
// и фиксируются в Diagnostics, ошибка не возвращается.
type Normalizer struct {
	logger *utils.Logger
	// Ограничение частоты предупреждений о некорректных полях
	warnLimiter *rate.Limiter
}

// NewNormalizer создает новый нормализатор
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{
		logger:      utils.OrDefault(logger),
		warnLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

// section обработчик одного раздела входного документа
type section struct {
	// keys варианты имени раздела в порядке предпочтения
	keys []string
	// apply разбирает значение раздела и сообщает, были ли получены данные
	apply func(b *builder, field string, v interface{}) bool
}

var sections = []section{
	{keys: []string{"vehicle", "vehicleType", "vehicle_type"}, apply: applyVehicle},
	{keys: []string{"logType", "log_type"}, apply: applyLogType},
	{keys: []string{"metadata"}, apply: applyMetadata},
	{keys: []string{"params", "parameters"}, apply: applyParams},
	{keys: []string{"trajectories"}, apply: applyTrajectories},
	{keys: []string{"gps_metadata", "gpsMetadata"}, apply: applyGpsMetadata},
	{keys: []string{"attitude_series", "attitudeSeries", "attitude", "timeAttitude"}, apply: applyAttitude},
	{keys: []string{"battery_series", "batterySeries", "battery"}, apply: applyBattery},
	{keys: []string{"rc_inputs", "rcInputs"}, apply: applyRCInputs},
	{keys: []string{"flightModeChanges", "flight_mode_changes", "flight_modes", "modes"}, apply: applyFlightModes},
	{keys: []string{"events"}, apply: applyEvents},
	{keys: []string{"mission"}, apply: applyMission},
}

var knownKeys = func() map[string]struct{} {
	known := make(map[string]struct{})
	for _, s := range sections {
		for _, k := range s.keys {
			known[k] = struct{}{}
		}
	}
	return known
}()

// NormalizeJSON разбирает JSON документ и нормализует его.
// Ошибка возвращается только для синтаксически некорректного JSON.
func (n *Normalizer) NormalizeJSON(data []byte) (*models.FlightRecord, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flight log: %w", err)
	}
	return n.normalize(raw, raw), nil
}

// Normalize строит FlightRecord из JSON-подобного значения. Кроме результата
// encoding/json принимаются типизированные Go значения: срезы и массивы,
// карты со строковыми ключами, числа любых числовых типов и указатели на них.
// Структуры не разбираются и считаются некорректным вводом.
func (n *Normalizer) Normalize(raw interface{}) *models.FlightRecord {
	return n.normalize(canonical(raw), raw)
}

// normalize разбирает канонизированное значение; original нужен, чтобы
// сохранить неизвестные поля в Extra в исходном виде
func (n *Normalizer) normalize(raw, original interface{}) *models.FlightRecord {
	start := time.Now()
	b := newBuilder()
	b.record.ID = recordID(raw)

	root, ok := asMap(raw)
	if !ok {
		b.malformed("$", fmt.Sprintf("top-level value is %T, expected object", original))
	}
	verbatim, ok := original.(map[string]interface{})
	if !ok {
		verbatim = root
	}

	extra := make(map[string]struct{})
	for _, s := range sections {
		consumed := false
		for _, key := range s.keys {
			v, present := root[key]
			if !present || v == nil {
				continue
			}
			// Раздел уже получен из предпочтительного ключа, дубликат сохраняется как есть
			if consumed {
				extra[key] = struct{}{}
				continue
			}
			consumed = s.apply(b, key, v)
		}
	}

	for key := range root {
		if _, known := knownKeys[key]; !known {
			extra[key] = struct{}{}
		}
	}
	for key := range extra {
		b.record.Extra[key] = verbatim[key]
	}

	record := b.finish()
	n.observe(record, time.Since(start))
	return record
}

// observe пишет метрики и журнал по результату нормализации
func (n *Normalizer) observe(record *models.FlightRecord, duration time.Duration) {
	metrics.NormalizeDuration.Observe(duration.Seconds())
	metrics.NormalizedRecords.WithLabelValues(record.Vehicle.String()).Inc()

	total := 0
	for name, s := range record.Series {
		metrics.NormalizedSamples.WithLabelValues(name).Add(float64(s.Len()))
		total += s.Len()
	}
	for _, t := range record.Trajectories {
		count := t.Track.Len() + t.TimeTrack.Len()
		metrics.NormalizedSamples.WithLabelValues("trajectory").Add(float64(count))
		total += count
	}

	for _, d := range record.Diagnostics {
		metrics.MalformedInputs.WithLabelValues(sectionLabel(d.Field)).Inc()
		if n.warnLimiter.Allow() {
			n.logger.WithField("record_id", record.ID).
				WithField("field", d.Field).
				WithField("detail", d.Detail).
				Warn("Malformed input normalized to absence")
		}
	}

	n.logger.WithFields(map[string]interface{}{
		"record_id":    record.ID,
		"vehicle":      record.Vehicle.String(),
		"series":       len(record.Series),
		"trajectories": len(record.Trajectories),
		"samples":      total,
		"diagnostics":  len(record.Diagnostics),
		"duration_ms":  duration.Milliseconds(),
	}).Debug("Flight log normalized")
}

// sectionLabel сводит путь поля к ключу раздела верхнего уровня. Пути содержат
// имена траекторий из входа, поэтому в метки метрик попадает только раздел.
func sectionLabel(field string) string {
	section, _, _ := strings.Cut(field, ".")
	if _, known := knownKeys[section]; known {
		return section
	}
	return "$"
}

// recordID вычисляет детерминированный идентификатор по каноническому JSON входа.
// Значения, которые JSON не представляет (NaN, Inf), кодируются через %#v:
// fmt печатает карты с отсортированными ключами, поэтому результат тоже детерминирован.
func recordID(raw interface{}) string {
	data, err := json.Marshal(raw)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", raw))
	}
	return uuid.NewSHA1(recordNamespace, data).String()
}

// issue накопленные сведения о некорректном поле
type issue struct {
	detail string
	count  int
}

// builder собирает FlightRecord в процессе одной нормализации
type builder struct {
	record *models.FlightRecord
	issues map[string]*issue
}

func newBuilder() *builder {
	return &builder{
		record: models.NewFlightRecord(),
		issues: make(map[string]*issue),
	}
}

// malformed фиксирует нераспознанное поле; повторы по одному полю агрегируются
func (b *builder) malformed(field, detail string) {
	if is, ok := b.issues[field]; ok {
		is.count++
		return
	}
	b.issues[field] = &issue{detail: detail, count: 1}
}

// addSeries сортирует выборки и добавляет серию, только если она непуста
func (b *builder) addSeries(name string, samples []models.Sample) bool {
	if len(samples) == 0 {
		return false
	}
	sortSamples(samples)
	b.record.Series[name] = &models.Series{Name: name, Samples: samples}
	return true
}

func (b *builder) finish() *models.FlightRecord {
	fields := make([]string, 0, len(b.issues))
	for field := range b.issues {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		is := b.issues[field]
		detail := is.detail
		if is.count > 1 {
			detail = fmt.Sprintf("%s (%d occurrences)", is.detail, is.count)
		}
		b.record.Diagnostics = append(b.record.Diagnostics, models.Diagnostic{
			Field:  field,
			Kind:   models.DiagnosticMalformedInput,
			Detail: detail,
		})
	}

	if b.record.GPS.Empty() {
		b.record.GPS = nil
	}
	return b.record
}

// collect разбирает раздел, заданный списком строк или картой {timestamp: row}
func (b *builder) collect(
	field string,
	v interface{},
	fromRow func(index int, row interface{}) (models.Sample, bool),
	fromKeyed func(ts float64, row interface{}) (models.Sample, bool),
) []models.Sample {
	switch data := v.(type) {
	case []interface{}:
		samples := make([]models.Sample, 0, len(data))
		for i, row := range data {
			sample, ok := fromRow(i, row)
			if !ok {
				b.malformed(field, fmt.Sprintf("uninterpretable row at index %d", i))
				continue
			}
			samples = append(samples, sample)
		}
		return samples
	case map[string]interface{}:
		if fromKeyed == nil {
			break
		}
		entries, bad := timeKeyed(data)
		for i := 0; i < bad; i++ {
			b.malformed(field, "non-numeric timestamp key")
		}
		samples := make([]models.Sample, 0, len(entries))
		for _, e := range entries {
			sample, ok := fromKeyed(e.timestamp, e.value)
			if !ok {
				b.malformed(field, fmt.Sprintf("uninterpretable entry at timestamp %g", e.timestamp))
				continue
			}
			samples = append(samples, sample)
		}
		return samples
	}
	b.malformed(field, fmt.Sprintf("unsupported shape %T", v))
	return nil
}

func applyVehicle(b *builder, field string, v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		b.malformed(field, fmt.Sprintf("expected string, got %T", v))
		return false
	}
	b.record.Vehicle = models.ParseVehicleKind(s)
	return true
}

func applyLogType(b *builder, field string, v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		b.malformed(field, fmt.Sprintf("expected string, got %T", v))
		return false
	}
	b.record.LogType = s
	return true
}

func applyMetadata(b *builder, field string, v interface{}) bool {
	m, ok := asMap(v)
	if !ok {
		b.malformed(field, fmt.Sprintf("expected object, got %T", v))
		return false
	}
	if start, ok := lookupNumber(m, "startTime", "start_time", "start"); ok {
		b.record.Metadata.StartTime = start
	}
	if duration, ok := lookupNumber(m, "duration", "flight_duration"); ok {
		b.record.Metadata.Duration = duration
	}
	if version, _, ok := lookup(m, "schemaVersion", "schema_version", "version"); ok {
		if sv, ok := scalar(version); ok {
			b.record.Metadata.SchemaVersion = fmt.Sprint(sv)
		}
	}
	return true
}

// applyParams принимает карту {name: value} или тройки [timestamp, name, value];
// при повторе имени сохраняется последнее значение в порядке массива.
func applyParams(b *builder, field string, v interface{}) bool {
	params := b.record.Params
	switch data := v.(type) {
	case map[string]interface{}:
		for name, raw := range data {
			value, ok := scalar(raw)
			if !ok {
				b.malformed(field, "non-scalar parameter value")
				continue
			}
			params[name] = value
		}
	case []interface{}:
		for i, item := range data {
			name, value, ok := parseParamEntry(item)
			if !ok {
				b.malformed(field, fmt.Sprintf("uninterpretable parameter entry at index %d", i))
				continue
			}
			params[name] = value
		}
	default:
		b.malformed(field, fmt.Sprintf("unsupported shape %T", v))
		return false
	}
	return len(params) > 0
}

func parseParamEntry(item interface{}) (string, interface{}, bool) {
	switch entry := item.(type) {
	case []interface{}:
		if len(entry) < 3 {
			return "", nil, false
		}
		name, ok := entry[1].(string)
		if !ok || name == "" {
			return "", nil, false
		}
		value, ok := scalar(entry[2])
		return name, value, ok
	case map[string]interface{}:
		rawName, _, ok := lookup(entry, "name", "param", "id")
		if !ok {
			return "", nil, false
		}
		name, ok := rawName.(string)
		if !ok || name == "" {
			return "", nil, false
		}
		rawValue, _, ok := lookup(entry, "value", "val")
		if !ok {
			return "", nil, false
		}
		value, ok := scalar(rawValue)
		return name, value, ok
	}
	return "", nil, false
}
