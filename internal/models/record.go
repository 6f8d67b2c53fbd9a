package models

import (
	"sort"
)

// Канонические имена серий FlightRecord
const (
	SeriesAttitude    = "attitude"
	SeriesBattery     = "battery"
	SeriesRCInputs    = "rc_inputs"
	SeriesEvents      = "events"
	SeriesFlightModes = "flight_modes"
	SeriesMission     = "mission"
)

// Metadata метаданные полетного лога
type Metadata struct {
	StartTime     float64 `json:"start_time,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
	SchemaVersion string  `json:"schema_version,omitempty"`
}

// DiagnosticKind вид проблемы входных данных
type DiagnosticKind string

// DiagnosticMalformedInput поле присутствовало, но не распознано и нормализовано в отсутствие
const DiagnosticMalformedInput DiagnosticKind = "MalformedInput"

// Diagnostic запись о поле, отброшенном при нормализации
type Diagnostic struct {
	Field  string         `json:"field"`
	Kind   DiagnosticKind `json:"kind"`
	Detail string         `json:"detail"`
}

// Sample одна временная точка серии
type Sample struct {
	Timestamp float64                `json:"timestamp"`
	Fields    map[string]interface{} `json:"fields"`
	Position  *GeoPoint              `json:"position,omitempty"`
}

// Float возвращает числовое поле выборки
func (s Sample) Float(name string) (float64, bool) {
	v, ok := s.Fields[name]
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// String возвращает строковое поле выборки
func (s Sample) String(name string) (string, bool) {
	v, ok := s.Fields[name].(string)
	return v, ok
}

// Bool возвращает логическое поле выборки
func (s Sample) Bool(name string) (bool, bool) {
	v, ok := s.Fields[name].(bool)
	return v, ok
}

// Series упорядоченная по времени последовательность выборок одного потока.
// Серия либо непуста, либо отсутствует в FlightRecord.
type Series struct {
	Name    string   `json:"name"`
	Samples []Sample `json:"samples"`
}

// Len возвращает количество выборок
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Samples)
}

// Span возвращает первую и последнюю временные метки серии
func (s *Series) Span() (start, end float64, ok bool) {
	if s.Len() == 0 {
		return 0, 0, false
	}
	return s.Samples[0].Timestamp, s.Samples[len(s.Samples)-1].Timestamp, true
}

// FieldNames возвращает отсортированный список полей, встречающихся в серии
func (s *Series) FieldNames() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, sample := range s.Samples {
		for name := range sample.Fields {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trajectory именованная траектория в двух возможных формах
type Trajectory struct {
	Name string `json:"name"`
	// Track точки из формы trajectory: [[lon, lat, alt, ts], ...]
	Track *Series `json:"track,omitempty"`
	// TimeTrack точки из формы timeTrajectory: {ts: [lon, lat, alt, ts]}
	TimeTrack *Series `json:"time_track,omitempty"`
}

// Points возвращает предпочтительную форму траектории
func (t *Trajectory) Points() *Series {
	if t == nil {
		return nil
	}
	if t.Track.Len() > 0 {
		return t.Track
	}
	if t.TimeTrack.Len() > 0 {
		return t.TimeTrack
	}
	return nil
}

// FlightRecord нормализованный полетный лог. После нормализации не изменяется.
type FlightRecord struct {
	ID           string                 `json:"id"`
	Vehicle      VehicleKind            `json:"vehicle"`
	LogType      string                 `json:"log_type,omitempty"`
	Metadata     Metadata               `json:"metadata"`
	Series       map[string]*Series     `json:"series"`
	Trajectories map[string]*Trajectory `json:"trajectories,omitempty"`
	Params       map[string]interface{} `json:"params,omitempty"`
	GPS          *GpsHealth             `json:"gps,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
	Diagnostics  []Diagnostic           `json:"diagnostics,omitempty"`
}

// NewFlightRecord создает пустую запись с инициализированными картами
func NewFlightRecord() *FlightRecord {
	return &FlightRecord{
		Vehicle:      VehicleUnknown,
		Series:       make(map[string]*Series),
		Trajectories: make(map[string]*Trajectory),
		Params:       make(map[string]interface{}),
		Extra:        make(map[string]interface{}),
	}
}

// SeriesByName возвращает серию или nil, если она отсутствует
func (r *FlightRecord) SeriesByName(name string) *Series {
	if r == nil || r.Series == nil {
		return nil
	}
	s := r.Series[name]
	if s.Len() == 0 {
		return nil
	}
	return s
}

// SeriesNames возвращает отсортированные имена присутствующих серий
func (r *FlightRecord) SeriesNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Series))
	for name, s := range r.Series {
		if s.Len() > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// TrajectoryNames возвращает отсортированные имена траекторий с данными
func (r *FlightRecord) TrajectoryNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Trajectories))
	for name, t := range r.Trajectories {
		if t.Points() != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// PrimaryTrajectoryName имя основной траектории: "GPS", если есть, иначе первая по алфавиту
func PrimaryTrajectoryName(names []string) string {
	for _, name := range names {
		if name == "GPS" {
			return name
		}
	}
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// PrimaryTrajectory возвращает основную траекторию или nil
func (r *FlightRecord) PrimaryTrajectory() *Trajectory {
	if r == nil {
		return nil
	}
	name := PrimaryTrajectoryName(r.TrajectoryNames())
	if name == "" {
		return nil
	}
	return r.Trajectories[name]
}
