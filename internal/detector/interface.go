package detector

import (
	"sort"

	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/resolver"
)

// Input данные, доступные правилам детектора. Правила не изменяют запись.
type Input struct {
	Record    *models.FlightRecord
	Summaries map[string]models.StatSummary

	resolver *resolver.Resolver
}

// NewInput создает вход детектора; nil резолвер заменяется стандартным
func NewInput(record *models.FlightRecord, summaries map[string]models.StatSummary, res *resolver.Resolver) *Input {
	if res == nil {
		res = resolver.NewResolver(nil)
	}
	return &Input{Record: record, Summaries: summaries, resolver: res}
}

// Resolve разрешает логическое имя параметра по записи без поиска по подстроке
func (in *Input) Resolve(name string) []models.Point {
	return in.resolver.ResolveKnown(in.Record, name)
}

// SummaryNames возвращает отсортированные имена параметров, для которых есть сводка
func (in *Input) SummaryNames() []string {
	names := make([]string, 0, len(in.Summaries))
	for name := range in.Summaries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GPS возвращает производную информацию о GPS или nil
func (in *Input) GPS() *models.GpsHealth {
	if in.Record == nil || in.Record.GPS.Empty() {
		return nil
	}
	return in.Record.GPS
}

// Rule правило обнаружения аномалий
type Rule interface {
	// Detect возвращает найденные аномалии; отсутствие нужной серии дает пустой результат
	Detect(in *Input) []models.Anomaly

	// Name возвращает имя правила
	Name() string

	// Description возвращает описание правила
	Description() string
}
