package resolver

import (
	"sort"
	"strings"

	"github.com/flybeeper/flightlog-engine/internal/metrics"
	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

// Имена стратегий сопоставления
const (
	StrategyExact           = "exact"
	StrategyAlias           = "alias"
	StrategyCaseInsensitive = "case_insensitive"
	StrategySubstring       = "substring"
	StrategyUnresolved      = "unresolved"
)

// Resolution результат разрешения логического имени параметра
type Resolution struct {
	Query    string         `json:"query"`
	Source   string         `json:"source,omitempty"`
	Strategy string         `json:"strategy"`
	Points   []models.Point `json:"points"`
}

// strategy одна ступень цепочки разрешения: возвращает имя источника и непустые точки
type strategy struct {
	name    string
	resolve func(c *catalog, query string) (string, []models.Point)
}

// Resolver сопоставляет логическое имя параметра с каноническими сериями записи.
// Стратегии применяются по порядку, побеждает первый непустой результат.
type Resolver struct {
	logger     *utils.Logger
	strategies []strategy
}

// NewResolver создает резолвер со стандартной цепочкой стратегий
func NewResolver(logger *utils.Logger) *Resolver {
	return &Resolver{
		logger: utils.OrDefault(logger),
		strategies: []strategy{
			{name: StrategyExact, resolve: resolveExact},
			{name: StrategyAlias, resolve: resolveAlias},
			{name: StrategyCaseInsensitive, resolve: resolveCaseInsensitive},
			{name: StrategySubstring, resolve: resolveSubstring},
		},
	}
}

// Resolve возвращает точки параметра по возрастанию времени; пустой результат, если параметр не найден
func (r *Resolver) Resolve(record *models.FlightRecord, name string) []models.Point {
	return r.Lookup(record, name).Points
}

// ResolveKnown как Resolve, но без поиска по подстроке: для фиксированных имен правил и отчетов
func (r *Resolver) ResolveKnown(record *models.FlightRecord, name string) []models.Point {
	res := r.Lookup(record, name)
	if res.Strategy == StrategySubstring {
		return []models.Point{}
	}
	return res.Points
}

// Lookup разрешает параметр и сообщает, какой источник и стратегия сработали
func (r *Resolver) Lookup(record *models.FlightRecord, name string) Resolution {
	query := strings.TrimSpace(name)
	result := Resolution{Query: name, Strategy: StrategyUnresolved, Points: []models.Point{}}
	if query == "" {
		metrics.ResolverLookups.WithLabelValues(StrategyUnresolved).Inc()
		return result
	}

	c := buildCatalog(record)
	for _, s := range r.strategies {
		source, points := s.resolve(c, query)
		if len(points) == 0 {
			continue
		}
		sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
		result.Source = source
		result.Strategy = s.name
		result.Points = points
		break
	}

	metrics.ResolverLookups.WithLabelValues(result.Strategy).Inc()
	r.logger.WithField("query", name).
		WithField("source", result.Source).
		WithField("strategy", result.Strategy).
		WithField("points", len(result.Points)).
		Debug("Parameter resolved")
	return result
}

// Available возвращает отсортированный список имен, по которым в записи есть данные:
// имена каталога и основные имена алиасов.
func (r *Resolver) Available(record *models.FlightRecord) []string {
	c := buildCatalog(record)
	seen := make(map[string]struct{}, len(c.names))
	names := make([]string, 0, len(c.names)+len(aliasTable))

	for _, name := range c.names {
		if len(c.get(name)) == 0 {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, a := range aliasTable {
		if _, points := a.resolve(c); len(points) > 0 {
			if _, dup := seen[a.names[0]]; !dup {
				seen[a.names[0]] = struct{}{}
				names = append(names, a.names[0])
			}
		}
	}

	sort.Strings(names)
	return names
}

func resolveExact(c *catalog, query string) (string, []models.Point) {
	return query, c.get(query)
}

func resolveAlias(c *catalog, query string) (string, []models.Point) {
	a, ok := aliasIndex[strings.ToUpper(query)]
	if !ok {
		return "", nil
	}
	return a.resolve(c)
}

func resolveCaseInsensitive(c *catalog, query string) (string, []models.Point) {
	for _, name := range c.names {
		if !strings.EqualFold(name, query) {
			continue
		}
		if points := c.get(name); len(points) > 0 {
			return name, points
		}
	}
	return "", nil
}

// resolveSubstring ищет вхождение запроса в имена каталога; имена перебираются в
// лексикографическом порядке, поэтому выбирается первое по алфавиту совпадение.
func resolveSubstring(c *catalog, query string) (string, []models.Point) {
	needle := strings.ToLower(query)
	for _, name := range c.names {
		if !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		if points := c.get(name); len(points) > 0 {
			return name, points
		}
	}
	return "", nil
}
