package detector

import (
	"sort"
	"time"

	"github.com/flybeeper/flightlog-engine/internal/metrics"
	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/resolver"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

// Chain цепочка правил, применяемых в порядке объявления
type Chain struct {
	rules    []Rule
	config   *Config
	resolver *resolver.Resolver
	logger   *utils.Logger
}

// NewChain создает цепочку со стандартным набором правил
func NewChain(config *Config, res *resolver.Resolver, logger *utils.Logger) *Chain {
	if config == nil {
		config = DefaultConfig()
	}
	logger = utils.OrDefault(logger)
	if res == nil {
		res = resolver.NewResolver(logger)
	}

	chain := NewEmptyChain(config, res, logger)

	chain.AddRule(NewSuddenChangeRule(config))
	chain.AddRule(NewThresholdRule(config))
	chain.AddRule(NewVarianceRule(config))
	chain.AddRule(NewGpsSignalLossRule())
	chain.AddRule(NewSatelliteDropRule(config))
	chain.AddRule(NewGpsAccuracyRule(config))
	chain.AddRule(NewBatteryCriticalRule(config))
	chain.AddRule(NewHighTemperatureRule(config))
	chain.AddRule(NewRCSignalLossRule())

	chain.AddRule(NewLowSatelliteRule(config))
	chain.AddRule(NewAccuracyJumpRule(config))
	chain.AddRule(NewSignalQualityRule(config))
	chain.AddRule(NewSignalQualityJumpRule(config))
	chain.AddRule(NewPositionJumpRule(config))
	chain.AddRule(NewBatteryLowRule(config))
	chain.AddRule(NewElevatedTemperatureRule(config))
	chain.AddRule(NewRCSignalWeakRule(config))

	return chain
}

// NewEmptyChain создает цепочку без правил
func NewEmptyChain(config *Config, res *resolver.Resolver, logger *utils.Logger) *Chain {
	logger = utils.OrDefault(logger)
	if res == nil {
		res = resolver.NewResolver(logger)
	}
	return &Chain{
		rules:    make([]Rule, 0),
		config:   config,
		resolver: res,
		logger:   logger,
	}
}

// AddRule добавляет правило в конец цепочки
func (c *Chain) AddRule(rule Rule) {
	c.rules = append(c.rules, rule)
}

// Rules возвращает правила в порядке применения
func (c *Chain) Rules() []Rule {
	return c.rules
}

// Detect применяет все правила. Порядок результата: порядок правил, внутри правила по времени.
func (c *Chain) Detect(record *models.FlightRecord, summaries map[string]models.StatSummary) []models.Anomaly {
	anomalies := make([]models.Anomaly, 0)
	if record == nil {
		return anomalies
	}

	in := NewInput(record, summaries, c.resolver)

	c.logger.WithField("record_id", record.ID).
		WithField("rules_count", len(c.rules)).
		WithField("summaries", len(summaries)).
		Debug("Starting anomaly detection")

	for _, rule := range c.rules {
		start := time.Now()
		found := rule.Detect(in)
		sort.SliceStable(found, func(i, j int) bool { return found[i].Timestamp < found[j].Timestamp })
		duration := time.Since(start)

		metrics.DetectorRuleDuration.WithLabelValues(rule.Name()).Observe(duration.Seconds())
		for _, a := range found {
			metrics.AnomaliesDetected.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
		}

		if len(found) > 0 {
			c.logger.WithField("rule", rule.Name()).
				WithField("anomalies", len(found)).
				WithField("duration_us", duration.Microseconds()).
				Debug("Rule applied")
		}

		anomalies = append(anomalies, found...)
	}

	c.logger.WithField("record_id", record.ID).
		WithField("anomalies", len(anomalies)).
		Debug("Anomaly detection completed")

	return anomalies
}

// CountBySeverity группирует количество аномалий по критичности
func CountBySeverity(anomalies []models.Anomaly) map[models.Severity]int {
	counts := make(map[models.Severity]int)
	for _, a := range anomalies {
		counts[a.Severity]++
	}
	return counts
}

// MaxSeverity возвращает наибольшую критичность среди аномалий; пусто, если аномалий нет
func MaxSeverity(anomalies []models.Anomaly) models.Severity {
	var top models.Severity
	for _, a := range anomalies {
		if a.Severity.Rank() > top.Rank() {
			top = a.Severity
		}
	}
	return top
}

// numericPoints оставляет только точки с числовым значением
func numericPoints(points []models.Point) ([]models.Point, []float64) {
	kept := make([]models.Point, 0, len(points))
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if v, ok := p.Float(); ok {
			kept = append(kept, p)
			values = append(values, v)
		}
	}
	return kept, values
}
