package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flybeeper/flightlog-engine/internal/cache"
	"github.com/flybeeper/flightlog-engine/internal/detector"
	"github.com/flybeeper/flightlog-engine/internal/filter"
	"github.com/flybeeper/flightlog-engine/internal/metrics"
	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/phase"
	"github.com/flybeeper/flightlog-engine/internal/quality"
	"github.com/flybeeper/flightlog-engine/internal/resolver"
	"github.com/flybeeper/flightlog-engine/internal/stats"
	"github.com/flybeeper/flightlog-engine/pkg/pool"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

// KeyParameters параметры, по которым строятся сводки анализа
var KeyParameters = []string{
	"ALTITUDE",
	"BATTERY_VOLTAGE",
	"CURRENT",
	"TEMPERATURE",
	"HACC",
	"HDOP",
	"SATELLITES",
	"ROLL",
	"PITCH",
	"YAW",
	"RSSI",
}

// Query запрос значений одного параметра
type Query struct {
	Parameter   string
	TimeRange   *filter.TimeRange
	Aggregation filter.Aggregation
}

// QueryResult значения параметра и сводка по ним
type QueryResult struct {
	Parameter   string             `json:"parameter"`
	Source      string             `json:"source,omitempty"`
	Strategy    string             `json:"strategy"`
	Category    string             `json:"category"`
	Points      []models.Point     `json:"points"`
	Count       int                `json:"count"`
	Summary     models.StatSummary `json:"summary"`
	TimeRange   *filter.TimeRange  `json:"time_range,omitempty"`
	Aggregation string             `json:"aggregation"`
}

// AnalysisReport полный отчет по записи
type AnalysisReport struct {
	RecordID      string                        `json:"record_id"`
	Vehicle       models.VehicleKind            `json:"vehicle"`
	LogType       string                        `json:"log_type,omitempty"`
	Summaries     map[string]models.StatSummary `json:"summaries"`
	Anomalies     []models.Anomaly              `json:"anomalies"`
	AnomalyCounts map[models.Severity]int       `json:"anomaly_counts"`
	MaxSeverity   models.Severity               `json:"max_severity,omitempty"`
	Phases        []models.FlightPhase          `json:"phases"`
	Quality       models.QualityReport          `json:"quality"`
	Diagnostics   []models.Diagnostic           `json:"diagnostics,omitempty"`
}

// TelemetryService объединяет компоненты движка над нормализованной записью.
// Состояния между вызовами не хранит, безопасен для конкурентного использования.
type TelemetryService struct {
	resolver  *resolver.Resolver
	detector  *detector.Chain
	segmenter *phase.Segmenter
	reporter  *quality.Reporter
	logger    *utils.Logger
}

// NewTelemetryService создает сервис с заданной конфигурацией детектора
func NewTelemetryService(cfg *detector.Config, logger *utils.Logger) *TelemetryService {
	logger = utils.OrDefault(logger)
	res := resolver.NewResolver(logger)

	return &TelemetryService{
		resolver:  res,
		detector:  detector.NewChain(cfg, res, logger),
		segmenter: phase.NewSegmenter(res, logger),
		reporter:  quality.NewReporter(res, logger),
		logger:    logger,
	}
}

// AvailableParameters возвращает имена параметров, по которым в записи есть данные
func (s *TelemetryService) AvailableParameters(record *models.FlightRecord) []string {
	return s.resolver.Available(record)
}

// Query разрешает параметр, вырезает диапазон и агрегирует значения.
// Кэш принадлежит вызывающей стороне и может быть nil; ошибки кэша только логируются.
func (s *TelemetryService) Query(ctx context.Context, record *models.FlightRecord, q Query, c cache.Cache) QueryResult {
	metrics.QueriesTotal.WithLabelValues(string(aggregationKind(q.Aggregation))).Inc()

	// Без идентификатора записи ключи разных записей совпадут
	if record == nil || record.ID == "" {
		c = nil
	}

	key := CacheKey(record, q)
	if c != nil {
		if result, ok := s.fromCache(ctx, c, key); ok {
			return result
		}
	}

	res := s.resolver.Lookup(record, q.Parameter)
	points := res.Points
	if q.TimeRange != nil {
		points = filter.Range(points, q.TimeRange.Start, q.TimeRange.End)
	}

	result := QueryResult{
		Parameter:   q.Parameter,
		Source:      res.Source,
		Strategy:    res.Strategy,
		Category:    resolver.Category(q.Parameter),
		Summary:     stats.Summarize(points),
		TimeRange:   q.TimeRange,
		Aggregation: q.Aggregation.String(),
	}
	result.Points = filter.Aggregate(points, q.Aggregation)
	result.Count = len(result.Points)

	s.logger.WithField("parameter", q.Parameter).
		WithField("strategy", res.Strategy).
		WithField("aggregation", result.Aggregation).
		WithField("count", result.Count).
		Debug("Query completed")

	if c != nil {
		s.toCache(ctx, c, key, result)
	}
	return result
}

// Summaries строит сводки по ключевым параметрам, найденным в записи
func (s *TelemetryService) Summaries(record *models.FlightRecord) map[string]models.StatSummary {
	summaries := make(map[string]models.StatSummary)
	for _, name := range KeyParameters {
		points := s.resolver.ResolveKnown(record, name)
		if len(points) == 0 {
			continue
		}
		summaries[name] = stats.Summarize(points)
	}
	return summaries
}

// Analyze выполняет полный анализ записи: сводки, аномалии, фазы и качество данных
func (s *TelemetryService) Analyze(record *models.FlightRecord) AnalysisReport {
	start := time.Now()
	defer func() {
		metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}()

	report := AnalysisReport{
		Summaries:     map[string]models.StatSummary{},
		Anomalies:     []models.Anomaly{},
		AnomalyCounts: map[models.Severity]int{},
		Phases:        []models.FlightPhase{},
	}
	if record == nil {
		report.Vehicle = models.VehicleUnknown
		report.Quality = s.reporter.Report(nil)
		return report
	}

	report.RecordID = record.ID
	report.Vehicle = record.Vehicle
	report.LogType = record.LogType
	report.Diagnostics = record.Diagnostics
	report.Summaries = s.Summaries(record)
	report.Anomalies = s.detector.Detect(record, report.Summaries)
	report.AnomalyCounts = detector.CountBySeverity(report.Anomalies)
	report.MaxSeverity = detector.MaxSeverity(report.Anomalies)
	report.Phases = s.segmenter.SegmentRecord(record)
	report.Quality = s.reporter.Report(record)

	metrics.QueryQualityScore.Observe(report.Quality.QualityScore)

	s.logger.WithField("record_id", record.ID).
		WithField("vehicle", record.Vehicle).
		WithField("anomalies", len(report.Anomalies)).
		WithField("max_severity", report.MaxSeverity).
		WithField("phases", len(report.Phases)).
		WithField("quality_score", report.Quality.QualityScore).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Flight record analyzed")

	return report
}

// CacheKey формирует ключ кэша: query:<record>:<PARAM>:<start>:<end>:<agg>
func CacheKey(record *models.FlightRecord, q Query) string {
	recordID := ""
	if record != nil {
		recordID = record.ID
	}
	start, end := "-", "-"
	if q.TimeRange != nil {
		start = strconv.FormatFloat(q.TimeRange.Start, 'g', -1, 64)
		end = strconv.FormatFloat(q.TimeRange.End, 'g', -1, 64)
	}
	return fmt.Sprintf("query:%s:%s:%s:%s:%s",
		recordID, strings.TrimSpace(q.Parameter), start, end, q.Aggregation.String())
}

func (s *TelemetryService) fromCache(ctx context.Context, c cache.Cache, key string) (QueryResult, bool) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read query cache")
		return QueryResult{}, false
	}
	if !ok {
		return QueryResult{}, false
	}

	var result QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to decode cached query result")
		return QueryResult{}, false
	}
	if result.Points == nil {
		result.Points = []models.Point{}
	}
	s.logger.WithField("key", key).Debug("Query served from cache")
	return result, true
}

func (s *TelemetryService) toCache(ctx context.Context, c cache.Cache, key string, result QueryResult) {
	buf := pool.Global.GetBuffer()
	defer pool.Global.PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(result); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to encode query result")
		return
	}
	if err := c.Set(ctx, key, buf.Bytes()); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to write query cache")
	}
}

func aggregationKind(agg filter.Aggregation) filter.AggregationKind {
	if agg.Kind == "" {
		return filter.AggregationRaw
	}
	return agg.Kind
}
