package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Метрики нормализации
	NormalizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flightlog_normalize_duration_seconds",
			Help:    "Duration of flight log normalization in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	NormalizedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlog_normalized_records_total",
			Help: "Total number of normalized flight records by vehicle kind",
		},
		[]string{"vehicle"},
	)

	NormalizedSamples = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlog_normalized_samples_total",
			Help: "Total number of samples produced by normalization",
		},
		[]string{"series"},
	)

	MalformedInputs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlog_malformed_inputs_total",
			Help: "Total number of input fields normalized to absence",
		},
		[]string{"field"},
	)

	// Метрики разрешения параметров
	ResolverLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlog_resolver_lookups_total",
			Help: "Total number of parameter resolutions by matching strategy",
		},
		[]string{"strategy"},
	)

	// Метрики детектора аномалий
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlog_anomalies_detected_total",
			Help: "Total number of detected anomalies",
		},
		[]string{"type", "severity"},
	)

	DetectorRuleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flightlog_detector_rule_duration_seconds",
			Help:    "Duration of a single detector rule in seconds",
			Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"rule"},
	)

	// Метрики сервиса
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flightlog_analysis_duration_seconds",
			Help:    "Duration of full record analysis in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlog_queries_total",
			Help: "Total number of parameter queries by aggregation",
		},
		[]string{"aggregation"},
	)

	QueryQualityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flightlog_quality_score",
			Help:    "Distribution of record quality scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// Метрики кэша
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlog_cache_hits_total",
			Help: "Total number of query cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlog_cache_misses_total",
			Help: "Total number of query cache misses",
		},
		[]string{"backend"},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flightlog_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.0001, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightlog_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"backend", "operation"},
	)

	// Информация о приложении
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flightlog_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetAppInfo устанавливает информацию о версии приложения
func SetAppInfo(version, commit, buildTime string) {
	AppInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// WriteToFile сохраняет текущее состояние метрик в формате textfile collector
func WriteToFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
