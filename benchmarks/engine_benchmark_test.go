package benchmarks

import (
	"context"
	"testing"
	"time"

	"github.com/flybeeper/flightlog-engine/internal/cache"
	"github.com/flybeeper/flightlog-engine/internal/detector"
	"github.com/flybeeper/flightlog-engine/internal/filter"
	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/normalizer"
	"github.com/flybeeper/flightlog-engine/internal/resolver"
	"github.com/flybeeper/flightlog-engine/internal/service"
	"github.com/flybeeper/flightlog-engine/internal/stats"
	"github.com/flybeeper/flightlog-engine/pkg/flightgen"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

func flightLog(b *testing.B, samples int, faults bool) []byte {
	b.Helper()
	opts := flightgen.DefaultOptions()
	opts.Samples = samples
	if faults {
		opts.Anomalies = flightgen.AllAnomalies()
	}
	data, err := flightgen.New(opts).JSON()
	if err != nil {
		b.Fatal(err)
	}
	return data
}

func flightRecord(b *testing.B, samples int) *models.FlightRecord {
	b.Helper()
	record, err := normalizer.NewNormalizer(utils.NewNopLogger()).NormalizeJSON(flightLog(b, samples, true))
	if err != nil {
		b.Fatal(err)
	}
	return record
}

// BenchmarkNormalize измеряет нормализацию логов разного размера
func BenchmarkNormalize(b *testing.B) {
	n := normalizer.NewNormalizer(utils.NewNopLogger())

	for _, size := range []struct {
		name    string
		samples int
	}{
		{"Short_600", 600},
		{"Medium_3600", 3600},
		{"Long_18000", 18000},
	} {
		data := flightLog(b, size.samples, false)
		b.Run(size.name, func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := n.NormalizeJSON(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkResolve измеряет разрешение параметров по разным стратегиям
func BenchmarkResolve(b *testing.B) {
	record := flightRecord(b, 3600)
	r := resolver.NewResolver(utils.NewNopLogger())

	for _, name := range []string{"battery.voltage", "ALTITUDE", "battery.VOLTAGE", "volt"} {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = r.Resolve(record, name)
			}
		})
	}
}

// BenchmarkAggregation измеряет срез диапазона и агрегацию
func BenchmarkAggregation(b *testing.B) {
	record := flightRecord(b, 18000)
	points := resolver.NewResolver(utils.NewNopLogger()).Resolve(record, "ALTITUDE")
	tr := &filter.TimeRange{Start: 1000, End: 15000}

	for _, agg := range []filter.Aggregation{
		filter.Raw(),
		{Kind: filter.AggregationMean},
		{Kind: filter.AggregationStd},
		filter.Decimate(10),
	} {
		b.Run(agg.String(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = filter.Apply(points, tr, agg)
			}
		})
	}
}

// BenchmarkSummarize измеряет построение статистической сводки
func BenchmarkSummarize(b *testing.B) {
	record := flightRecord(b, 18000)
	points := resolver.NewResolver(utils.NewNopLogger()).Resolve(record, "BATTERY_VOLTAGE")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = stats.Summarize(points)
	}
}

// BenchmarkDetect измеряет полную цепочку правил детектора
func BenchmarkDetect(b *testing.B) {
	logger := utils.NewNopLogger()
	record := flightRecord(b, 3600)
	svc := service.NewTelemetryService(detector.DefaultConfig(), logger)
	summaries := svc.Summaries(record)
	chain := detector.NewChain(detector.DefaultConfig(), resolver.NewResolver(logger), logger)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = chain.Detect(record, summaries)
	}
}

// BenchmarkAnalyze измеряет полный анализ записи
func BenchmarkAnalyze(b *testing.B) {
	record := flightRecord(b, 3600)
	svc := service.NewTelemetryService(detector.DefaultConfig(), utils.NewNopLogger())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = svc.Analyze(record)
	}
}

// BenchmarkAnalyzeParallel измеряет конкурентный анализ одной записи
func BenchmarkAnalyzeParallel(b *testing.B) {
	record := flightRecord(b, 3600)
	svc := service.NewTelemetryService(detector.DefaultConfig(), utils.NewNopLogger())

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = svc.Analyze(record)
		}
	})
}

// BenchmarkQueryCached сравнивает запрос без кэша и с кэшем в памяти
func BenchmarkQueryCached(b *testing.B) {
	record := flightRecord(b, 18000)
	svc := service.NewTelemetryService(detector.DefaultConfig(), utils.NewNopLogger())
	q := service.Query{Parameter: "ALTITUDE", Aggregation: filter.Decimate(100)}
	ctx := context.Background()

	b.Run("NoCache", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = svc.Query(ctx, record, q, nil)
		}
	})

	b.Run("MemoryCache", func(b *testing.B) {
		c := cache.NewMemoryCache(100, time.Minute)
		defer c.Close()
		for i := 0; i < b.N; i++ {
			_ = svc.Query(ctx, record, q, c)
		}
	})
}
