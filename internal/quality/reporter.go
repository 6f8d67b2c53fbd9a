package quality

import (
	"fmt"
	"math"

	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/resolver"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

// Веса итоговой оценки: quality_score = 0.6*data_coverage + 0.4*temporal_coverage
const (
	DataCoverageWeight     = 0.6
	TemporalCoverageWeight = 0.4
)

// HomeGeohashPrecision точность geohash точки старта
const HomeGeohashPrecision = 7

// ExpectedParameters ожидаемый набор параметров полного лога
var ExpectedParameters = []string{
	"GPS_POSITION",
	"ALTITUDE",
	"ATTITUDE",
	"BATTERY_VOLTAGE",
	"GPS_STATUS",
	"SATELLITES",
	"HDOP",
	"HACC",
	"RC_SIGNAL",
	"FLIGHT_MODE",
	"EVENTS",
	"PARAMETERS",
}

// untimedParameters не участвуют во временном покрытии
var untimedParameters = map[string]bool{
	"PARAMETERS": true,
	"MISSION":    true,
}

// Reporter оценивает полноту данных записи
type Reporter struct {
	resolver *resolver.Resolver
	logger   *utils.Logger
}

// NewReporter создает генератор отчетов о качестве
func NewReporter(res *resolver.Resolver, logger *utils.Logger) *Reporter {
	logger = utils.OrDefault(logger)
	if res == nil {
		res = resolver.NewResolver(logger)
	}
	return &Reporter{resolver: res, logger: logger}
}

type parameterSpan struct {
	start, end float64
}

// Report строит отчет о полноте. Результат детерминирован для одинакового входа.
func (r *Reporter) Report(record *models.FlightRecord) models.QualityReport {
	report := models.QualityReport{
		TotalParameters:   len(ExpectedParameters),
		MissingParameters: []string{},
		DataSources:       []models.DataSource{},
	}
	if record == nil {
		report.MissingParameters = append(report.MissingParameters, ExpectedParameters...)
		return report
	}
	report.Diagnostics = len(record.Diagnostics)

	spans := make([]parameterSpan, 0, len(ExpectedParameters))
	recordStart, recordEnd := math.Inf(1), math.Inf(-1)

	for _, name := range ExpectedParameters {
		points := r.resolver.ResolveKnown(record, name)
		if len(points) == 0 {
			report.MissingParameters = append(report.MissingParameters, name)
			continue
		}

		report.AvailableParameters++
		report.TotalDataPoints += len(points)
		report.DataSources = append(report.DataSources, models.DataSource{
			Type:        name,
			Count:       len(points),
			Description: fmt.Sprintf("%s data (%d points)", resolver.Category(name), len(points)),
		})

		if untimedParameters[name] {
			continue
		}
		span := parameterSpan{start: points[0].Timestamp, end: points[len(points)-1].Timestamp}
		spans = append(spans, span)
		recordStart = math.Min(recordStart, span.start)
		recordEnd = math.Max(recordEnd, span.end)
	}

	report.DataCoverage = float64(report.AvailableParameters) / float64(report.TotalParameters)

	if len(spans) > 0 {
		report.TemporalSpan = recordEnd - recordStart
		report.TemporalCoverage = temporalCoverage(spans, report.TemporalSpan)
	}

	report.QualityScore = DataCoverageWeight*report.DataCoverage + TemporalCoverageWeight*report.TemporalCoverage

	r.addGeography(record, &report)

	r.logger.WithField("record_id", record.ID).
		WithField("available", report.AvailableParameters).
		WithField("quality_score", report.QualityScore).
		Debug("Quality report built")

	return report
}

// temporalCoverage среднее отношение длительности параметра к длительности записи
func temporalCoverage(spans []parameterSpan, recordSpan float64) float64 {
	if recordSpan <= 0 {
		return 1.0
	}
	sum := 0.0
	for _, s := range spans {
		sum += (s.end - s.start) / recordSpan
	}
	return sum / float64(len(spans))
}

// addGeography заполняет geohash точки старта, область полета, ее центр и диагональ по основной траектории
func (r *Reporter) addGeography(record *models.FlightRecord, report *models.QualityReport) {
	track := record.PrimaryTrajectory().Points()
	if track == nil {
		return
	}

	positions := make([]models.GeoPoint, 0, track.Len())
	for _, s := range track.Samples {
		if s.Position != nil {
			positions = append(positions, *s.Position)
		}
	}
	if len(positions) == 0 {
		return
	}

	for _, p := range positions {
		if p.Validate() == nil {
			report.HomeGeohash = p.Geohash(HomeGeohashPrecision)
			break
		}
	}
	if bounds, ok := models.BoundsOf(positions); ok {
		report.FlightArea = &bounds
		report.AreaCenterGeohash = bounds.Center().Geohash(HomeGeohashPrecision)
		report.FlightExtentKm = bounds.DiagonalKm()
	}
}
