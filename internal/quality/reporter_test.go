package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

func reportRecord() *models.FlightRecord {
	record := models.NewFlightRecord()
	record.ID = "quality-test"

	track := &models.Series{Name: "GPS"}
	for i := 0; i <= 10; i++ {
		p := models.GeoPoint{Latitude: 46.0 + float64(i)*0.001, Longitude: 7.0, Altitude: float64(i * 10)}
		track.Samples = append(track.Samples, models.Sample{
			Timestamp: float64(i),
			Fields:    map[string]interface{}{"lat": p.Latitude, "lon": p.Longitude, "alt": p.Altitude},
			Position:  &p,
		})
	}
	record.Trajectories["GPS"] = &models.Trajectory{Name: "GPS", Track: track}

	record.Series[models.SeriesAttitude] = &models.Series{Name: models.SeriesAttitude, Samples: []models.Sample{
		{Timestamp: 0, Fields: map[string]interface{}{"roll": 0.1}},
		{Timestamp: 5, Fields: map[string]interface{}{"roll": 0.2}},
	}}
	record.Series[models.SeriesBattery] = &models.Series{Name: models.SeriesBattery, Samples: []models.Sample{
		{Timestamp: 5, Fields: map[string]interface{}{"voltage": 12.5}},
		{Timestamp: 10, Fields: map[string]interface{}{"voltage": 12.1}},
	}}
	record.Params["ARMING_CHECK"] = 1.0
	record.Diagnostics = []models.Diagnostic{{Field: "rc_inputs", Kind: models.DiagnosticMalformedInput}}
	return record
}

func TestReporter_Report(t *testing.T) {
	report := NewReporter(nil, utils.NewNopLogger()).Report(reportRecord())

	assert.Equal(t, 12, report.TotalParameters)
	assert.Equal(t, 5, report.AvailableParameters)
	assert.InDelta(t, 5.0/12.0, report.DataCoverage, 1e-9)
	assert.InDelta(t, 0.75, report.TemporalCoverage, 1e-9)
	assert.InDelta(t, 0.55, report.QualityScore, 1e-9)
	assert.Equal(t, 10.0, report.TemporalSpan)
	assert.Equal(t, 11+11+2+2+1, report.TotalDataPoints)
	assert.Equal(t, 1, report.Diagnostics)

	assert.Equal(t, []string{"GPS_STATUS", "SATELLITES", "HDOP", "HACC", "RC_SIGNAL", "FLIGHT_MODE", "EVENTS"}, report.MissingParameters)

	require.Len(t, report.DataSources, 5)
	assert.Equal(t, "GPS_POSITION", report.DataSources[0].Type)
	assert.Equal(t, 11, report.DataSources[0].Count)
	assert.Equal(t, "power data (2 points)", report.DataSources[3].Description)

	home := models.GeoPoint{Latitude: 46.0, Longitude: 7.0}
	assert.Equal(t, home.Geohash(HomeGeohashPrecision), report.HomeGeohash)
	require.NotNil(t, report.FlightArea)
	assert.Equal(t, 46.0, report.FlightArea.Southwest.Latitude)
	assert.InDelta(t, 46.01, report.FlightArea.Northeast.Latitude, 1e-9)
	assert.Equal(t, report.FlightArea.Center().Geohash(HomeGeohashPrecision), report.AreaCenterGeohash)
	assert.InDelta(t, report.FlightArea.DiagonalKm(), report.FlightExtentKm, 1e-9)
	assert.Positive(t, report.FlightExtentKm)
}

func TestReporter_Deterministic(t *testing.T) {
	r := NewReporter(nil, nil)
	record := reportRecord()
	assert.Equal(t, r.Report(record), r.Report(record))
}

func TestReporter_Degenerate(t *testing.T) {
	r := NewReporter(nil, utils.NewNopLogger())

	t.Run("Empty record", func(t *testing.T) {
		report := r.Report(models.NewFlightRecord())
		assert.Equal(t, 0, report.AvailableParameters)
		assert.Equal(t, 0.0, report.DataCoverage)
		assert.Equal(t, 0.0, report.TemporalCoverage)
		assert.Equal(t, 0.0, report.QualityScore)
		assert.Len(t, report.MissingParameters, 12)
		assert.Empty(t, report.HomeGeohash)
		assert.Nil(t, report.FlightArea)
		assert.Empty(t, report.AreaCenterGeohash)
		assert.Zero(t, report.FlightExtentKm)
	})

	t.Run("Nil record", func(t *testing.T) {
		report := r.Report(nil)
		assert.Equal(t, 12, report.TotalParameters)
		assert.Len(t, report.MissingParameters, 12)
	})

	t.Run("Zero record span", func(t *testing.T) {
		record := models.NewFlightRecord()
		record.Series[models.SeriesBattery] = &models.Series{Name: models.SeriesBattery, Samples: []models.Sample{
			{Timestamp: 3, Fields: map[string]interface{}{"voltage": 12.5}},
		}}
		report := r.Report(record)
		assert.Equal(t, 1.0, report.TemporalCoverage)
		assert.InDelta(t, 0.6/12+0.4, report.QualityScore, 1e-9)
	})

	t.Run("Params only", func(t *testing.T) {
		record := models.NewFlightRecord()
		record.Params["RTL_ALT"] = 1500.0
		report := r.Report(record)
		assert.Equal(t, 1, report.AvailableParameters)
		assert.Equal(t, 0.0, report.TemporalCoverage)
	})
}
