package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/stats"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

func batteryRecord(field string, values ...float64) *models.FlightRecord {
	record := models.NewFlightRecord()
	s := &models.Series{Name: models.SeriesBattery}
	for i, v := range values {
		s.Samples = append(s.Samples, models.Sample{
			Timestamp: float64(i),
			Fields:    map[string]interface{}{field: v},
		})
	}
	record.Series[models.SeriesBattery] = s
	return record
}

func altitudeRecord(alts ...float64) *models.FlightRecord {
	record := models.NewFlightRecord()
	track := &models.Series{Name: "GPS"}
	for i, alt := range alts {
		p := models.GeoPoint{Latitude: 46.0, Longitude: 7.0, Altitude: alt}
		track.Samples = append(track.Samples, models.Sample{
			Timestamp: float64(i),
			Fields:    map[string]interface{}{"lat": p.Latitude, "lon": p.Longitude, "alt": alt},
			Position:  &p,
		})
	}
	record.Trajectories["GPS"] = &models.Trajectory{Name: "GPS", Track: track}
	return record
}

func detect(rule Rule, record *models.FlightRecord, summaries map[string]models.StatSummary) []models.Anomaly {
	return rule.Detect(NewInput(record, summaries, nil))
}

func TestSuddenChangeRule_FlagsJump(t *testing.T) {
	record := altitudeRecord(0, 0, 0, 0, 100)
	summaries := map[string]models.StatSummary{
		"ALTITUDE": {Count: 5, Numeric: true, StdDev: 1.0},
	}

	anomalies := detect(NewSuddenChangeRule(DefaultConfig()), record, summaries)

	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalySuddenChange, anomalies[0].Type)
	assert.Equal(t, models.SeverityHigh, anomalies[0].Severity)
	assert.Equal(t, 4.0, anomalies[0].Timestamp)
	assert.Equal(t, 100.0, anomalies[0].Value)
	assert.Contains(t, anomalies[0].Description, "100.0")
}

func TestSuddenChangeRule_SkipsShortSummaries(t *testing.T) {
	record := altitudeRecord(0, 100)
	summaries := map[string]models.StatSummary{
		"ALTITUDE": {Count: 1, Numeric: true, StdDev: 0},
		"missing":  {Count: 5, Numeric: true, StdDev: 1},
	}
	assert.Empty(t, detect(NewSuddenChangeRule(DefaultConfig()), record, summaries))
}

func TestThresholdRule_Boundaries(t *testing.T) {
	record := batteryRecord("voltage", 12.0, 11.5, 10.0, 9.9, -5.0, 15.0, 15.1)

	anomalies := detect(NewThresholdRule(DefaultConfig()), record, nil)

	require.Len(t, anomalies, 3)

	assert.Equal(t, 3.0, anomalies[0].Timestamp)
	assert.Equal(t, models.SeverityMedium, anomalies[0].Severity)
	assert.Equal(t, "BATTERY_VOLTAGE 9.9 below minimum 10.0", anomalies[0].Description)
	require.NotNil(t, anomalies[0].ExpectedRange)
	assert.Equal(t, 10.0, *anomalies[0].ExpectedRange.Min)

	assert.Equal(t, 4.0, anomalies[1].Timestamp)
	assert.Equal(t, models.SeverityCritical, anomalies[1].Severity)

	assert.Equal(t, 6.0, anomalies[2].Timestamp)
	assert.Equal(t, models.SeverityMedium, anomalies[2].Severity)
	assert.Contains(t, anomalies[2].Description, "above maximum 15.0")
}

func TestThresholdRule_Temperature(t *testing.T) {
	record := batteryRecord("temperature", 60.0, 60.5, -20.0, -41.0)

	anomalies := detect(NewThresholdRule(DefaultConfig()), record, nil)

	require.Len(t, anomalies, 2)
	assert.Equal(t, models.SeverityMedium, anomalies[0].Severity)
	assert.Equal(t, "TEMPERATURE", anomalies[0].Parameter)
	assert.Equal(t, models.SeverityCritical, anomalies[1].Severity)
}

func TestVarianceRule(t *testing.T) {
	record := altitudeRecord(5, -5)
	summaries := map[string]models.StatSummary{
		"ALTITUDE":        stats.Summarize([]models.Point{{Timestamp: 0, Value: 5.0}, {Timestamp: 1, Value: -5.0}}),
		"BATTERY_VOLTAGE": {Count: 10, Numeric: true, Mean: 12.0, StdDev: 0.1},
		"ROLL":            {Count: 1, Numeric: true, Mean: 0, StdDev: 0},
	}

	anomalies := detect(NewVarianceRule(DefaultConfig()), record, summaries)

	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalyHighVariance, anomalies[0].Type)
	assert.Equal(t, models.SeverityMedium, anomalies[0].Severity)
	assert.Equal(t, "ALTITUDE", anomalies[0].Parameter)
	assert.Equal(t, 0.0, anomalies[0].Timestamp)
	assert.Contains(t, anomalies[0].Description, "+Inf")
}

func TestGpsSignalLossRule(t *testing.T) {
	record := models.NewFlightRecord()
	record.GPS = &models.GpsHealth{StatusChanges: []models.GpsStatusChange{
		{Timestamp: 0, Status: models.GpsStatus3D},
		{Timestamp: 12, Status: models.GpsStatusNoFix},
		{Timestamp: 20, Status: models.GpsStatus3D},
	}}
	record.Series[models.SeriesEvents] = &models.Series{Name: models.SeriesEvents, Samples: []models.Sample{
		{Timestamp: 5, Fields: map[string]interface{}{"type": "gps_signal_loss", "message": "glitch", "severity": "warning"}},
		{Timestamp: 6, Fields: map[string]interface{}{"type": "ARMED", "message": "", "severity": "info"}},
	}}

	anomalies := detect(NewGpsSignalLossRule(), record, nil)

	require.Len(t, anomalies, 2)
	for _, a := range anomalies {
		assert.Equal(t, models.SeverityHigh, a.Severity)
	}
	assert.Equal(t, "GPS signal lost: NO_FIX", anomalies[0].Description)
	assert.Equal(t, 5.0, anomalies[1].Timestamp)
}

func TestSatelliteDropRule(t *testing.T) {
	record := models.NewFlightRecord()
	record.GPS = &models.GpsHealth{SatelliteCounts: []models.SatelliteCount{
		{Timestamp: 0, Count: 10},
		{Timestamp: 1, Count: 9},
		{Timestamp: 2, Count: 5},
		{Timestamp: 3, Count: 2},
	}}

	anomalies := detect(NewSatelliteDropRule(DefaultConfig()), record, nil)

	require.Len(t, anomalies, 1)
	assert.Equal(t, 2.0, anomalies[0].Timestamp)
	assert.Equal(t, models.SeverityHigh, anomalies[0].Severity)
	assert.Equal(t, "Satellite count dropped from 9 to 5", anomalies[0].Description)
}

func TestGpsAccuracyRule(t *testing.T) {
	record := models.NewFlightRecord()
	record.GPS = &models.GpsHealth{AccuracyMetrics: []models.AccuracyMetric{
		{Timestamp: 0, HAcc: models.Bound(5.0)},
		{Timestamp: 1, HAcc: models.Bound(5.1)},
		{Timestamp: 2, HAcc: models.Bound(20.1)},
		{Timestamp: 3, VAcc: models.Bound(40.0)},
	}}

	anomalies := detect(NewGpsAccuracyRule(DefaultConfig()), record, nil)

	require.Len(t, anomalies, 2)
	assert.Equal(t, models.SeverityMedium, anomalies[0].Severity)
	assert.Equal(t, "Poor GPS accuracy: 5.1m horizontal", anomalies[0].Description)
	assert.Equal(t, models.SeverityCritical, anomalies[1].Severity)
	assert.Equal(t, "Poor GPS accuracy: 20.1m horizontal", anomalies[1].Description)
}

func TestLevelRules(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name        string
		rule        Rule
		record      *models.FlightRecord
		timestamps  []float64
		severity    models.Severity
		description string
	}{
		{
			name:        "Battery critical",
			rule:        NewBatteryCriticalRule(cfg),
			record:      batteryRecord("voltage", 12.0, 10.5, 10.44),
			timestamps:  []float64{2},
			severity:    models.SeverityCritical,
			description: "Critical battery voltage: 10.4V",
		},
		{
			name:        "Battery low",
			rule:        NewBatteryLowRule(cfg),
			record:      batteryRecord("voltage", 12.0, 10.5, 10.96, 11.0, 10.2),
			timestamps:  []float64{1, 2},
			severity:    models.SeverityHigh,
			description: "Low battery voltage: 10.5V",
		},
		{
			name:        "High temperature",
			rule:        NewHighTemperatureRule(cfg),
			record:      batteryRecord("temperature", 60.0, 61.3),
			timestamps:  []float64{1},
			severity:    models.SeverityHigh,
			description: "High temperature: 61.3°C",
		},
		{
			name:        "Elevated temperature",
			rule:        NewElevatedTemperatureRule(cfg),
			record:      batteryRecord("temperature", 45.0, 45.5, 60.0, 60.5),
			timestamps:  []float64{1, 2},
			severity:    models.SeverityMedium,
			description: "Elevated temperature: 45.5°C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anomalies := detect(tt.rule, tt.record, nil)
			require.Len(t, anomalies, len(tt.timestamps))
			for i, ts := range tt.timestamps {
				assert.Equal(t, ts, anomalies[i].Timestamp)
				assert.Equal(t, tt.severity, anomalies[i].Severity)
			}
			assert.Equal(t, tt.description, anomalies[0].Description)
		})
	}
}

func TestRCRules(t *testing.T) {
	record := models.NewFlightRecord()
	record.Series[models.SeriesRCInputs] = &models.Series{Name: models.SeriesRCInputs, Samples: []models.Sample{
		{Timestamp: 1, Fields: map[string]interface{}{"signal_strength": 80.0, "signal_lost": false}},
		{Timestamp: 2, Fields: map[string]interface{}{"signal_strength": 15.0, "signal_lost": false}},
		{Timestamp: 3, Fields: map[string]interface{}{"signal_strength": 0.0, "signal_lost": true}},
	}}

	lost := detect(NewRCSignalLossRule(), record, nil)
	require.Len(t, lost, 1)
	assert.Equal(t, models.SeverityCritical, lost[0].Severity)
	assert.Equal(t, 3.0, lost[0].Timestamp)

	weak := detect(NewRCSignalWeakRule(DefaultConfig()), record, nil)
	require.Len(t, weak, 2)
	assert.Equal(t, "Weak RC signal: 15.0%", weak[0].Description)
	assert.Equal(t, models.SeverityMedium, weak[1].Severity)
}

func TestGpsSupplementRules(t *testing.T) {
	record := models.NewFlightRecord()
	record.GPS = &models.GpsHealth{
		SatelliteCounts: []models.SatelliteCount{{Timestamp: 0, Count: 8}, {Timestamp: 1, Count: 3}, {Timestamp: 2, Count: 0}},
		SignalQuality: []models.SignalQuality{
			{Timestamp: 0, HDOP: 0.9},
			{Timestamp: 1, HDOP: 2.5},
			{Timestamp: 2, HDOP: 6.0},
		},
		AccuracyMetrics: []models.AccuracyMetric{
			{Timestamp: 0, HAcc: models.Bound(1.0)},
			{Timestamp: 1, HAcc: models.Bound(12.0)},
			{Timestamp: 2, HAcc: models.Bound(15.0)},
		},
	}
	cfg := DefaultConfig()

	low := detect(NewLowSatelliteRule(cfg), record, nil)
	require.Len(t, low, 2)
	assert.Equal(t, models.SeverityMedium, low[0].Severity)
	assert.Equal(t, models.SeverityCritical, low[1].Severity)

	jump := detect(NewAccuracyJumpRule(cfg), record, nil)
	require.Len(t, jump, 1)
	assert.Equal(t, 1.0, jump[0].Timestamp)
	assert.Equal(t, "GPS accuracy degraded rapidly: 1.0m to 12.0m", jump[0].Description)

	poor := detect(NewSignalQualityRule(cfg), record, nil)
	require.Len(t, poor, 2)
	assert.Equal(t, models.SeverityLow, poor[0].Severity)
	assert.Equal(t, models.SeverityHigh, poor[1].Severity)
	assert.Equal(t, "Poor signal quality: HDOP 6.0", poor[1].Description)

	rise := detect(NewSignalQualityJumpRule(cfg), record, nil)
	require.Len(t, rise, 1)
	assert.Equal(t, 2.0, rise[0].Timestamp)
}

func TestPositionJumpRule(t *testing.T) {
	record := models.NewFlightRecord()
	track := &models.Series{Name: "GPS"}
	for i, lat := range []float64{46.0, 46.0001, 46.1, 46.1001} {
		p := models.GeoPoint{Latitude: lat, Longitude: 7.0, Altitude: 500}
		track.Samples = append(track.Samples, models.Sample{Timestamp: float64(i), Position: &p})
	}
	record.Trajectories["GPS"] = &models.Trajectory{Name: "GPS", Track: track}

	anomalies := detect(NewPositionJumpRule(DefaultConfig()), record, nil)

	require.Len(t, anomalies, 1)
	assert.Equal(t, 2.0, anomalies[0].Timestamp)
	assert.Equal(t, models.SeverityHigh, anomalies[0].Severity)
	assert.InDelta(t, 11100, anomalies[0].Value, 150)
}

func TestChain_OrderAndDeterminism(t *testing.T) {
	record := batteryRecord("voltage", 12.0, 10.4)
	record.Series[models.SeriesRCInputs] = &models.Series{Name: models.SeriesRCInputs, Samples: []models.Sample{
		{Timestamp: 3, Fields: map[string]interface{}{"signal_lost": true}},
	}}
	record.GPS = &models.GpsHealth{
		SatelliteCounts: []models.SatelliteCount{{Timestamp: 0, Count: 10}, {Timestamp: 1, Count: 5}},
		AccuracyMetrics: []models.AccuracyMetric{{Timestamp: 0, HAcc: models.Bound(6.0)}},
	}

	chain := NewChain(DefaultConfig(), nil, utils.NewNopLogger())
	first := chain.Detect(record, nil)
	second := chain.Detect(record, nil)

	assert.Equal(t, first, second)

	types := make([]models.AnomalyType, len(first))
	for i, a := range first {
		types[i] = a.Type
	}
	assert.Equal(t, []models.AnomalyType{
		models.AnomalyThresholdViolation,
		models.AnomalySatelliteDrop,
		models.AnomalyGpsAccuracyDegradation,
		models.AnomalyBatteryCritical,
		models.AnomalyRCSignalLoss,
	}, types)

	counts := CountBySeverity(first)
	assert.Equal(t, 2, counts[models.SeverityCritical])
	assert.Equal(t, 2, counts[models.SeverityMedium])
	assert.Equal(t, 1, counts[models.SeverityHigh])
	assert.Equal(t, models.SeverityCritical, MaxSeverity(first))
}

func TestMaxSeverity(t *testing.T) {
	tests := []struct {
		name       string
		severities []models.Severity
		want       models.Severity
	}{
		{"No anomalies", nil, ""},
		{"Single", []models.Severity{models.SeverityLow}, models.SeverityLow},
		{"Order independent", []models.Severity{models.SeverityMedium, models.SeverityHigh, models.SeverityLow}, models.SeverityHigh},
		{"Critical wins", []models.Severity{models.SeverityCritical, models.SeverityHigh}, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anomalies := make([]models.Anomaly, 0, len(tt.severities))
			for _, s := range tt.severities {
				anomalies = append(anomalies, models.Anomaly{Severity: s})
			}
			assert.Equal(t, tt.want, MaxSeverity(anomalies))
		})
	}
}

func TestChain_EmptyRecord(t *testing.T) {
	chain := NewChain(nil, nil, nil)

	assert.NotNil(t, chain.Detect(models.NewFlightRecord(), nil))
	assert.Empty(t, chain.Detect(models.NewFlightRecord(), nil))
	assert.Empty(t, chain.Detect(nil, nil))
	assert.Len(t, chain.Rules(), 17)
}

func TestChain_ChronologicalWithinRule(t *testing.T) {
	record := batteryRecord("voltage", 12.0, 9.0)
	record.Series[models.SeriesBattery].Samples[0].Fields["temperature"] = 70.0

	chain := NewEmptyChain(DefaultConfig(), nil, nil)
	chain.AddRule(NewThresholdRule(DefaultConfig()))

	anomalies := chain.Detect(record, nil)

	require.Len(t, anomalies, 2)
	assert.Equal(t, "TEMPERATURE", anomalies[0].Parameter)
	assert.Equal(t, "BATTERY_VOLTAGE", anomalies[1].Parameter)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"Zero sigma", func(c *Config) { c.SuddenChangeSigma = 0 }},
		{"Threshold without bounds", func(c *Config) { c.Thresholds = append(c.Thresholds, Threshold{Parameter: "X"}) }},
		{"Inverted threshold", func(c *Config) {
			c.Thresholds = []Threshold{{Parameter: "X", Min: models.Bound(5), Max: models.Bound(1)}}
		}},
		{"HAcc order", func(c *Config) { c.HAccCritical = 1 }},
		{"Battery order", func(c *Config) { c.BatteryLow = 9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
