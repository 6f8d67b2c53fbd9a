package detector

import (
	"fmt"
	"strings"

	"github.com/flybeeper/flightlog-engine/internal/models"
)

// gpsLossEventType подстрока типа события, означающего потерю GPS
const gpsLossEventType = "GPS_SIGNAL_LOSS"

// GpsSignalLossRule переход GPS в NO_GPS или NO_FIX, а также события потери сигнала
type GpsSignalLossRule struct{}

// NewGpsSignalLossRule создает правило потери сигнала GPS
func NewGpsSignalLossRule() *GpsSignalLossRule {
	return &GpsSignalLossRule{}
}

func (r *GpsSignalLossRule) Name() string { return "gps_signal_loss" }

func (r *GpsSignalLossRule) Description() string {
	return "Flags GPS status changes to NO_GPS or NO_FIX"
}

func (r *GpsSignalLossRule) Detect(in *Input) []models.Anomaly {
	var anomalies []models.Anomaly

	if gps := in.GPS(); gps != nil {
		for _, change := range gps.StatusChanges {
			if !models.IsSignalLoss(change.Status) {
				continue
			}
			anomalies = append(anomalies, models.Anomaly{
				Type:        models.AnomalyGpsSignalLoss,
				Severity:    models.SeverityHigh,
				Parameter:   "GPS_STATUS",
				Timestamp:   change.Timestamp,
				Value:       change.Status,
				Description: fmt.Sprintf("GPS signal lost: %s", change.Status),
			})
		}
	}

	events := in.Record.SeriesByName(models.SeriesEvents)
	if events == nil {
		return anomalies
	}
	for _, sample := range events.Samples {
		eventType, _ := sample.String("type")
		if !strings.Contains(strings.ToUpper(eventType), gpsLossEventType) {
			continue
		}
		message, _ := sample.String("message")
		anomalies = append(anomalies, models.Anomaly{
			Type:        models.AnomalyGpsSignalLoss,
			Severity:    models.SeverityHigh,
			Parameter:   "EVENTS",
			Timestamp:   sample.Timestamp,
			Value:       eventType,
			Description: fmt.Sprintf("GPS signal lost: %s", strings.TrimSpace(eventType+" "+message)),
		})
	}

	return anomalies
}

// SatelliteDropRule резкое уменьшение количества спутников между отчетами
type SatelliteDropRule struct {
	drop int
}

// NewSatelliteDropRule создает правило падения числа спутников
func NewSatelliteDropRule(config *Config) *SatelliteDropRule {
	return &SatelliteDropRule{drop: config.SatelliteDrop}
}

func (r *SatelliteDropRule) Name() string { return "satellite_drop" }

func (r *SatelliteDropRule) Description() string {
	return fmt.Sprintf("Flags satellite count decreases greater than %d", r.drop)
}

func (r *SatelliteDropRule) Detect(in *Input) []models.Anomaly {
	gps := in.GPS()
	if gps == nil {
		return nil
	}

	var anomalies []models.Anomaly
	counts := gps.SatelliteCounts
	for i := 1; i < len(counts); i++ {
		prev, curr := counts[i-1].Count, counts[i].Count
		if prev-curr <= r.drop {
			continue
		}
		anomalies = append(anomalies, models.Anomaly{
			Type:        models.AnomalySatelliteDrop,
			Severity:    models.SeverityHigh,
			Parameter:   "SATELLITES",
			Timestamp:   counts[i].Timestamp,
			Value:       curr,
			Description: fmt.Sprintf("Satellite count dropped from %d to %d", prev, curr),
		})
	}
	return anomalies
}

// GpsAccuracyRule ухудшение горизонтальной точности
type GpsAccuracyRule struct {
	degraded float64
	critical float64
}

// NewGpsAccuracyRule создает правило точности GPS
func NewGpsAccuracyRule(config *Config) *GpsAccuracyRule {
	return &GpsAccuracyRule{degraded: config.HAccDegraded, critical: config.HAccCritical}
}

func (r *GpsAccuracyRule) Name() string { return "gps_accuracy_degradation" }

func (r *GpsAccuracyRule) Description() string {
	return fmt.Sprintf("Flags horizontal accuracy worse than %.1fm", r.degraded)
}

func (r *GpsAccuracyRule) Detect(in *Input) []models.Anomaly {
	gps := in.GPS()
	if gps == nil {
		return nil
	}

	var anomalies []models.Anomaly
	for _, m := range gps.AccuracyMetrics {
		if m.HAcc == nil || *m.HAcc <= r.degraded {
			continue
		}
		severity := models.SeverityMedium
		if *m.HAcc > r.critical {
			severity = models.SeverityCritical
		}
		anomalies = append(anomalies, models.Anomaly{
			Type:          models.AnomalyGpsAccuracyDegradation,
			Severity:      severity,
			Parameter:     "HACC",
			Timestamp:     m.Timestamp,
			Value:         *m.HAcc,
			ExpectedRange: &models.ValueRange{Max: models.Bound(r.degraded)},
			Description:   fmt.Sprintf("Poor GPS accuracy: %.1fm horizontal", *m.HAcc),
		})
	}
	return anomalies
}

// LowSatelliteRule недостаточное количество спутников для навигации
type LowSatelliteRule struct {
	min int
}

// NewLowSatelliteRule создает правило малого числа спутников
func NewLowSatelliteRule(config *Config) *LowSatelliteRule {
	return &LowSatelliteRule{min: config.MinSatellites}
}

func (r *LowSatelliteRule) Name() string { return "low_satellite_count" }

func (r *LowSatelliteRule) Description() string {
	return fmt.Sprintf("Flags satellite counts below %d", r.min)
}

func (r *LowSatelliteRule) Detect(in *Input) []models.Anomaly {
	gps := in.GPS()
	if gps == nil {
		return nil
	}

	var anomalies []models.Anomaly
	for _, c := range gps.SatelliteCounts {
		if c.Count >= r.min {
			continue
		}
		severity := models.SeverityMedium
		if c.Count == 0 {
			severity = models.SeverityCritical
		}
		anomalies = append(anomalies, models.Anomaly{
			Type:          models.AnomalyLowSatelliteCount,
			Severity:      severity,
			Parameter:     "SATELLITES",
			Timestamp:     c.Timestamp,
			Value:         c.Count,
			ExpectedRange: &models.ValueRange{Min: models.Bound(float64(r.min))},
			Description:   fmt.Sprintf("Low satellite count: %d", c.Count),
		})
	}
	return anomalies
}

// AccuracyJumpRule быстрый рост hacc между соседними отчетами
type AccuracyJumpRule struct {
	jump float64
}

// NewAccuracyJumpRule создает правило резкого ухудшения точности
func NewAccuracyJumpRule(config *Config) *AccuracyJumpRule {
	return &AccuracyJumpRule{jump: config.HAccJump}
}

func (r *AccuracyJumpRule) Name() string { return "gps_accuracy_rapid_degradation" }

func (r *AccuracyJumpRule) Description() string {
	return fmt.Sprintf("Flags horizontal accuracy growing by more than %.1fm between reports", r.jump)
}

func (r *AccuracyJumpRule) Detect(in *Input) []models.Anomaly {
	gps := in.GPS()
	if gps == nil {
		return nil
	}

	var anomalies []models.Anomaly
	var prev *float64
	for _, m := range gps.AccuracyMetrics {
		if m.HAcc == nil {
			continue
		}
		if prev != nil && *m.HAcc-*prev > r.jump {
			anomalies = append(anomalies, models.Anomaly{
				Type:        models.AnomalyGpsAccuracyRapidDegradation,
				Severity:    models.SeverityHigh,
				Parameter:   "HACC",
				Timestamp:   m.Timestamp,
				Value:       *m.HAcc,
				Description: fmt.Sprintf("GPS accuracy degraded rapidly: %.1fm to %.1fm", *prev, *m.HAcc),
			})
		}
		prev = m.HAcc
	}
	return anomalies
}

// SignalQualityRule высокий HDOP
type SignalQualityRule struct {
	poor float64
	bad  float64
}

// NewSignalQualityRule создает правило качества сигнала
func NewSignalQualityRule(config *Config) *SignalQualityRule {
	return &SignalQualityRule{poor: config.HDOPPoor, bad: config.HDOPBad}
}

func (r *SignalQualityRule) Name() string { return "signal_quality_poor" }

func (r *SignalQualityRule) Description() string {
	return fmt.Sprintf("Flags HDOP above %.1f", r.poor)
}

func (r *SignalQualityRule) Detect(in *Input) []models.Anomaly {
	gps := in.GPS()
	if gps == nil {
		return nil
	}

	var anomalies []models.Anomaly
	for _, q := range gps.SignalQuality {
		if q.HDOP <= r.poor {
			continue
		}
		severity := models.SeverityLow
		if q.HDOP > r.bad {
			severity = models.SeverityHigh
		}
		anomalies = append(anomalies, models.Anomaly{
			Type:          models.AnomalySignalQualityPoor,
			Severity:      severity,
			Parameter:     "HDOP",
			Timestamp:     q.Timestamp,
			Value:         q.HDOP,
			ExpectedRange: &models.ValueRange{Max: models.Bound(r.poor)},
			Description:   fmt.Sprintf("Poor signal quality: HDOP %.1f", q.HDOP),
		})
	}
	return anomalies
}

// SignalQualityJumpRule быстрый рост HDOP между соседними отчетами
type SignalQualityJumpRule struct {
	jump float64
}

// NewSignalQualityJumpRule создает правило резкого ухудшения HDOP
func NewSignalQualityJumpRule(config *Config) *SignalQualityJumpRule {
	return &SignalQualityJumpRule{jump: config.HDOPJump}
}

func (r *SignalQualityJumpRule) Name() string { return "signal_quality_rapid_degradation" }

func (r *SignalQualityJumpRule) Description() string {
	return fmt.Sprintf("Flags HDOP growing by more than %.1f between reports", r.jump)
}

func (r *SignalQualityJumpRule) Detect(in *Input) []models.Anomaly {
	gps := in.GPS()
	if gps == nil {
		return nil
	}

	var anomalies []models.Anomaly
	quality := gps.SignalQuality
	for i := 1; i < len(quality); i++ {
		prev, curr := quality[i-1].HDOP, quality[i].HDOP
		if curr-prev <= r.jump {
			continue
		}
		anomalies = append(anomalies, models.Anomaly{
			Type:        models.AnomalySignalQualityRapidDegradation,
			Severity:    models.SeverityMedium,
			Parameter:   "HDOP",
			Timestamp:   quality[i].Timestamp,
			Value:       curr,
			Description: fmt.Sprintf("Signal quality degraded rapidly: HDOP %.1f to %.1f", prev, curr),
		})
	}
	return anomalies
}

// PositionJumpRule скачок позиции между соседними точками основной траектории
type PositionJumpRule struct {
	meters float64
}

// NewPositionJumpRule создает правило скачков позиции
func NewPositionJumpRule(config *Config) *PositionJumpRule {
	return &PositionJumpRule{meters: config.PositionJumpMeters}
}

func (r *PositionJumpRule) Name() string { return "gps_position_jump" }

func (r *PositionJumpRule) Description() string {
	return fmt.Sprintf("Flags position jumps longer than %.1fm between trajectory points", r.meters)
}

func (r *PositionJumpRule) Detect(in *Input) []models.Anomaly {
	track := in.Record.PrimaryTrajectory().Points()
	if track.Len() < 2 {
		return nil
	}

	var anomalies []models.Anomaly
	var prev *models.GeoPoint
	for _, sample := range track.Samples {
		if sample.Position == nil {
			continue
		}
		if prev != nil {
			distance := prev.DistanceMeters(*sample.Position)
			if distance > r.meters {
				anomalies = append(anomalies, models.Anomaly{
					Type:        models.AnomalyGpsPositionJump,
					Severity:    models.SeverityHigh,
					Parameter:   "GPS_POSITION",
					Timestamp:   sample.Timestamp,
					Value:       distance,
					Description: fmt.Sprintf("GPS position jump: %.1fm", distance),
				})
			}
		}
		prev = sample.Position
	}
	return anomalies
}
