package models

// Статусы GPS приемника
const (
	GpsStatusNoGPS    = "NO_GPS"
	GpsStatusNoFix    = "NO_FIX"
	GpsStatus2D       = "2D_FIX"
	GpsStatus3D       = "3D_FIX"
	GpsStatusDGPS     = "DGPS"
	GpsStatusRTKFloat = "RTK_FLOAT"
	GpsStatusRTKFixed = "RTK_FIXED"
)

var gpsStatusCodes = []string{
	GpsStatusNoGPS, GpsStatusNoFix, GpsStatus2D, GpsStatus3D,
	GpsStatusDGPS, GpsStatusRTKFloat, GpsStatusRTKFixed,
}

// GpsStatusFromCode переводит числовой fix status ArduPilot в имя
func GpsStatusFromCode(code int) (string, bool) {
	if code < 0 || code >= len(gpsStatusCodes) {
		return "", false
	}
	return gpsStatusCodes[code], true
}

// IsSignalLoss сообщает, означает ли статус потерю сигнала
func IsSignalLoss(status string) bool {
	return status == GpsStatusNoGPS || status == GpsStatusNoFix
}

// GpsStatusChange переход статуса GPS
type GpsStatusChange struct {
	Timestamp float64 `json:"timestamp"`
	Status    string  `json:"status"`
	FixType   string  `json:"fix_type,omitempty"`
}

// SatelliteCount отчет о количестве спутников
type SatelliteCount struct {
	Timestamp float64 `json:"timestamp"`
	Count     int     `json:"count"`
}

// SignalQuality показатели геометрии спутников
type SignalQuality struct {
	Timestamp float64  `json:"timestamp"`
	HDOP      float64  `json:"hdop"`
	VDOP      *float64 `json:"vdop,omitempty"`
}

// AccuracyMetric оценки точности приемника в метрах
type AccuracyMetric struct {
	Timestamp float64  `json:"timestamp"`
	HAcc      *float64 `json:"hacc,omitempty"`
	VAcc      *float64 `json:"vacc,omitempty"`
	SAcc      *float64 `json:"sacc,omitempty"`
}

// GpsHealth производная информация о состоянии GPS
type GpsHealth struct {
	StatusChanges   []GpsStatusChange `json:"status_changes,omitempty"`
	SatelliteCounts []SatelliteCount  `json:"satellite_counts,omitempty"`
	SignalQuality   []SignalQuality   `json:"signal_quality,omitempty"`
	AccuracyMetrics []AccuracyMetric  `json:"accuracy_metrics,omitempty"`
}

// Empty сообщает, что ни одна из подсерий не содержит данных
func (g *GpsHealth) Empty() bool {
	return g == nil ||
		len(g.StatusChanges) == 0 && len(g.SatelliteCounts) == 0 &&
			len(g.SignalQuality) == 0 && len(g.AccuracyMetrics) == 0
}
