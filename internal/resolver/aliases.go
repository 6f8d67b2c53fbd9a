package resolver

import (
	"strings"

	"github.com/flybeeper/flightlog-engine/internal/models"
)

// trajectoryPlaceholder заменяется на имя основной траектории записи
const trajectoryPlaceholder = "{trajectory}"

// alias логические имена параметра и источники каталога, проверяемые по порядку
type alias struct {
	names   []string
	sources []string
}

// resolve возвращает первый непустой источник алиаса
func (a alias) resolve(c *catalog) (string, []models.Point) {
	primary := models.PrimaryTrajectoryName(c.record.TrajectoryNames())
	for _, source := range a.sources {
		if strings.Contains(source, trajectoryPlaceholder) {
			if primary == "" {
				continue
			}
			source = strings.ReplaceAll(source, trajectoryPlaceholder, primary)
		}
		if points := c.get(source); len(points) > 0 {
			return source, points
		}
	}
	return "", nil
}

// aliasTable документированная таблица алиасов. Имена сравниваются в верхнем регистре.
var aliasTable = []alias{
	{names: []string{"GPS_POSITION", "GPS", "GPS_COORDINATES", "POSITION", "TRAJECTORY"}, sources: []string{"trajectories.{trajectory}"}},
	{names: []string{"ALTITUDE", "ALT", "HEIGHT"}, sources: []string{"trajectories.{trajectory}.alt"}},
	{names: []string{"LATITUDE", "LAT"}, sources: []string{"trajectories.{trajectory}.lat"}},
	{names: []string{"LONGITUDE", "LON", "LNG"}, sources: []string{"trajectories.{trajectory}.lon"}},
	{names: []string{"ATTITUDE"}, sources: []string{"attitude"}},
	{names: []string{"ROLL"}, sources: []string{"attitude.roll"}},
	{names: []string{"PITCH"}, sources: []string{"attitude.pitch"}},
	{names: []string{"YAW", "HEADING"}, sources: []string{"attitude.yaw"}},
	{names: []string{"RC_SIGNAL", "RSSI", "RC", "RC_INPUT", "RC_INPUTS", "SIGNAL_STRENGTH"}, sources: []string{"rc_inputs.signal_strength"}},
	{names: []string{"RC_SIGNAL_LOST", "FAILSAFE"}, sources: []string{"rc_inputs.signal_lost"}},
	{names: []string{"BATTERY_VOLTAGE", "BATTERY", "BAT", "VOLTAGE"}, sources: []string{"battery.voltage", "events.battery_voltage"}},
	{names: []string{"CURRENT", "BATTERY_CURRENT"}, sources: []string{"battery.current"}},
	{names: []string{"BATTERY_REMAINING", "REMAINING"}, sources: []string{"battery.remaining"}},
	{names: []string{"TEMPERATURE", "TEMP", "BATTERY_TEMP"}, sources: []string{"battery.temperature", "events.temperature"}},
	{names: []string{"SATELLITES", "SATS", "NSATS", "GPS_SATELLITES"}, sources: []string{"gps.satellites"}},
	{names: []string{"HDOP", "GPS_QUALITY", "SIGNAL_QUALITY"}, sources: []string{"gps.hdop"}},
	{names: []string{"VDOP"}, sources: []string{"gps.vdop"}},
	{names: []string{"HACC", "GPS_ACCURACY", "GPS_PRECISION"}, sources: []string{"gps.hacc"}},
	{names: []string{"VACC"}, sources: []string{"gps.vacc"}},
	{names: []string{"SACC"}, sources: []string{"gps.sacc"}},
	{names: []string{"GPS_STATUS", "GPS_FIX", "GPS_SIGNAL"}, sources: []string{"gps.status"}},
	{names: []string{"FLIGHT_MODE", "MODE", "FLIGHT_MODES", "MODE_CHANGES"}, sources: []string{"flight_modes"}},
	{names: []string{"EVENTS", "ALL_EVENTS", "FLIGHT_EVENTS"}, sources: []string{"events"}},
	{names: []string{"MISSION", "WAYPOINTS", "MISSION_DATA"}, sources: []string{"mission"}},
	{names: []string{"PARAMETERS", "PARAMS", "VEHICLE_PARAMS"}, sources: []string{"params"}},
}

var aliasIndex = func() map[string]alias {
	index := make(map[string]alias)
	for _, a := range aliasTable {
		for _, name := range a.names {
			index[name] = a
		}
	}
	return index
}()

// Aliases возвращает основные имена всех алиасов в порядке таблицы
func Aliases() []string {
	names := make([]string, 0, len(aliasTable))
	for _, a := range aliasTable {
		names = append(names, a.names[0])
	}
	return names
}

// category правило классификации параметра по подстрокам имени
type category struct {
	name     string
	keywords []string
}

// categories проверяются по порядку, первая подходящая категория побеждает
var categories = []category{
	{name: "diagnostics", keywords: []string{"EVENT", "ERROR", "STATUS", "FAILSAFE", "LOST", "MSG"}},
	{name: "attitude", keywords: []string{"ATTITUDE", "ROLL", "PITCH", "YAW", "HEADING"}},
	{name: "power", keywords: []string{"BATTERY", "BAT", "VOLT", "CURR", "POWER", "REMAINING"}},
	{name: "control", keywords: []string{"RC", "RSSI", "MODE", "SIGNAL_STRENGTH", "THROTTLE"}},
	{name: "navigation", keywords: []string{"MISSION", "WAYPOINT", "FENCE"}},
	{name: "sensors", keywords: []string{"SAT", "HDOP", "VDOP", "HACC", "VACC", "SACC", "TEMP", "IMU", "BARO", "MAG", "ACCURACY", "QUALITY"}},
	{name: "position", keywords: []string{"GPS", "POSITION", "TRAJECTOR", "ALT", "LAT", "LON", "LNG", "HEIGHT"}},
}

// Category классифицирует имя параметра; по умолчанию "telemetry"
func Category(name string) string {
	upper := strings.ToUpper(name)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(upper, kw) {
				return c.name
			}
		}
	}
	return "telemetry"
}
