// Package flightgen генерирует синтетические полетные логи во входном формате движка:
// набор высоты, горизонтальный полет и снижение с шумом датчиков и опциональными сбоями.
package flightgen

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

// Anomalies сбои, внедряемые в лог
type Anomalies struct {
	BatterySag    bool // напряжение ниже критического в последних 10% полета
	GPSLoss       bool // NO_FIX и событие GPS_SIGNAL_LOSS в середине полета
	SatelliteDrop bool // падение числа спутников до 5
	PositionJump  bool // скачок координат примерно на 5.5 км
	RCLoss        bool // потеря RC сигнала
	Overheat      bool // перегрев батареи
}

// Any сообщает, включен ли хотя бы один сбой
func (a Anomalies) Any() bool {
	return a.BatterySag || a.GPSLoss || a.SatelliteDrop || a.PositionJump || a.RCLoss || a.Overheat
}

// AllAnomalies включает все сбои
func AllAnomalies() Anomalies {
	return Anomalies{BatterySag: true, GPSLoss: true, SatelliteDrop: true, PositionJump: true, RCLoss: true, Overheat: true}
}

// Options параметры генерации
type Options struct {
	Samples        int
	Seed           int64
	Vehicle        string
	StartLat       float64
	StartLon       float64
	CruiseAltitude float64
	// Interval шаг между выборками в секундах
	Interval float64
	// TimeKeyed записывает траекторию в форме timeTrajectory
	TimeKeyed bool
	Anomalies Anomalies
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() Options {
	return Options{
		Samples:        600,
		Seed:           1,
		Vehicle:        "ArduCopter",
		StartLat:       46.5197,
		StartLon:       6.6323,
		CruiseAltitude: 120,
		Interval:       1,
	}
}

// Generator генератор синтетических логов
type Generator struct {
	opts Options
	rand *rand.Rand
}

// New создает генератор; некорректные параметры заменяются значениями по умолчанию
func New(opts Options) *Generator {
	def := DefaultOptions()
	if opts.Samples < 10 {
		opts.Samples = def.Samples
	}
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.CruiseAltitude <= 0 {
		opts.CruiseAltitude = def.CruiseAltitude
	}
	if opts.Vehicle == "" {
		opts.Vehicle = def.Vehicle
	}
	if opts.StartLat == 0 && opts.StartLon == 0 {
		opts.StartLat, opts.StartLon = def.StartLat, def.StartLon
	}
	return &Generator{opts: opts, rand: rand.New(rand.NewSource(opts.Seed))}
}

// Options возвращает итоговые параметры генерации
func (g *Generator) Options() Options {
	return g.opts
}

// Границы фаз в индексах выборок
func (g *Generator) climbEnd() int { return g.opts.Samples * 3 / 10 }
func (g *Generator) descentStart() int { return g.opts.Samples * 7 / 10 }

func (g *Generator) ts(i int) float64 {
	return float64(i) * g.opts.Interval
}

func (g *Generator) at(fraction float64) int {
	return int(float64(g.opts.Samples) * fraction)
}

func (g *Generator) noise(scale float64) float64 {
	return g.rand.NormFloat64() * scale
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// altitude профиль высоты без шума
func (g *Generator) altitude(i int) float64 {
	n := g.opts.Samples
	cruise := g.opts.CruiseAltitude
	switch {
	case i < g.climbEnd():
		return cruise * float64(i) / float64(g.climbEnd())
	case i < g.descentStart():
		return cruise
	default:
		return cruise * float64(n-1-i) / float64(n-1-g.descentStart())
	}
}

// Generate строит лог в виде JSON-подобного значения
func (g *Generator) Generate() map[string]interface{} {
	n := g.opts.Samples
	last := g.ts(n - 1)

	raw := map[string]interface{}{
		"vehicle": g.opts.Vehicle,
		"logType": "synthetic",
		"metadata": map[string]interface{}{
			"start_time":     0.0,
			"duration":       last,
			"schema_version": "1",
		},
		"params": map[string]interface{}{
			"BATT_CAPACITY": 5200.0,
			"RTL_ALT":       1500.0,
			"ARMING_CHECK":  1.0,
			"FRAME_CLASS":   "quad",
		},
		"trajectories":      map[string]interface{}{"GPS": g.trajectory()},
		"gps_metadata":      g.gpsMetadata(),
		"attitude_series":   g.attitude(),
		"battery_series":    g.battery(),
		"rc_inputs":         g.rcInputs(),
		"flightModeChanges": g.flightModes(),
		"events":            g.events(),
		"mission":           g.mission(),
	}
	return raw
}

// JSON возвращает сгенерированный лог в JSON
func (g *Generator) JSON() ([]byte, error) {
	data, err := json.Marshal(g.Generate())
	if err != nil {
		return nil, fmt.Errorf("failed to encode flight log: %w", err)
	}
	return data, nil
}

func (g *Generator) trajectory() map[string]interface{} {
	n := g.opts.Samples
	jumpAt := g.at(0.4)

	points := make([][]interface{}, 0, n)
	for i := 0; i < n; i++ {
		lat := g.opts.StartLat + float64(i)*0.0001 + g.noise(0.000005)
		lon := g.opts.StartLon + float64(i)*0.00005 + g.noise(0.000005)
		if g.opts.Anomalies.PositionJump && i == jumpAt {
			lat += 0.05
		}
		alt := math.Max(0, g.altitude(i)+g.noise(0.3))
		points = append(points, []interface{}{round(lon, 7), round(lat, 7), round(alt, 2), g.ts(i)})
	}

	if !g.opts.TimeKeyed {
		track := make([]interface{}, len(points))
		for i, p := range points {
			track[i] = p
		}
		return map[string]interface{}{"trajectory": track}
	}

	keyed := make(map[string]interface{}, len(points))
	for _, p := range points {
		keyed[strconv.FormatFloat(p[3].(float64), 'f', -1, 64)] = p
	}
	return map[string]interface{}{"timeTrajectory": keyed}
}

func (g *Generator) gpsMetadata() map[string]interface{} {
	n := g.opts.Samples
	lossAt, dropAt := g.at(0.5), g.at(0.6)

	statuses := []interface{}{[]interface{}{0.0, "3D_FIX", 3.0}}
	if g.opts.Anomalies.GPSLoss {
		statuses = append(statuses,
			[]interface{}{g.ts(lossAt), "NO_FIX", 1.0},
			[]interface{}{g.ts(lossAt + 5), "3D_FIX", 3.0},
		)
	}

	sats := make([]interface{}, 0, n)
	quality := make([]interface{}, 0, n)
	accuracy := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		count := 12.0 + float64(g.rand.Intn(2))
		if g.opts.Anomalies.SatelliteDrop && i >= dropAt && i < dropAt+5 {
			count = 5
		}
		sats = append(sats, []interface{}{g.ts(i), count})
		quality = append(quality, []interface{}{g.ts(i), round(1.0+g.noise(0.05), 2), round(1.4+g.noise(0.05), 2)})
		accuracy = append(accuracy, []interface{}{g.ts(i), round(2.0+g.noise(0.1), 2), round(3.0+g.noise(0.1), 2), round(0.3+g.noise(0.02), 3)})
	}

	return map[string]interface{}{
		"status_changes":   statuses,
		"satellite_counts": sats,
		"signal_quality":   quality,
		"accuracy_metrics": accuracy,
	}
}

func (g *Generator) attitude() []interface{} {
	n := g.opts.Samples
	rows := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		yaw := math.Mod(90+float64(i)*0.1, 360)
		rows = append(rows, []interface{}{g.ts(i), round(g.noise(2), 3), round(g.noise(2), 3), round(yaw, 2)})
	}
	return rows
}

func (g *Generator) battery() []interface{} {
	n := g.opts.Samples
	sagFrom := g.at(0.9)
	heatAt := g.at(0.45)

	rows := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		progress := float64(i) / float64(n-1)
		voltage := 12.6 - 1.2*progress + g.noise(0.02)
		if g.opts.Anomalies.BatterySag && i >= sagFrom {
			voltage = 9.8
		}
		temp := 30 + 10*progress + g.noise(0.2)
		if g.opts.Anomalies.Overheat && i >= heatAt && i < heatAt+3 {
			temp = 65
		}
		rows = append(rows, map[string]interface{}{
			"timestamp":   g.ts(i),
			"voltage":     round(voltage, 3),
			"current":     round(15+g.noise(1), 2),
			"temperature": round(temp, 2),
			"remaining":   round(100*(1-progress*0.7), 1),
		})
	}
	return rows
}

func (g *Generator) rcInputs() []interface{} {
	n := g.opts.Samples
	lossAt := g.at(0.7)

	rows := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		strength, lost := round(88+g.noise(2), 1), false
		if g.opts.Anomalies.RCLoss && i >= lossAt && i < lossAt+3 {
			strength, lost = 10, true
		}
		rows = append(rows, []interface{}{g.ts(i), strength, lost})
	}
	return rows
}

func (g *Generator) flightModes() []interface{} {
	return []interface{}{
		[]interface{}{0.0, "STABILIZE"},
		[]interface{}{g.ts(g.climbEnd()), "LOITER"},
		[]interface{}{g.ts(g.descentStart()), "LAND"},
	}
}

func (g *Generator) events() []interface{} {
	events := []interface{}{
		map[string]interface{}{"timestamp": 0.0, "type": "ARMED", "message": "Armed", "severity": "INFO"},
		map[string]interface{}{"timestamp": g.ts(g.opts.Samples - 1), "type": "DISARMED", "message": "Disarmed", "severity": "INFO"},
	}
	if g.opts.Anomalies.GPSLoss {
		events = append(events, map[string]interface{}{
			"timestamp": g.ts(g.at(0.5)),
			"type":      "GPS_SIGNAL_LOSS",
			"message":   "GPS fix lost",
			"severity":  "WARNING",
		})
	}
	return events
}

func (g *Generator) mission() []interface{} {
	return []interface{}{
		map[string]interface{}{"command": "TAKEOFF", "alt": g.opts.CruiseAltitude},
		map[string]interface{}{"command": "WAYPOINT", "lat": g.opts.StartLat + 0.03, "lon": g.opts.StartLon + 0.015, "alt": g.opts.CruiseAltitude},
		map[string]interface{}{"command": "RTL"},
	}
}
