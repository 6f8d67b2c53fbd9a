package resolver

import (
	"sort"

	"github.com/flybeeper/flightlog-engine/internal/models"
)

// Префиксы имен каталога
const (
	trajectoryPrefix = "trajectories."
	gpsPrefix        = "gps."
	paramsName       = "params"
	paramsPrefix     = "params."
)

// primaryFields основное поле серии, значение которого возвращается при запросе всей серии
var primaryFields = map[string]string{
	models.SeriesAttitude:    "roll",
	models.SeriesBattery:     "voltage",
	models.SeriesRCInputs:    "signal_strength",
	models.SeriesEvents:      "message",
	models.SeriesFlightModes: "mode",
	models.SeriesMission:     "seq",
}

// extractor извлекает точки параметра из записи
type extractor func() []models.Point

// catalog известные имена параметров записи. Содержит только имена, для которых есть данные.
type catalog struct {
	record  *models.FlightRecord
	entries map[string]extractor
	names   []string
}

func buildCatalog(record *models.FlightRecord) *catalog {
	c := &catalog{record: record, entries: make(map[string]extractor)}
	if record == nil {
		return c
	}

	for _, name := range record.SeriesNames() {
		series := record.Series[name]
		primary, ok := primaryFields[name]
		if !ok {
			fields := series.FieldNames()
			if len(fields) > 0 {
				primary = fields[0]
			}
		}
		c.add(name, seriesExtractor(series, primary))
		for _, field := range series.FieldNames() {
			c.add(name+"."+field, fieldExtractor(series, field))
		}
	}

	for _, name := range record.TrajectoryNames() {
		points := record.Trajectories[name].Points()
		c.add(trajectoryPrefix+name, seriesExtractor(points, "alt"))
		for _, field := range []string{"lat", "lon", "alt"} {
			c.add(trajectoryPrefix+name+"."+field, fieldExtractor(points, field))
		}
	}

	c.addGps(record.GPS)
	c.addParams(record.Params)

	sort.Strings(c.names)
	return c
}

func (c *catalog) add(name string, ex extractor) {
	if _, exists := c.entries[name]; exists {
		return
	}
	c.entries[name] = ex
	c.names = append(c.names, name)
}

// get извлекает точки по точному имени каталога
func (c *catalog) get(name string) []models.Point {
	ex, ok := c.entries[name]
	if !ok {
		return nil
	}
	return ex()
}

func (c *catalog) addGps(gps *models.GpsHealth) {
	if gps.Empty() {
		return
	}

	if len(gps.StatusChanges) > 0 {
		c.add(gpsPrefix+"status", func() []models.Point {
			points := make([]models.Point, 0, len(gps.StatusChanges))
			for _, sc := range gps.StatusChanges {
				p := models.Point{Timestamp: sc.Timestamp, Value: sc.Status}
				if sc.FixType != "" {
					p.Fields = map[string]interface{}{"fix_type": sc.FixType}
				}
				points = append(points, p)
			}
			return points
		})
	}

	if len(gps.SatelliteCounts) > 0 {
		c.add(gpsPrefix+"satellites", func() []models.Point {
			points := make([]models.Point, 0, len(gps.SatelliteCounts))
			for _, sc := range gps.SatelliteCounts {
				points = append(points, models.Point{Timestamp: sc.Timestamp, Value: float64(sc.Count)})
			}
			return points
		})
	}

	if len(gps.SignalQuality) > 0 {
		c.add(gpsPrefix+"hdop", func() []models.Point {
			points := make([]models.Point, 0, len(gps.SignalQuality))
			for _, q := range gps.SignalQuality {
				points = append(points, models.Point{Timestamp: q.Timestamp, Value: q.HDOP})
			}
			return points
		})
		vdop := func() []models.Point {
			var points []models.Point
			for _, q := range gps.SignalQuality {
				if q.VDOP != nil {
					points = append(points, models.Point{Timestamp: q.Timestamp, Value: *q.VDOP})
				}
			}
			return points
		}
		if len(vdop()) > 0 {
			c.add(gpsPrefix+"vdop", vdop)
		}
	}

	accuracy := map[string]func(models.AccuracyMetric) *float64{
		"hacc": func(m models.AccuracyMetric) *float64 { return m.HAcc },
		"vacc": func(m models.AccuracyMetric) *float64 { return m.VAcc },
		"sacc": func(m models.AccuracyMetric) *float64 { return m.SAcc },
	}
	for _, name := range []string{"hacc", "vacc", "sacc"} {
		pick := accuracy[name]
		ex := func() []models.Point {
			var points []models.Point
			for _, m := range gps.AccuracyMetrics {
				if v := pick(m); v != nil {
					points = append(points, models.Point{Timestamp: m.Timestamp, Value: *v})
				}
			}
			return points
		}
		if len(ex()) > 0 {
			c.add(gpsPrefix+name, ex)
		}
	}
}

// addParams добавляет параметры аппарата; у параметров нет времени, метка равна 0
func (c *catalog) addParams(params map[string]interface{}) {
	if len(params) == 0 {
		return
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	c.add(paramsName, func() []models.Point {
		points := make([]models.Point, 0, len(names))
		for _, name := range names {
			points = append(points, models.Point{
				Value:  params[name],
				Fields: map[string]interface{}{"name": name},
			})
		}
		return points
	})

	for _, name := range names {
		value := params[name]
		c.add(paramsPrefix+name, func() []models.Point {
			return []models.Point{{Value: value}}
		})
	}
}

// seriesExtractor возвращает основное поле серии вместе со всеми полями выборки
func seriesExtractor(series *models.Series, primary string) extractor {
	return func() []models.Point {
		points := make([]models.Point, 0, series.Len())
		for _, s := range series.Samples {
			value, ok := s.Fields[primary]
			if !ok {
				continue
			}
			fields := make(map[string]interface{}, len(s.Fields))
			for k, v := range s.Fields {
				fields[k] = v
			}
			points = append(points, models.Point{Timestamp: s.Timestamp, Value: value, Fields: fields})
		}
		return points
	}
}

// fieldExtractor возвращает значения одного поля серии
func fieldExtractor(series *models.Series, field string) extractor {
	return func() []models.Point {
		points := make([]models.Point, 0, series.Len())
		for _, s := range series.Samples {
			if value, ok := s.Fields[field]; ok {
				points = append(points, models.Point{Timestamp: s.Timestamp, Value: value})
			}
		}
		return points
	}
}
