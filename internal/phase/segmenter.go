package phase

import (
	"math"

	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/resolver"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

// Доли диапазона высот, задающие полосы фаз
const (
	takeoffFraction     = 0.1
	cruiseLowFraction   = 0.3
	cruiseUpperFraction = 0.1
)

// AltitudeParameter логическое имя серии высот
const AltitudeParameter = "ALTITUDE"

// Segmenter делит полет на фазы по полосам высот. Полосы могут перекрываться.
type Segmenter struct {
	resolver *resolver.Resolver
	logger   *utils.Logger
}

// NewSegmenter создает сегментатор
func NewSegmenter(res *resolver.Resolver, logger *utils.Logger) *Segmenter {
	logger = utils.OrDefault(logger)
	if res == nil {
		res = resolver.NewResolver(logger)
	}
	return &Segmenter{resolver: res, logger: logger}
}

// SegmentRecord сегментирует серию высот записи
func (s *Segmenter) SegmentRecord(record *models.FlightRecord) []models.FlightPhase {
	phases := Segment(s.resolver.ResolveKnown(record, AltitudeParameter))
	if record != nil && s.logger.IsDebug() {
		fields := map[string]interface{}{
			"record_id": record.ID,
			"phases":    len(phases),
		}
		for _, p := range phases {
			fields[string(p.Phase)+"_duration"] = p.Duration()
		}
		s.logger.WithFields(fields).Debug("Flight phases segmented")
	}
	return phases
}

// band собирает границы времени и высоты точек, попавших в полосу
type band struct {
	kind                 models.PhaseKind
	start, end, low, top float64
	found                bool
}

func (b *band) add(ts, alt float64) {
	if !b.found {
		b.start, b.end, b.low, b.top = ts, ts, alt, alt
		b.found = true
		return
	}
	b.start = math.Min(b.start, ts)
	b.end = math.Max(b.end, ts)
	b.low = math.Min(b.low, alt)
	b.top = math.Max(b.top, alt)
}

func (b *band) phase() models.FlightPhase {
	return models.FlightPhase{
		Phase:         b.kind,
		StartTime:     b.start,
		EndTime:       b.end,
		AltitudeRange: models.AltitudeRange{Min: b.low, Max: b.top},
	}
}

// Segment возвращает фазы takeoff, cruise, landing в этом порядке; пустая полоса пропускается.
// Взлет рассматривает точки до первой точки максимальной высоты включительно,
// посадка от последней точки максимальной высоты до конца серии.
func Segment(points []models.Point) []models.FlightPhase {
	phases := make([]models.FlightPhase, 0, 3)

	ts := make([]float64, 0, len(points))
	alts := make([]float64, 0, len(points))
	for _, p := range points {
		if v, ok := p.Float(); ok {
			ts = append(ts, p.Timestamp)
			alts = append(alts, v)
		}
	}
	if len(alts) == 0 {
		return phases
	}

	minAlt, maxAlt := alts[0], alts[0]
	firstMax, lastMax := 0, 0
	for i, a := range alts {
		if a < minAlt {
			minAlt = a
		}
		if a > maxAlt {
			maxAlt = a
			firstMax, lastMax = i, i
		} else if a == maxAlt {
			lastMax = i
		}
	}
	span := maxAlt - minAlt

	climbThreshold := minAlt + span*takeoffFraction
	cruiseLow := minAlt + span*cruiseLowFraction
	cruiseHigh := maxAlt - span*cruiseUpperFraction

	takeoff := band{kind: models.PhaseTakeoff}
	for i := 0; i <= firstMax; i++ {
		if alts[i] > climbThreshold {
			takeoff.add(ts[i], alts[i])
		}
	}

	cruise := band{kind: models.PhaseCruise}
	for i, a := range alts {
		if a >= cruiseLow && a <= cruiseHigh {
			cruise.add(ts[i], a)
		}
	}

	landing := band{kind: models.PhaseLanding}
	for i := lastMax; i < len(alts); i++ {
		if alts[i] > climbThreshold {
			landing.add(ts[i], alts[i])
		}
	}

	for _, b := range []*band{&takeoff, &cruise, &landing} {
		if b.found {
			phases = append(phases, b.phase())
		}
	}
	return phases
}
