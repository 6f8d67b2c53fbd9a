package normalizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(utils.NewNopLogger())
}

func TestNormalize_Params(t *testing.T) {
	tests := []struct {
		name     string
		params   interface{}
		expected map[string]interface{}
	}{
		{
			name:     "Mapping form",
			params:   map[string]interface{}{"BATT_CAPACITY": 5200.0, "FRAME_CLASS": "quad"},
			expected: map[string]interface{}{"BATT_CAPACITY": 5200.0, "FRAME_CLASS": "quad"},
		},
		{
			name: "Triples keep last value in array order",
			params: []interface{}{
				[]interface{}{10.0, "ARMING_CHECK", 1.0},
				[]interface{}{5.0, "ARMING_CHECK", 0.0},
				[]interface{}{1.0, "RTL_ALT", 1500.0},
			},
			expected: map[string]interface{}{"ARMING_CHECK": 0.0, "RTL_ALT": 1500.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := newTestNormalizer().Normalize(map[string]interface{}{"params": tt.params})
			assert.Equal(t, tt.expected, record.Params)
		})
	}
}

func TestNormalize_Events(t *testing.T) {
	raw := map[string]interface{}{
		"events": []interface{}{
			[]interface{}{20.0, "Armed"},
			map[string]interface{}{"timestamp": 5.0, "type": "GPS_SIGNAL_LOSS", "message": "GPS lost", "severity": "WARNING"},
			map[string]interface{}{"time": 30.0, "message": "Battery", "battery_voltage": 11.2},
		},
	}

	record := newTestNormalizer().Normalize(raw)
	events := record.SeriesByName(models.SeriesEvents)
	require.NotNil(t, events)
	require.Len(t, events.Samples, 3)

	first := events.Samples[0]
	assert.Equal(t, 5.0, first.Timestamp)
	assert.Equal(t, "GPS_SIGNAL_LOSS", first.Fields["type"])
	assert.Equal(t, "warning", first.Fields["severity"])

	pair := events.Samples[1]
	assert.Equal(t, 20.0, pair.Timestamp)
	assert.Equal(t, DefaultEventType, pair.Fields["type"])
	assert.Equal(t, "Armed", pair.Fields["message"])
	assert.Equal(t, DefaultEventSeverity, pair.Fields["severity"])

	extra := events.Samples[2]
	assert.Equal(t, 11.2, extra.Fields["battery_voltage"])
}

func TestNormalize_AttitudeForms(t *testing.T) {
	list := map[string]interface{}{
		"attitude_series": []interface{}{
			map[string]interface{}{"timestamp": 2.0, "roll": 1.5, "pitch": -2.0, "yaw": 90.0},
			map[string]interface{}{"timestamp": 1.0, "roll": 0.5, "pitch": -1.0, "yaw": 89.0},
		},
	}
	keyed := map[string]interface{}{
		"timeAttitude": map[string]interface{}{
			"2": []interface{}{1.5, -2.0, 90.0},
			"1": []interface{}{0.5, -1.0, 89.0},
		},
	}

	n := newTestNormalizer()
	fromList := n.Normalize(list).SeriesByName(models.SeriesAttitude)
	fromMap := n.Normalize(keyed).SeriesByName(models.SeriesAttitude)

	require.NotNil(t, fromList)
	require.NotNil(t, fromMap)
	assert.Equal(t, fromList.Samples, fromMap.Samples)
	assert.Equal(t, 1.0, fromList.Samples[0].Timestamp)
	assert.Equal(t, 0.5, fromList.Samples[0].Fields["roll"])
}

func TestNormalize_Trajectories(t *testing.T) {
	t.Run("Only trajectory form present", func(t *testing.T) {
		record := newTestNormalizer().Normalize(map[string]interface{}{
			"trajectories": map[string]interface{}{
				"GPS": map[string]interface{}{
					"trajectory": []interface{}{
						[]interface{}{8.54, 47.37, 410.0, 2.0},
						[]interface{}{8.55, 47.38, 420.0, 1.0},
					},
				},
			},
		})

		traj := record.Trajectories["GPS"]
		require.NotNil(t, traj)
		require.Equal(t, 2, traj.Track.Len())
		assert.Nil(t, traj.TimeTrack)

		first := traj.Track.Samples[0]
		assert.Equal(t, 1.0, first.Timestamp)
		require.NotNil(t, first.Position)
		assert.Equal(t, 47.38, first.Position.Latitude)
		assert.Equal(t, 420.0, first.Fields["alt"])
	})

	t.Run("Only timeTrajectory form present", func(t *testing.T) {
		record := newTestNormalizer().Normalize(map[string]interface{}{
			"trajectories": map[string]interface{}{
				"POS": map[string]interface{}{
					"timeTrajectory": map[string]interface{}{
						"10": []interface{}{8.54, 47.37, 410.0, 10.0},
					},
				},
			},
		})

		traj := record.Trajectories["POS"]
		require.NotNil(t, traj)
		assert.Nil(t, traj.Track)
		assert.Equal(t, 1, traj.TimeTrack.Len())
		assert.Same(t, traj.TimeTrack, traj.Points())
	})

	t.Run("Points without timestamp use index", func(t *testing.T) {
		record := newTestNormalizer().Normalize(map[string]interface{}{
			"trajectories": map[string]interface{}{
				"GPS": map[string]interface{}{
					"trajectory": []interface{}{
						[]interface{}{8.54, 47.37},
						[]interface{}{8.55, 47.38},
					},
				},
			},
		})

		samples := record.Trajectories["GPS"].Track.Samples
		assert.Equal(t, 0.0, samples[0].Timestamp)
		assert.Equal(t, 1.0, samples[1].Timestamp)
	})
}

func TestNormalize_StableSort(t *testing.T) {
	raw := map[string]interface{}{
		"battery_series": []interface{}{
			map[string]interface{}{"timestamp": 3.0, "voltage": 12.1},
			map[string]interface{}{"timestamp": 1.0, "voltage": 12.6},
			map[string]interface{}{"timestamp": 3.0, "voltage": 11.9},
			map[string]interface{}{"timestamp": 2.0, "voltage": 12.4},
		},
	}

	battery := newTestNormalizer().Normalize(raw).SeriesByName(models.SeriesBattery)
	require.NotNil(t, battery)
	require.Len(t, battery.Samples, 4)

	for i := 1; i < len(battery.Samples); i++ {
		assert.LessOrEqual(t, battery.Samples[i-1].Timestamp, battery.Samples[i].Timestamp)
	}
	assert.Equal(t, 12.1, battery.Samples[2].Fields["voltage"])
	assert.Equal(t, 11.9, battery.Samples[3].Fields["voltage"])
}

func TestNormalize_LegacyBatteryNames(t *testing.T) {
	raw := map[string]interface{}{
		"batterySeries": []interface{}{
			map[string]interface{}{"timestamp": 1.0, "Volt": 12.3, "Curr": 8.5, "temp": 31.0, "rem": 80.0},
			[]interface{}{2.0, 12.2, 8.7},
		},
	}

	battery := newTestNormalizer().Normalize(raw).SeriesByName(models.SeriesBattery)
	require.NotNil(t, battery)
	assert.Equal(t, map[string]interface{}{
		"voltage": 12.3, "current": 8.5, "temperature": 31.0, "remaining": 80.0,
	}, battery.Samples[0].Fields)
	assert.Equal(t, map[string]interface{}{"voltage": 12.2, "current": 8.7}, battery.Samples[1].Fields)
}

func TestNormalize_RCInputs(t *testing.T) {
	raw := map[string]interface{}{
		"rc_inputs": []interface{}{
			map[string]interface{}{"timestamp": 1.0, "rssi": 80.0, "failsafe": 0.0, "channels": []interface{}{1500.0, 1520.0}},
			map[string]interface{}{"timestamp": 2.0, "signal_strength": 0.0, "signal_lost": true},
		},
	}

	rc := newTestNormalizer().Normalize(raw).SeriesByName(models.SeriesRCInputs)
	require.NotNil(t, rc)
	assert.Equal(t, 80.0, rc.Samples[0].Fields["signal_strength"])
	assert.Equal(t, false, rc.Samples[0].Fields["signal_lost"])
	assert.Equal(t, 1520.0, rc.Samples[0].Fields["ch2"])
	assert.Equal(t, true, rc.Samples[1].Fields["signal_lost"])
}

func TestNormalize_GpsMetadata(t *testing.T) {
	raw := map[string]interface{}{
		"gps_metadata": map[string]interface{}{
			"status_changes": []interface{}{
				map[string]interface{}{"timestamp": 1.0, "status": "3D_FIX"},
				map[string]interface{}{"timestamp": 2.0, "status": "3D_FIX"},
				map[string]interface{}{"timestamp": 3.0, "fix_status": 1.0},
				map[string]interface{}{"timestamp": 4.0, "status": "3d_fix"},
			},
			"satellite_counts": []interface{}{10.0, 9.0, 5.0},
			"signal_quality": []interface{}{
				map[string]interface{}{"timestamp": 1.0, "hdop": 0.9},
				map[string]interface{}{"timestamp": 2.0, "hdop": 1.1, "vdop": 1.4},
			},
			"accuracy_metrics": []interface{}{
				map[string]interface{}{"timestamp": 1.0, "hacc": 1.2},
			},
		},
	}

	gps := newTestNormalizer().Normalize(raw).GPS
	require.NotNil(t, gps)

	require.Len(t, gps.StatusChanges, 3)
	assert.Equal(t, "3D_FIX", gps.StatusChanges[0].Status)
	assert.Equal(t, models.GpsStatusNoFix, gps.StatusChanges[1].Status)
	assert.Equal(t, 4.0, gps.StatusChanges[2].Timestamp)

	assert.Equal(t, []models.SatelliteCount{{Timestamp: 0, Count: 10}, {Timestamp: 1, Count: 9}, {Timestamp: 2, Count: 5}}, gps.SatelliteCounts)

	require.Len(t, gps.SignalQuality, 2)
	assert.Nil(t, gps.SignalQuality[0].VDOP)
	require.NotNil(t, gps.SignalQuality[1].VDOP)
	assert.Equal(t, 1.4, *gps.SignalQuality[1].VDOP)

	require.Len(t, gps.AccuracyMetrics, 1)
	assert.Equal(t, 1.2, *gps.AccuracyMetrics[0].HAcc)
	assert.Nil(t, gps.AccuracyMetrics[0].VAcc)
}

func TestNormalize_UnknownFieldsPreserved(t *testing.T) {
	fences := []interface{}{map[string]interface{}{"lat": 47.0, "lon": 8.0}}
	raw := map[string]interface{}{
		"vehicle":    "ArduCopter",
		"fences":     fences,
		"custom_tag": "bench-test",
	}

	record := newTestNormalizer().Normalize(raw)
	assert.Equal(t, models.VehicleCopter, record.Vehicle)
	assert.Equal(t, fences, record.Extra["fences"])
	assert.Equal(t, "bench-test", record.Extra["custom_tag"])
	assert.NotContains(t, record.Extra, "vehicle")
}

func TestNormalize_MalformedInput(t *testing.T) {
	raw := map[string]interface{}{
		"attitude_series": "not-a-list",
		"battery_series": []interface{}{
			map[string]interface{}{"voltage": 12.0},
			map[string]interface{}{"timestamp": 1.0, "voltage": 12.0},
			"garbage",
		},
		"vehicle": 42.0,
	}

	record := newTestNormalizer().Normalize(raw)
	assert.Nil(t, record.SeriesByName(models.SeriesAttitude))
	assert.NotContains(t, record.Series, models.SeriesAttitude)
	assert.Equal(t, models.VehicleUnknown, record.Vehicle)

	battery := record.SeriesByName(models.SeriesBattery)
	require.NotNil(t, battery)
	assert.Len(t, battery.Samples, 1)

	fields := make([]string, 0, len(record.Diagnostics))
	for _, d := range record.Diagnostics {
		assert.Equal(t, models.DiagnosticMalformedInput, d.Kind)
		fields = append(fields, d.Field)
	}
	assert.Equal(t, []string{"attitude_series", "battery_series", "vehicle"}, fields)
	assert.Contains(t, record.Diagnostics[1].Detail, "2 occurrences")
}

func TestNormalize_EmptyAndNonObjectInput(t *testing.T) {
	tests := []struct {
		name      string
		raw       interface{}
		wantDiags int
	}{
		{"Empty object", map[string]interface{}{}, 0},
		{"Nil", nil, 1},
		{"List at top level", []interface{}{1.0, 2.0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := newTestNormalizer().Normalize(tt.raw)
			require.NotNil(t, record)
			assert.Empty(t, record.Series)
			assert.Empty(t, record.Trajectories)
			assert.Nil(t, record.GPS)
			assert.Len(t, record.Diagnostics, tt.wantDiags)
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	data := []byte(`{
		"vehicle": "ArduPlane",
		"timeAttitude": {"3": [1, 2, 3], "1": [0, 0, 0], "2": [4, 5, 6]},
		"params": [[0, "A", 1], [0, "A", 2]],
		"events": [[1, "x"], [1, "y"]],
		"flightModeChanges": [[0, "MANUAL"], [50, "AUTO"]]
	}`)

	n := newTestNormalizer()
	first, err := n.NormalizeJSON(data)
	require.NoError(t, err)
	second, err := n.NormalizeJSON(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, models.VehiclePlane, first.Vehicle)

	events := first.SeriesByName(models.SeriesEvents).Samples
	assert.Equal(t, "x", events[0].Fields["message"])
	assert.Equal(t, "y", events[1].Fields["message"])
}

func TestNormalizeJSON_InvalidSyntax(t *testing.T) {
	_, err := newTestNormalizer().NormalizeJSON([]byte(`{"vehicle": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode flight log")
}

func TestNormalize_RecordIDWithoutJSONForm(t *testing.T) {
	build := func(voltage float64) map[string]interface{} {
		return map[string]interface{}{
			"junk": math.NaN(),
			"battery_series": []interface{}{
				map[string]interface{}{"timestamp": 0.0, "voltage": voltage},
			},
		}
	}

	n := newTestNormalizer()
	a := n.Normalize(build(12.0))
	b := n.Normalize(build(9.0))
	again := n.Normalize(build(12.0))

	assert.NotEmpty(t, a.ID)
	assert.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.ID, again.ID)
}

func TestNormalize_TypedGoValues(t *testing.T) {
	raw := map[string]interface{}{
		"vehicle": "ArduCopter",
		"battery_series": []map[string]interface{}{
			{"timestamp": 1, "voltage": 12.4},
			{"timestamp": 0, "voltage": float32(12.5)},
		},
		"trajectories": map[string]map[string]interface{}{
			"GPS": {"trajectory": [][]float64{{7, 46, 100, 0}, {7, 46.001, 110, 1}}},
		},
		"timeAttitude": map[string][3]float64{"0": {1, 2, 3}},
	}

	record := newTestNormalizer().Normalize(raw)
	assert.Empty(t, record.Diagnostics)

	battery := record.SeriesByName(models.SeriesBattery)
	require.NotNil(t, battery)
	require.Len(t, battery.Samples, 2)
	assert.Equal(t, 0.0, battery.Samples[0].Timestamp)
	assert.Equal(t, 12.4, battery.Samples[1].Fields["voltage"])

	track := record.PrimaryTrajectory().Points()
	require.NotNil(t, track)
	assert.Equal(t, 2, track.Len())

	attitude := record.SeriesByName(models.SeriesAttitude)
	require.NotNil(t, attitude)
	assert.Equal(t, 1, attitude.Len())
}

func TestNormalize_DuplicateSectionKeysKept(t *testing.T) {
	second := []interface{}{map[string]interface{}{"timestamp": 5.0, "roll": 9.0}}
	raw := map[string]interface{}{
		"attitude_series": []interface{}{map[string]interface{}{"timestamp": 0.0, "roll": 1.0}},
		"attitude":        second,
	}

	record := newTestNormalizer().Normalize(raw)

	attitude := record.SeriesByName(models.SeriesAttitude)
	require.NotNil(t, attitude)
	require.Len(t, attitude.Samples, 1)
	assert.Equal(t, 0.0, attitude.Samples[0].Timestamp)
	assert.Equal(t, second, record.Extra["attitude"])
	assert.NotContains(t, record.Extra, "attitude_series")
}

func TestSectionLabel(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"trajectories.my-drone-42.trajectory", "trajectories"},
		{"trajectories", "trajectories"},
		{"gps_metadata.status_changes", "gps_metadata"},
		{"battery_series", "battery_series"},
		{"$", "$"},
		{"unexpected.path", "$"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, sectionLabel(tt.field))
		})
	}
}
