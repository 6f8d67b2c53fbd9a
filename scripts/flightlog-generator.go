package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flybeeper/flightlog-engine/pkg/flightgen"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

func main() {
	// Параметры командной строки
	var (
		outDir    = flag.String("out", ".", "output directory")
		count     = flag.Int("count", 1, "number of flight logs to generate")
		samples   = flag.Int("samples", 600, "samples per flight log")
		interval  = flag.Float64("interval", 1, "seconds between samples")
		seed      = flag.Int64("seed", 1, "random seed of the first log")
		vehicle   = flag.String("vehicle", "ArduCopter", "vehicle type")
		altitude  = flag.Float64("altitude", 120, "cruise altitude in meters")
		timeKeyed = flag.Bool("time-keyed", false, "write trajectories in timeTrajectory form")
		faults    = flag.Bool("faults", false, "inject all anomalies")
		logLevel  = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger := utils.NewLogger(*logLevel, "text")

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.WithError(err).Fatal("Failed to create output directory")
	}

	for i := 0; i < *count; i++ {
		opts := flightgen.Options{
			Samples:        *samples,
			Seed:           *seed + int64(i),
			Vehicle:        *vehicle,
			CruiseAltitude: *altitude,
			Interval:       *interval,
			TimeKeyed:      *timeKeyed,
		}
		if *faults {
			opts.Anomalies = flightgen.AllAnomalies()
		}

		data, err := flightgen.New(opts).JSON()
		if err != nil {
			logger.WithError(err).Fatal("Failed to generate flight log")
		}

		path := filepath.Join(*outDir, fmt.Sprintf("flight-%03d.json", i+1))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			logger.WithError(err).WithField("path", path).Fatal("Failed to write flight log")
		}

		logger.WithField("path", path).
			WithField("samples", opts.Samples).
			WithField("seed", opts.Seed).
			WithField("faults", *faults).
			Info("Flight log generated")
	}
}
