package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/flybeeper/flightlog-engine/internal/cache"
	"github.com/flybeeper/flightlog-engine/internal/config"
	"github.com/flybeeper/flightlog-engine/internal/metrics"
	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/normalizer"
	"github.com/flybeeper/flightlog-engine/internal/service"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

// Информация о сборке, устанавливается через ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// app общее состояние команд
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string

	cfg        *config.Config
	logger     *utils.Logger
	normalizer *normalizer.Normalizer
	service    *service.TelemetryService
	cache      cache.Cache

	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand создает корневую команду flightlog
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

// NewRootCommandWithIO создает корневую команду с заданными потоками вывода
func NewRootCommandWithIO(out, errOut io.Writer) *cobra.Command {
	return newRootCommand(out, errOut)
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:               "flightlog",
		Short:             "UAV flight log telemetry normalization and anomaly detection",
		Long:              "flightlog normalizes heterogeneous UAV flight logs and reports parameter series, statistics, anomalies, flight phases and data quality.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           Version,
		PersistentPreRunE: a.setup,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json)")
	cmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file after the run")

	cmd.AddCommand(
		newAnalyzeCmd(a),
		newQueryCmd(a),
		newParamsCmd(a),
	)
	// PersistentPostRunE не вызывается при ошибке RunE, поэтому teardown оборачивает каждую команду
	for _, sub := range cmd.Commands() {
		if sub.RunE != nil {
			sub.RunE = a.withTeardown(sub.RunE)
		}
	}

	cmd.SetVersionTemplate(fmt.Sprintf("flightlog {{.Version}} (commit %s, built %s)\n", Commit, BuildTime))
	return cmd
}

// setup загружает конфигурацию и создает компоненты движка
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.metricsFile != "" {
		cfg.Monitoring.MetricsFile = a.metricsFile
		cfg.Monitoring.MetricsEnabled = true
	}

	a.cfg = cfg
	a.logger = utils.NewLoggerWithOutput(cfg.Logging.Level, cfg.Logging.Format, a.stderr)
	a.normalizer = normalizer.NewNormalizer(a.logger)
	a.service = service.NewTelemetryService(&cfg.Detection, a.logger)

	metrics.SetAppInfo(Version, Commit, BuildTime)

	a.logger.WithField("command", cmd.Name()).
		WithField("environment", cfg.Environment).
		WithField("version", Version).
		Debug("Configuration loaded")
	return nil
}

// withTeardown выполняет teardown после команды независимо от ее результата
func (a *app) withTeardown(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if tErr := a.teardown(); err == nil {
				err = tErr
			}
		}()
		return run(cmd, args)
	}
}

// teardown закрывает кэш и выгружает метрики
func (a *app) teardown() error {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close query cache")
		}
		a.cache = nil
	}

	if a.cfg == nil || !a.cfg.Monitoring.MetricsEnabled || a.cfg.Monitoring.MetricsFile == "" {
		return nil
	}
	if err := metrics.WriteToFile(a.cfg.Monitoring.MetricsFile); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	a.logger.WithField("path", a.cfg.Monitoring.MetricsFile).Debug("Metrics written")
	return nil
}

// queryCache лениво создает кэш запросов по конфигурации
func (a *app) queryCache(ctx context.Context) cache.Cache {
	if a.cache != nil {
		return a.cache
	}
	c, err := cache.New(ctx, a.cfg, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("Query cache unavailable, continuing without cache")
		return nil
	}
	a.cache = c
	return c
}

// loadRecord читает и нормализует полетный лог из файла
func (a *app) loadRecord(path string) (*models.FlightRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flight log %s: %w", path, err)
	}
	record, err := a.normalizer.NormalizeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s: %w", path, err)
	}

	a.logger.WithField("file", path).
		WithField("record_id", record.ID).
		WithField("vehicle", record.Vehicle).
		WithField("diagnostics", len(record.Diagnostics)).
		Debug("Flight log loaded")
	return record, nil
}
