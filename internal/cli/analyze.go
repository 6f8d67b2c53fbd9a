package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/flybeeper/flightlog-engine/internal/models"
	"github.com/flybeeper/flightlog-engine/internal/service"
)

// fileReport отчет анализа одного файла
type fileReport struct {
	File   string                 `json:"file"`
	Report service.AnalysisReport `json:"report"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		compact     bool
		concurrency int
		failOn      string
	)

	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Analyze flight logs: summaries, anomalies, phases and data quality",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fmt.Errorf("invalid concurrency %d: must be at least 1", concurrency)
			}
			threshold := models.Severity(failOn)
			if failOn != "" && threshold.Rank() == 0 {
				return fmt.Errorf("invalid --fail-on severity %q: expected low, medium, high or critical", failOn)
			}

			reports := make([]fileReport, len(args))

			g, gCtx := errgroup.WithContext(cmd.Context())
			g.SetLimit(concurrency)
			for i, path := range args {
				i, path := i, path
				g.Go(func() error {
					if err := gCtx.Err(); err != nil {
						return err
					}
					record, err := a.loadRecord(path)
					if err != nil {
						return err
					}
					reports[i] = fileReport{File: path, Report: a.service.Analyze(record)}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			a.logger.WithField("files", len(args)).Info("Analysis completed")

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			failed := 0
			for _, r := range reports {
				if err := enc.Encode(r); err != nil {
					return fmt.Errorf("failed to write report for %s: %w", r.File, err)
				}
				if failOn != "" && r.Report.MaxSeverity.Rank() >= threshold.Rank() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("anomalies of severity %s or higher found in %d of %d files", failOn, failed, len(reports))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "write one JSON report per line")
	cmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "maximum number of files analyzed in parallel")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "exit with an error when any anomaly reaches this severity (low, medium, high, critical)")
	return cmd
}
