package cli

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/flybeeper/flightlog-engine/internal/filter"
	"github.com/flybeeper/flightlog-engine/internal/service"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		start, end float64
		agg        string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "query FILE PARAM",
		Short: "Query one parameter with optional time range and aggregation",
		Example: `  flightlog query flight.json ALTITUDE
  flightlog query flight.json BATTERY_VOLTAGE --start 100 --end 200 --agg mean
  flightlog query flight.json HDOP --agg "decimate(10)"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			aggregation, err := filter.ParseAggregation(agg)
			if err != nil {
				return err
			}

			q := service.Query{Parameter: args[1], Aggregation: aggregation}
			startSet, endSet := cmd.Flags().Changed("start"), cmd.Flags().Changed("end")
			if startSet || endSet {
				tr := &filter.TimeRange{Start: -math.MaxFloat64, End: math.MaxFloat64}
				if startSet {
					tr.Start = start
				}
				if endSet {
					tr.End = end
				}
				if tr.Start > tr.End {
					return fmt.Errorf("invalid time range: start %g is after end %g", tr.Start, tr.End)
				}
				q.TimeRange = tr
			}

			record, err := a.loadRecord(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var result service.QueryResult
			if noCache {
				result = a.service.Query(ctx, record, q, nil)
			} else {
				result = a.service.Query(ctx, record, q, a.queryCache(ctx))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("failed to write query result: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&start, "start", 0, "range start timestamp (inclusive)")
	cmd.Flags().Float64Var(&end, "end", 0, "range end timestamp (inclusive)")
	cmd.Flags().StringVar(&agg, "agg", "raw", "aggregation: raw, mean, max, min, std, decimate(n)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the query cache")
	return cmd
}
