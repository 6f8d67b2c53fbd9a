package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flybeeper/flightlog-engine/internal/resolver"
)

func newParamsCmd(a *app) *cobra.Command {
	var aliases bool

	cmd := &cobra.Command{
		Use:   "params [FILE]",
		Short: "List parameters available in a flight log",
		Long:  "List parameters available in a flight log. With --aliases, list every logical parameter name the resolver understands; FILE is then optional.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var names []string
			switch {
			case len(args) == 1:
				record, err := a.loadRecord(args[0])
				if err != nil {
					return err
				}
				if aliases {
					names = availableAliases(a.service.AvailableParameters(record))
				} else {
					names = a.service.AvailableParameters(record)
				}
			case aliases:
				names = resolver.Aliases()
			default:
				return fmt.Errorf("flight log file is required unless --aliases is set")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PARAMETER\tCATEGORY")
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%s\n", name, resolver.Category(name))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&aliases, "aliases", false, "list logical parameter names instead of record series")
	return cmd
}

// availableAliases оставляет логические имена, для которых в записи есть данные
func availableAliases(available []string) []string {
	present := make(map[string]struct{}, len(available))
	for _, name := range available {
		present[name] = struct{}{}
	}
	names := make([]string, 0, len(available))
	for _, alias := range resolver.Aliases() {
		if _, ok := present[alias]; ok {
			names = append(names, alias)
		}
	}
	return names
}
