package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-irrigation/internal/strategy"
)

func newStrategiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "Inspect watering strategy documents",
	}
	cmd.AddCommand(newStrategiesCheckCmd())
	return cmd
}

// newStrategiesCheckCmd validates a strategy document without starting
// the controller. With no argument the bundled document is checked.
// A missing file is an error here, unlike at startup.
func newStrategiesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a strategy document and list its strategies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source strategy.Source = strategy.NewBundledSource()
			if len(args) == 1 {
				source = &strategy.FileSource{Path: args[0]}
			}

			store := strategy.NewStore(source, nil)
			if err := store.Load(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: ok, active strategy %q\n", source.Location(), store.ActiveName())

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tTHIRSTY\tMOIST\tOVERWATERED\tUNKNOWN\tACTIVE")
			for _, e := range store.List() {
				d := e.Definition.Durations
				active := ""
				if e.Active {
					active = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					e.Key, e.Definition.Name, d.Thirsty, d.Moist, d.Overwatered, d.Unknown, active)
			}
			return tw.Flush()
		},
	}
}
