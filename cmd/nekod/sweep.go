package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var sweepRemove bool

var sweepCmd = &cobra.Command{
	Use:   "sweep-orphans",
	Short: "Count rows whose owning identity no longer exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, sweepErr := a.service(nil, nil).SweepOrphans(ctx, sweepRemove)
		tables := make([]string, 0, len(counts))
		for t := range counts {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		verb := "orphaned"
		if sweepRemove {
			verb = "removed"
		}
		for _, t := range tables {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %d %s\n", t, counts[t], verb)
		}
		return sweepErr
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepRemove, "remove", false, "delete orphaned rows instead of only counting them")
}
