package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently executed queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := openHistory(cfg)
			if store == nil {
				return fmt.Errorf("history is not available (path %q)", cfg.HistoryPath)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no history)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Ran At", "Query", "Result", "Rows", "Elapsed", "Error"})
			for _, e := range entries {
				t.AppendRow(table.Row{
					e.RanAt.Local().Format(time.DateTime),
					e.Source,
					e.ResultType,
					e.RowCount,
					e.Elapsed,
					e.Err,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries to show")
	return cmd
}
