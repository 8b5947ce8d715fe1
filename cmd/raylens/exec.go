package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RayforceDB/raylens/bridge"
	"github.com/RayforceDB/raylens/history"
)

func newExecCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "exec <query>",
		Short: "Execute a query and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "", "output format (table|json|csv|md); default table on a terminal, csv otherwise")
	return cmd
}

func runExec(cmd *cobra.Command, source, format string) error {
	if format == "" {
		format = "csv"
		if isTerminal(os.Stdout) {
			format = "table"
		}
	}

	b, err := openBridge(cfg)
	if err != nil {
		return err
	}
	defer b.Stop()

	store := openHistory(cfg)
	if store != nil {
		defer store.Close()
	}

	ctx := cmd.Context()
	queryID := uuid.NewString()
	started := time.Now()

	meta, err := b.Query(ctx, queryID, source)
	record := history.Entry{
		ID:      queryID,
		Source:  source,
		Elapsed: time.Since(started),
	}
	if err != nil {
		record.Err = err.Error()
		recordHistory(ctx, store, record)
		return err
	}
	record.ResultType = meta.ResultType
	record.RowCount = meta.RowCount
	recordHistory(ctx, store, record)

	defer func() { _ = b.Release(meta.Handle) }()
	log.Debug("query executed",
		zap.String("query_id", queryID),
		zap.String("result_type", meta.ResultType),
		zap.Uint64("rows", meta.RowCount))

	rows, err := fetchAll(ctx, b, meta)
	if err != nil {
		return err
	}
	return renderRows(cmd.OutOrStdout(), meta.Columns, rows, format)
}

// fetchAll pages through the whole result in windows of the configured
// size. The engine-side value is only read, never copied wholesale.
func fetchAll(ctx context.Context, b *bridge.Bridge, meta bridge.Meta) ([]bridge.Row, error) {
	out := make([]bridge.Row, 0, meta.RowCount)
	for start := uint64(0); start < meta.RowCount; start += cfg.FetchWindow {
		rows, err := b.FetchRows(ctx, meta.Handle, start, cfg.FetchWindow)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		out = append(out, rows...)
	}
	return out, nil
}

func recordHistory(ctx context.Context, store *history.Store, e history.Entry) {
	if store == nil {
		return
	}
	if err := store.Record(ctx, e); err != nil {
		log.Warn("failed to record history", zap.Error(err))
	}
}
