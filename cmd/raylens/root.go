// Command raylens is a query shell for the Rayforce engine. All engine
// access goes through the bridge package, which serializes it onto one
// dedicated thread.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/RayforceDB/raylens/bridge"
	"github.com/RayforceDB/raylens/config"
	"github.com/RayforceDB/raylens/history"
	"github.com/RayforceDB/raylens/ray"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "raylens",
		Short: "raylens - query shell for the Rayforce engine",
		Long: `raylens runs queries against an embedded Rayforce engine.

The engine is single-threaded; raylens serializes all access onto one
dedicated worker thread and pages results through bounded row windows,
so arbitrarily large results never have to be materialized at once.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			log, err = buildLogger(cfg)
			if err != nil {
				return err
			}
			bridge.SetLogger(log)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (%s)\n", GitCommit))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./raylens.yaml)")
	rootCmd.PersistentFlags().String("engine", config.DefaultEngine, "engine implementation (native|memory)")
	rootCmd.PersistentFlags().String("history-path", "", "path to the query history database")
	rootCmd.PersistentFlags().Uint64("fetch-window", config.DefaultFetchWindow, "rows fetched per request when paging results")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "log format (console|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.EngineNative, config.EngineMemory}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newReplCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zc zap.Config
	if cfg.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// Logs go to stderr so stdout stays clean for query output.
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// newEngine selects the engine implementation from configuration.
func newEngine(cfg *config.Config) ray.Engine {
	if cfg.Engine == config.EngineMemory {
		return demoEngine()
	}
	return ray.NewNative()
}

// demoEngine is the in-memory stand-in, preloaded with a few queries so
// the shell is usable without the native runtime.
func demoEngine() ray.Engine {
	e := ray.NewMem()
	e.Bind("til 5", func() ray.Value { return ray.NewI64Vector(0, 1, 2, 3, 4) })
	e.Bind("1+1", func() ray.Value { return ray.NewI64(2) })
	e.Bind("trades", func() ray.Value {
		return ray.NewTable(
			[]string{"sym", "price", "size"},
			ray.NewSymbolVector("aapl", "msft", "goog", "amzn"),
			ray.NewF64Vector(187.5, 402.1, 141.9, 178.3),
			ray.NewI64Vector(100, 250, 75, 310),
		)
	})
	return e
}

// openBridge builds the configured engine, wraps it in a bridge, and
// starts the worker.
func openBridge(cfg *config.Config) (*bridge.Bridge, error) {
	b := bridge.New(newEngine(cfg))
	if err := b.Start(); err != nil {
		return nil, err
	}
	return b, nil
}

// openHistory opens the history store if one is configured. A failure is
// not fatal: the shell still works, it just forgets.
func openHistory(cfg *config.Config) *history.Store {
	if cfg.HistoryPath == "" {
		return nil
	}
	s, err := history.Open(cfg.HistoryPath)
	if err != nil {
		log.Warn("history disabled", zap.String("path", cfg.HistoryPath), zap.Error(err))
		return nil
	}
	return s
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
