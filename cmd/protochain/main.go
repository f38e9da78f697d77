package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"protochain/pkg/config"
	"protochain/pkg/driver"
	chainerrors "protochain/pkg/errors"
)

// app carries the state shared by every command for one invocation.
type app struct {
	// Global flags
	verbose    bool
	configPath string
	cacheStats bool

	cfg     config.Config
	logger  *zap.Logger
	session *driver.Session
}

// newRootCmd builds the command tree around a fresh app.
func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "protochain",
		Short: "protochain - prototype chain resolver",
		Long: `protochain resolves properties and methods through chains of delegate
objects, the way JavaScript prototypes work.

Run the built-in lessons, or load a YAML graph of objects and query it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			// Initialize logger
			zc := zap.NewProductionConfig()
			level, _ := cfg.Level()
			if a.verbose {
				level = zapcore.DebugLevel
			}
			zc.Level = zap.NewAtomicLevelAt(level)
			a.logger, err = zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			a.session, err = driver.NewSession(cfg, cmd.OutOrStdout(), a.logger)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.cacheStats && a.session != nil && !a.cfg.DetailedCacheStats {
				a.session.PrintCacheStats(cmd.OutOrStdout())
			}
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file (default: "+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().BoolVar(&a.cacheStats, "cache-stats", false, "Show prototype chain cache statistics after the command")

	rootCmd.AddCommand(
		a.lessonsCmd(),
		a.runCmd(),
		a.getCmd(),
		a.invokeCmd(),
		a.chainCmd(),
		a.keysCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		chainerrors.DisplayErrors(os.Stderr, []error{err})
		os.Exit(1)
	}
}
