// Package main provides the vibe-chunk command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

// usageError marks errors caused by bad command-line input.
type usageError struct{ error }

func main() {
	os.Exit(run())
}

func run() int {
	// Interrupts stop the export between chromosomes
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe-chunk",
		Short: "Chunk regulatory features into line-delimited JSON",
		Long: `vibe-chunk imports Ensembl regulatory feature files (GFF) into a DuckDB
store and exports them per chromosome as fixed-size position chunks, one JSON
document per chunk per line.`,
		Example: `  # Import the four regulation files from a directory
  vibe-chunk load --data-dir ~/cellbase/hsapiens/genomic_regulatory_region

  # Export chunks
  vibe-chunk export -o regulatory.json

  # Continue an interrupted export
  vibe-chunk export -o regulatory.json --resume`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			return initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.vibe-chunk.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose (development) logging")
	pf.String("data-dir", "", "Directory holding the regulation input files")
	pf.String("db", "", "DuckDB feature store (default: ~/.vibe-chunk/regulation.duckdb)")
	pf.Int64("chunk-size", 0, "Chunk width in bases (default: 2000)")
	for key, name := range map[string]string{"data_dir": "data-dir", "db": "db", "chunk_size": "chunk-size"} {
		if err := viper.BindPFlag(key, pf.Lookup(name)); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(newLoadCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newChromosomesCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig reads ~/.vibe-chunk.yaml (or --config) and VIBE_CHUNK_* variables.
func initConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}

	viper.SetDefault("data_dir", ".")
	viper.SetDefault("db", filepath.Join(home, ".vibe-chunk", "regulation.duckdb"))
	viper.SetDefault("output", "regulatory.json")
	viper.SetDefault("chunk_size", 2000)
	viper.SetDefault("legacy_double_encoding", false)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(home)
		viper.SetConfigName(".vibe-chunk")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VIBE_CHUNK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func initLogger() error {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger = l
	return nil
}
