package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-chunk/internal/chunk"
	"github.com/inodb/vibe-chunk/internal/output"
	"github.com/inodb/vibe-chunk/internal/pipeline"
)

func newExportCmd() *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write chunked features as line-delimited JSON",
		Long: `Export every stored category chromosome by chromosome. Each chunk of
features becomes one JSON document on its own line.

Progress is checkpointed next to the output file after each category, so an
interrupted export can be continued with --resume.`,
		Example: `  vibe-chunk export -o regulatory.json
  vibe-chunk export -o regulatory.json --resume
  vibe-chunk export -o legacy.json --legacy-double-encoding`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, resume)
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", "", "Output file (default: regulatory.json)")
	f.Bool("legacy-double-encoding", false, "Write each document as a JSON string literal, like the legacy exporter")
	f.StringSlice("alias", nil, "Extra chromosome rank, e.g. MT=25 (repeatable)")
	f.BoolVar(&resume, "resume", false, "Continue the output from its checkpoint, discarding lines written after it")
	for key, name := range map[string]string{
		"output":                 "output",
		"legacy_double_encoding": "legacy-double-encoding",
		"chromosome_aliases":     "alias",
	} {
		if err := viper.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(err)
		}
	}

	return cmd
}

func runExport(cmd *cobra.Command, resume bool) error {
	ctx := cmd.Context()

	cats, err := configuredCategories()
	if err != nil {
		return usageError{err}
	}
	aliases, err := chromosomeAliases()
	if err != nil {
		return usageError{err}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	outPath := viper.GetString("output")
	cp := pipeline.NewCheckpoint(pipeline.PathFor(outPath))

	// Resuming cuts the file back to the last checkpointed category
	out, offset, err := cp.OpenOutput(outPath, resume)
	if err != nil {
		return err
	}
	defer out.Close()

	w := output.NewJSONLWriterAt(out, offset)
	if viper.GetBool("legacy_double_encoding") {
		logger.Warn("legacy double JSON encoding enabled; lines are JSON strings, not objects")
		w.SetLegacy(true)
	}

	agg := chunk.NewAggregator(viper.GetInt64("chunk_size"))
	exp := pipeline.NewExporter(store, categoryNames(cats), agg, chunk.NewOrderer(aliases), w)
	exp.SetLogger(logger)
	exp.SetCheckpoint(cp, resume)

	stats, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	logger.Info("export complete",
		zap.String("output", outPath),
		zap.Int("chromosomes", stats.Chromosomes),
		zap.Int("chunks", stats.Chunks),
		zap.Int("features", stats.Features),
		zap.Int("skipped", stats.Skipped))
	return nil
}
