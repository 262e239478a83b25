package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLoadCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Import regulation files into the feature store",
		Long: `Import every configured category file into the DuckDB feature store.
Files that have not changed since their last import are skipped.`,
		Example: `  vibe-chunk load --data-dir /data/regulation
  vibe-chunk load --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-import files even if unchanged")
	return cmd
}

func runLoad(cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()

	cats, err := configuredCategories()
	if err != nil {
		return usageError{err}
	}

	for _, c := range cats {
		if _, err := os.Stat(c.Path); err != nil {
			return fmt.Errorf("category %s: %w (set --data-dir or categories in the config)", c.Name, err)
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, c := range cats {
		if !force && store.Fresh(ctx, c) {
			logger.Info("skipping unchanged file", zap.String("category", c.Name), zap.String("path", c.Path))
			continue
		}
		n, err := store.ImportFile(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d features\n", c.Name, n)
	}
	return nil
}
