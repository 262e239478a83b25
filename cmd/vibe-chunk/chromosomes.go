package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-chunk/internal/chunk"
	"github.com/inodb/vibe-chunk/internal/pipeline"
)

func newChromosomesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chromosomes",
		Short: "List stored chromosomes in export order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			exp := pipeline.NewExporter(store, categoryNames(cats), nil, chunk.NewOrderer(aliases), nil)
			chroms, err := exp.Chromosomes(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(chroms, "\n"))
			return nil
		},
	}
}
