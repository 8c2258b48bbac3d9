package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newIndexCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the vector index lifecycle",
	}
	cmd.AddCommand(newIndexEnsureCommand(a), newIndexStatsCommand(a), newIndexDestroyCommand(a))
	return cmd
}

func newIndexEnsureCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Create the index if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.buildStore()
			if err != nil {
				return err
			}
			if err := store.EnsureIndex(cmd.Context(), a.cfg.Index.Dimension, a.cfg.Index.Metric); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index %q is ready (dimension %d, metric %s).\n",
				a.cfg.Index.Name, a.cfg.Index.Dimension, a.cfg.Index.Metric)
			return nil
		},
	}
}

func newIndexStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show vector count and dimension of the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.buildStore()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index %q: %d vector(s), dimension %d.\n",
				a.cfg.Index.Name, stats.VectorCount, stats.Dimension)
			return nil
		},
	}
}

func newIndexDestroyCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the index and everything stored in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "This permanently deletes index %q and all its records.\nType the index name to confirm: ", a.cfg.Index.Name)
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				if strings.TrimSpace(line) != a.cfg.Index.Name {
					return fmt.Errorf("confirmation did not match %q, aborting", a.cfg.Index.Name)
				}
			}
			store, err := a.buildStore()
			if err != nil {
				return err
			}
			if err := store.DestroyIndex(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Index %q deleted.\n", a.cfg.Index.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the interactive confirmation")
	return cmd
}
