package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCommand(a *app) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "ingest <file> [file...]",
		Short: "Load, split, embed and index documents",
		Long: `Load the given files (.txt, .md, .pdf), split them into overlapping
chunks, embed each chunk and upsert the records into the vector index.
The index is created on first use. With --overwrite the existing index
is destroyed and recreated, discarding everything stored in it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := a.buildPipeline()
			if err != nil {
				return err
			}
			stats, err := pipeline.Ingest(cmd.Context(), args, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunk(s) from %d document(s) into %q.\n",
				stats.Upserted, stats.Documents, a.cfg.Index.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "destroy and recreate the index before ingesting")
	return cmd
}
