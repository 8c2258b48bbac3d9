package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"rag-agent/internal/domain"
	"rag-agent/internal/tui"
)

func newSearchCommand(a *app) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "search [file...]",
		Short: "Interactive search over the index",
		Long: `Open an interactive search screen. When files are given they are
ingested first; with the in-memory store that is the only way to have
anything to search.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := a.buildPipeline()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if len(args) > 0 {
				if _, err := pipeline.Ingest(ctx, args, overwrite); err != nil {
					return err
				}
			} else if a.cfg.Index.Type == "memory" {
				return errors.New("the in-memory store is empty; pass files to ingest first")
			}

			statsLine := fmt.Sprintf("index %q", a.cfg.Index.Name)
			if stats, err := pipeline.Stats(ctx); err == nil {
				statsLine = fmt.Sprintf("index %q: %d vector(s), dimension %d",
					a.cfg.Index.Name, stats.VectorCount, stats.Dimension)
			} else if errors.Is(err, domain.ErrIndexNotFound) {
				return fmt.Errorf("index %q does not exist; ingest first", a.cfg.Index.Name)
			}

			m := tui.New(pipeline, statsLine, a.cfg.Query.SimilarityThreshold, a.cfg.Query.TopK)
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "destroy and recreate the index before ingesting")
	return cmd
}
