package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"rag-agent/internal/domain"
)

var (
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noMatchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func newQueryCommand(a *app) *cobra.Command {
	var topK int
	var threshold float64

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a similarity search against the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("top-k") {
				topK = a.cfg.Query.TopK
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.Query.SimilarityThreshold
			}
			pipeline, err := a.buildPipeline()
			if err != nil {
				return err
			}
			results, err := pipeline.Query(cmd.Context(), args[0], threshold, topK)
			if err != nil {
				return err
			}
			printResults(cmd, results, threshold)
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 3, "maximum number of results")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.7, "minimum similarity score for a match")
	return cmd
}

func printResults(cmd *cobra.Command, results []domain.QueryResult, threshold float64) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, noMatchStyle.Render(fmt.Sprintf("No matching documents above threshold %.2f.", threshold)))
		return
	}
	for i, r := range results {
		source := r.SourcePath
		if page, ok := r.Metadata[domain.MetaPage]; ok {
			source += " p." + page
		}
		fmt.Fprintf(out, "%d. %s  %s\n", i+1,
			scoreStyle.Render(fmt.Sprintf("%.3f", r.Score)),
			sourceStyle.Render(source))
		fmt.Fprintln(out, r.Text)
		fmt.Fprintln(out)
	}
}
