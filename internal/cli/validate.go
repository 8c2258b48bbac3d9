package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"rag-agent/internal/domain"
	"rag-agent/internal/validate"
)

var (
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	checkStyle   = lipgloss.NewStyle().Bold(true)
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

func newValidateCommand(a *app) *cobra.Command {
	var skipSmoke bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check index configuration, connectivity and read/write health",
		Long: `Run the diagnostic suite against the configured index: environment
variables, API key authentication, index existence, dimension/metric
match, stats, and an upsert/query/delete smoke test with a throwaway
probe record. Exits non-zero when any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Index.Type != "pinecone" && a.cfg.Index.Type != "" {
				return domain.NewConfigError("index.type", "validate targets the remote index; index.type must be pinecone")
			}
			client, err := a.buildPineconeClient()
			if err != nil {
				return err
			}
			var embedder domain.Embedder
			if !skipSmoke {
				if embedder, err = a.buildEmbedder(); err != nil {
					return err
				}
			}
			v := validate.New(client, embedder, a.cfg.Index.Dimension, a.cfg.Index.Metric, a.log)
			results := v.Run(cmd.Context())

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				mark := passStyle.Render("PASS")
				if !r.OK {
					mark = failStyle.Render("FAIL")
					failed++
				}
				fmt.Fprintf(out, "%s  %s: %s\n", mark, checkStyle.Render(r.Name), r.Message)
			}
			fmt.Fprintln(out, summaryStyle.Render(fmt.Sprintf("%d/%d checks passed", len(results)-failed, len(results))))
			if failed > 0 {
				return fmt.Errorf("%d validation check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipSmoke, "skip-smoke", false, "skip the upsert/query/delete smoke test")
	return cmd
}
