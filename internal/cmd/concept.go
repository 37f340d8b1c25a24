package cmd

import (
	"github.com/spf13/cobra"

	"github.com/edgarlens/edgarlens/internal/edgar"
)

var conceptCmd = &cobra.Command{
	Use:   "concept <ticker|cik> <taxonomy> <tag>",
	Short: "Show every disclosure of one XBRL concept for an entity",
	Example: `  edgarlens concept AAPL us-gaap AccountsPayableCurrent
  edgarlens concept 1744489 dei EntityCommonStockSharesOutstanding -o yaml`,
	Args: cobra.ExactArgs(3),
	RunE: runConcept,
}

func init() {
	rootCmd.AddCommand(conceptCmd)
	addOutputFlags(conceptCmd)
}

func runConcept(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close() // nolint:errcheck // releases idle connections only

	concept, err := client.CompanyConcept(cmd.Context(), edgar.ParseSelector(args[0]), args[1], args[2])
	if err != nil {
		return err
	}
	return renderResult(cmd, concept)
}
