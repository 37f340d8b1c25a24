package cmd

import (
	"github.com/spf13/cobra"

	"github.com/edgarlens/edgarlens/internal/edgar"
)

var factsCmd = &cobra.Command{
	Use:   "facts <ticker|cik>",
	Short: "Show all XBRL facts reported by an entity",
	Long: `Fetch every XBRL concept an entity has disclosed, grouped by taxonomy.
Table and markdown output list one row per concept; use -o json or -o yaml
for the individual data points.`,
	Args: cobra.ExactArgs(1),
	RunE: runFacts,
}

func init() {
	rootCmd.AddCommand(factsCmd)
	addOutputFlags(factsCmd)
}

func runFacts(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close() // nolint:errcheck // releases idle connections only

	facts, err := client.CompanyFacts(cmd.Context(), edgar.ParseSelector(args[0]))
	if err != nil {
		return err
	}
	return renderResult(cmd, facts)
}
