package cmd

import (
	"github.com/spf13/cobra"

	"github.com/edgarlens/edgarlens/internal/edgar"
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions <ticker|cik>",
	Short: "Show an entity's filing history",
	Long: `Fetch the submission history of an entity, including the recent filings
and the list of additional history files.

The identifier is treated as a CIK when it is all digits and as a ticker
otherwise.`,
	Example: `  edgarlens submissions AAPL
  edgarlens submissions 320193 -o json --out aapl.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmissions,
}

func init() {
	rootCmd.AddCommand(submissionsCmd)
	addOutputFlags(submissionsCmd)
}

func runSubmissions(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close() // nolint:errcheck // releases idle connections only

	history, err := client.Submissions(cmd.Context(), edgar.ParseSelector(args[0]))
	if err != nil {
		return err
	}
	return renderResult(cmd, history)
}
