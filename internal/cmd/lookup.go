package cmd

import (
	"github.com/spf13/cobra"

	"github.com/edgarlens/edgarlens/internal/edgar"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve a ticker or company name to a CIK",
	Long: `Look up the ten-digit CIK of an entity in the SEC company index, either
by exact ticker or by a case-insensitive substring of the company name.`,
	Example: `  edgarlens lookup --ticker TSLA
  edgarlens lookup --search "walt disney"`,
	Args: cobra.NoArgs,
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	addOutputFlags(lookupCmd)
	lookupCmd.Flags().String("ticker", "", "exact ticker symbol")
	lookupCmd.Flags().String("search", "", "company name substring")
}

func runLookup(cmd *cobra.Command, args []string) error {
	ticker, err := cmd.Flags().GetString("ticker")
	if err != nil {
		return err
	}
	search, err := cmd.Flags().GetString("search")
	if err != nil {
		return err
	}

	lookup := edgar.Lookup{Ticker: ticker, SearchText: search}
	if err := lookup.Validate(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close() // nolint:errcheck // releases idle connections only

	cik, err := client.GetCIK(cmd.Context(), lookup)
	if err != nil {
		return err
	}
	return renderResult(cmd, cik)
}
