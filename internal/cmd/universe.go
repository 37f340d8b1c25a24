package cmd

import (
	"github.com/spf13/cobra"

	"github.com/edgarlens/edgarlens/internal/edgar"
)

var universeCmd = &cobra.Command{
	Use:     "universe",
	Aliases: []string{"companies"},
	Short:   "List companies in the SEC ticker index",
	Args:    cobra.NoArgs,
	RunE:    runUniverse,
}

func init() {
	rootCmd.AddCommand(universeCmd)
	addOutputFlags(universeCmd)
	universeCmd.Flags().String("ticker-prefix", "", "only list tickers starting with this prefix")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	prefix, err := cmd.Flags().GetString("ticker-prefix")
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close() // nolint:errcheck // releases idle connections only

	companies, err := client.Universe(cmd.Context())
	if err != nil {
		return err
	}
	return renderResult(cmd, edgar.FilterByTickerPrefix(companies, prefix))
}
