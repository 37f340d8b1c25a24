package cmd

import (
	"github.com/spf13/cobra"
)

var framesCmd = &cobra.Command{
	Use:   "frames <taxonomy> <tag> <unit> <period>",
	Short: "Show one fact across all reporting entities for a period",
	Long: `Fetch a frame: the latest disclosure of one concept by every entity for a
calendar period.

The period is CY####, CY####Q#, CY####Q#I, or a date (YYYY-MM-DD) which is
converted to its calendar quarter. Use --instantaneous for balance-sheet
concepts measured at a point in time.`,
	Example: `  edgarlens frames us-gaap AccountsPayableCurrent USD CY2019Q1 --instantaneous
  edgarlens frames us-gaap Revenues USD 2023-06-30 -o markdown`,
	Args: cobra.ExactArgs(4),
	RunE: runFrames,
}

func init() {
	rootCmd.AddCommand(framesCmd)
	addOutputFlags(framesCmd)
	framesCmd.Flags().Bool("instantaneous", false, "request the instantaneous (I) variant of the period")
}

func runFrames(cmd *cobra.Command, args []string) error {
	instantaneous, err := cmd.Flags().GetBool("instantaneous")
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close() // nolint:errcheck // releases idle connections only

	frame, err := client.Frames(cmd.Context(), args[0], args[1], args[2], args[3], instantaneous)
	if err != nil {
		return err
	}
	return renderResult(cmd, frame)
}
