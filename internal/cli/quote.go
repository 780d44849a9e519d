package cli

import (
	"github.com/spf13/cobra"
)

var quoteIndex string

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Fetch a single straddle sample and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Quote(cmd.Context(), quoteIndex)
	},
}

func init() {
	quoteCmd.Flags().StringVar(&quoteIndex, "index", "nifty", "Index id to sample")
}
