package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"straddle-stream/internal/app"
)

var (
	exportFrom string
	exportTo   string
	exportCSV  string
	exportPNG  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived straddle history as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			CSVPath: exportCSV,
			PNGPath: exportPNG,
		}

		if exportFrom != "" {
			parsed, err := time.Parse(time.RFC3339, exportFrom)
			if err != nil {
				return fmt.Errorf("parse --from: %w", err)
			}
			opts.From = &parsed
		}
		if exportTo != "" {
			parsed, err := time.Parse(time.RFC3339, exportTo)
			if err != nil {
				return fmt.Errorf("parse --to: %w", err)
			}
			opts.To = &parsed
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Window start (RFC3339, default 24h ago)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Window end (RFC3339, default now)")
	exportCmd.Flags().StringVar(&exportCSV, "csv", "", "Write samples to this CSV file")
	exportCmd.Flags().StringVar(&exportPNG, "png", "", "Render straddle chart to this PNG file")
}
