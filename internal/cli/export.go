package cli

import (
	"github.com/spf13/cobra"

	"settlement-times/internal/app"
)

var (
	exportPNGPath     string
	exportCSVPath     string
	exportOrigin      string
	exportDestination string
	exportAsset       string
	exportMaxRows     int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export route settlement stats as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			PNGPath:     exportPNGPath,
			CSVPath:     exportCSVPath,
			Origin:      exportOrigin,
			Destination: exportDestination,
			Asset:       exportAsset,
			MaxRows:     exportMaxRows,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportOrigin, "origin", "", "Filter by origin chain")
	exportCmd.Flags().StringVar(&exportDestination, "destination", "", "Filter by destination chain")
	exportCmd.Flags().StringVar(&exportAsset, "asset", "", "Filter by asset symbol")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0, "Maximum rows to export (defaults to config)")
}
