package cli

import (
	"github.com/spf13/cobra"

	"settlement-times/internal/app"
)

var (
	showRefreshLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current dataset summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ShowOptions{
			RefreshLimit: showRefreshLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showRefreshLimit, "refreshes", 10, "Number of recent refresh attempts to display (0 disables)")
}
