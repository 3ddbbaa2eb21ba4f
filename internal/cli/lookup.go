package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"settlement-times/internal/app"
)

var (
	lookupOrigin      string
	lookupDestination string
	lookupAsset       string
	lookupAmount      float64
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve one settlement estimate from the configured dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if lookupOrigin == "" || lookupDestination == "" {
			return fmt.Errorf("--origin and --destination are required")
		}

		opts := app.LookupOptions{
			Origin:      lookupOrigin,
			Destination: lookupDestination,
			Asset:       lookupAsset,
			AmountUSD:   lookupAmount,
		}

		return getApp().Lookup(cmd.Context(), opts)
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupOrigin, "origin", "", "Origin chain name or numeric chain id")
	lookupCmd.Flags().StringVar(&lookupDestination, "destination", "", "Destination chain name or numeric chain id")
	lookupCmd.Flags().StringVar(&lookupAsset, "asset", "", "Asset symbol or token contract address (optional)")
	lookupCmd.Flags().Float64Var(&lookupAmount, "amount", 0, "Transfer amount in USD")
}
