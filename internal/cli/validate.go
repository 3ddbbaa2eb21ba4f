package cli

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configured dataset without publishing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Validate(cmd.Context())
	},
}
