package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily monitoring service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Collect(cmd.Context())
	},
}
