package cli

import (
	"github.com/spf13/cobra"

	"rate-monitor/internal/app"
)

var (
	reportOut  string
	reportSend bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the HTML rate report",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ReportOptions{
			OutPath: reportOut,
			Send:    reportSend,
		}
		return getApp().Report(cmd.Context(), opts)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Output path (defaults to the reports directory)")
	reportCmd.Flags().BoolVar(&reportSend, "send", false, "Send the report through the alert channel")
}
