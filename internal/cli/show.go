package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rate-monitor/internal/app"
)

var (
	showSeries string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent rows of a stored series",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Series: showSeries,
			Limit:  showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showSeries, "series", "", "Series name (e.g. hibor_daily, sofr)")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
}
