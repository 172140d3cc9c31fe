package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rate-monitor/internal/app"
	"rate-monitor/internal/storage"
)

var (
	backfillFrom   string
	backfillTo     string
	backfillDryRun bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill historical observations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillFrom == "" || backfillTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse(storage.DateLayout, backfillFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse(storage.DateLayout, backfillTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		if from.After(to) {
			return fmt.Errorf("--from must not be after --to")
		}

		opts := app.BackfillOptions{
			From:   from,
			To:     to,
			DryRun: backfillDryRun,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "Start date (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "End date (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Run without writing to storage")
}
