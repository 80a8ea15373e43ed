package report

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	engine "reportsync/internal/app/client/sync"
	"reportsync/internal/domain/report"
)

var RetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Send one queued report now",
	Long:  `Send one queued report now, ignoring its backoff and attempt count.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		outcome, err := app.Retry(cmd.Context(), args[0])
		if err != nil {
			if !errors.Is(err, report.ErrNotFound) {
				fmt.Println(color.RedString("failed"), args[0])
			}
			return err
		}

		fmt.Println(outcomeLabel(outcome), args[0])
		return nil
	},
}

func outcomeLabel(o engine.Outcome) string {
	switch o {
	case engine.OutcomeSkipped:
		return "already delivered"
	case engine.OutcomeDiscarded:
		return color.YellowString("discarded before delivery")
	default:
		return color.GreenString("delivered")
	}
}
