package report

import (
	"fmt"

	"github.com/spf13/cobra"
)

var DiscardCmd = &cobra.Command{
	Use:   "discard <id>",
	Short: "Drop a locally kept report",
	Long:  `Remove a report from the local queue. A report that was never delivered is lost.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}
		if err := app.Discard(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("discard %s: %w", args[0], err)
		}
		fmt.Println("discarded", args[0])
		return nil
	},
}
