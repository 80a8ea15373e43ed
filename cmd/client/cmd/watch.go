package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reportsync/internal/app/client/notify"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync queued reports in the background",
	Long: `watch stays in the foreground and sends queued reports:
at start when the server is reachable, every time the server becomes
reachable again, and whenever "reportsync sync --request" is run.

Stop it with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		events, cancel := app.Events()
		defer cancel()

		go printEvents(events)

		fmt.Println("watching for connectivity; press Ctrl+C to stop")
		return app.Watch(cmd.Context())
	},
}

func printEvents(events <-chan notify.Event) {
	enc := json.NewEncoder(os.Stdout)
	for e := range events {
		if jsonOutput {
			_ = enc.Encode(e)
			continue
		}
		at := e.At.Format("15:04:05")
		switch e.Kind {
		case notify.KindSyncCompleted:
			line := fmt.Sprintf("synced %d, failed %d", e.Synced, e.Failed)
			if e.Stalled > 0 {
				line += fmt.Sprintf(", %d need attention (see: reportsync report list)", e.Stalled)
			}
			if e.Failed > 0 {
				line = color.YellowString(line)
			} else {
				line = color.GreenString(line)
			}
			fmt.Println(at, line)
		case notify.KindReportQueued:
			fmt.Println(at, "queued", e.ReportID)
		}
	}
}
