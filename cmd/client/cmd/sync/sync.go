package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reportsync/internal/app/client"
)

var requestOnly bool

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send queued reports now",
	Long: `Send every queued report to the server now, oldest first.

With --request the reports are not sent by this process; a running
"reportsync watch" is asked to sync instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ok := client.FromContext(cmd.Context())
		if !ok {
			return errors.New("app is not initialized")
		}

		if requestOnly {
			if err := app.RequestSync(); err != nil {
				return fmt.Errorf("request sync: %w", err)
			}
			fmt.Println("sync requested")
			return nil
		}

		if !app.IsOnline() {
			fmt.Println(color.YellowString("server unreachable;"), "reports stay queued")
			return nil
		}

		start := time.Now()
		res := app.Sync(cmd.Context())

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Printf("synced %s, failed %s in %v\n",
			color.GreenString("%d", res.Synced),
			color.RedString("%d", res.Failed),
			time.Since(start).Round(time.Millisecond))
		if res.Failed > 0 {
			fmt.Println(`Failed reports stay queued; see "reportsync report list".`)
		}
		return nil
	},
}

func init() {
	SyncCmd.Flags().BoolVar(&requestOnly, "request", false, "ask a running watcher to sync")
}
