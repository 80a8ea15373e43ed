package report

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var RemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "List your reports stored on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		reports, err := app.ListRemoteReports(cmd.Context())
		if err != nil {
			return fmt.Errorf("list remote reports: %w", err)
		}

		if wantJSON(cmd) {
			return printJSON(reports)
		}
		if len(reports) == 0 {
			fmt.Println("No reports on the server.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tCREATED\tSTATUS\tPROGRESS\tMEDIA\tTITLE\t\n")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%d\t%s\t\n",
				r.ID,
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				r.Status,
				r.Progress,
				r.MediaCount,
				truncate(r.Title, 40),
			)
		}
		return w.Flush()
	},
}
