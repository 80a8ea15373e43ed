package report

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reportsync/internal/domain/pending"
)

var showSynced bool

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports kept on this machine",
	Long: `List reports saved locally, oldest first.

Reports marked "needs attention" are no longer retried in the background;
run "reportsync report retry <id>" or "reportsync report discard <id>".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		reports, err := app.ListLocalSummaries(cmd.Context())
		if err != nil {
			return fmt.Errorf("list local reports: %w", err)
		}
		if !showSynced {
			reports = unsynced(reports)
		}

		if wantJSON(cmd) {
			return printJSON(reports)
		}
		return printLocal(os.Stdout, app.Stalled, reports)
	},
}

func unsynced(reports []pending.Summary) []pending.Summary {
	out := reports[:0]
	for _, r := range reports {
		if !r.Status.IsSynced() {
			out = append(out, r)
		}
	}
	return out
}

func printLocal(out io.Writer, stalled func(pending.Summary) bool, reports []pending.Summary) error {
	if len(reports) == 0 {
		fmt.Fprintln(out, "No local reports.")
		return nil
	}

	// STATUS is colored, so it stays last: tabwriter would count its escape
	// bytes as width.
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tATTEMPTS\tMEDIA\tTITLE\tSTATUS")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Attempts,
			r.AttachmentCount,
			truncate(r.Payload.Title(), 40),
			statusLabel(r, stalled(r)),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, r := range reports {
		if r.Status.IsFailed() {
			fmt.Fprintf(out, "\n%s: %s\n", r.ID, color.RedString(r.Status.LastError()))
		}
	}
	return nil
}

func statusLabel(r pending.Summary, stalled bool) string {
	switch {
	case r.Status.IsSynced():
		return color.GreenString("synced")
	case r.Status.IsFailed() && stalled:
		return color.RedString("needs attention")
	case r.Status.IsFailed():
		return color.YellowString("retrying")
	default:
		return color.CyanString("pending")
	}
}

func init() {
	ListCmd.Flags().BoolVar(&showSynced, "all", false, "include reports already delivered")
}
