package report

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"reportsync/internal/app/client"
)

// ReportCmd is the parent of every report command.
var ReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Submit and inspect incident reports",
	Long:  `Submit incident reports and inspect the ones kept locally or stored on the server.`,
}

func appFrom(cmd *cobra.Command) (*client.App, error) {
	app, ok := client.FromContext(cmd.Context())
	if !ok {
		return nil, errors.New("app is not initialized")
	}
	return app, nil
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}
