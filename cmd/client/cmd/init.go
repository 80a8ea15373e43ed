package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reportsync/cmd/client/cmd/report"
	"reportsync/cmd/client/cmd/sync"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the local client",
	Long: `init prepares this machine for reporting:
	1. creates the data directory and the local queue
	2. generates the reporter identity sent with every report
	3. writes a default config file if there is none
	4. checks that the reporting server is reachable

Reports can be submitted without a reachable server; they are queued and
sent later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("data dir:   ", cfg.DataDir)
		fmt.Println("reporter id:", app.ReporterID())

		path, err := writeDefaultConfig()
		switch {
		case err == nil:
			fmt.Println("config:     ", path, color.GreenString("(created)"))
		case errors.As(err, new(viper.ConfigFileAlreadyExistsError)):
			fmt.Println("config:     ", path)
		default:
			return fmt.Errorf("write config: %w", err)
		}

		if app.IsOnline() {
			fmt.Println("server:     ", cfg.BaseURL(), color.GreenString("reachable"))
		} else {
			fmt.Println("server:     ", cfg.BaseURL(), color.YellowString("unreachable"))
			fmt.Println()
			fmt.Println("You can still submit reports; they will be sent once the server is reachable.")
		}

		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("1. Submit a report: reportsync report submit --category harassment --description \"...\"")
		fmt.Println("2. Keep syncing in the background: reportsync watch")
		return nil
	},
}

func writeDefaultConfig() (string, error) {
	if cfgFile != "" {
		return cfgFile, viper.ConfigFileAlreadyExistsError(cfgFile)
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "config.yaml")

	v := viper.New()
	v.Set("server_address", cfg.ServerAddress)
	v.Set("enable_tls", cfg.EnableTLS)
	v.Set("backend", cfg.Backend)
	v.Set("data_dir", cfg.DataDir)
	return path, v.SafeWriteConfigAs(path)
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(watchCmd)

	rootCmd.AddCommand(report.ReportCmd)
	report.ReportCmd.AddCommand(report.SubmitCmd)
	report.ReportCmd.AddCommand(report.ListCmd)
	report.ReportCmd.AddCommand(report.RemoteCmd)
	report.ReportCmd.AddCommand(report.DiscardCmd)
	report.ReportCmd.AddCommand(report.RetryCmd)

	rootCmd.AddCommand(sync.SyncCmd)
}
