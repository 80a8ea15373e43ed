package report

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reportsync/internal/app/client"
	"reportsync/internal/domain/report"
)

var (
	category     string
	incidentDate string
	description  string
	location     string
	geotagging   bool
	anonymous    bool
	contactEmail string
	contactPhone string
	attachPaths  []string
)

var SubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an incident report",
	Long: `Submit an incident report with optional media attachments.

The report is sent right away when the server is reachable. Otherwise it is
saved locally and sent by "reportsync sync" or a running "reportsync watch".

Categories: harassment, censorship, digital_security, rights_violation, other.`,
	Example: `  reportsync report submit --category censorship \
    --description "News site blocked by every local provider" \
    --location "Lagos" --attach screenshot.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFrom(cmd)
		if err != nil {
			return err
		}

		p := report.Payload{
			Category:     report.Category(category),
			IncidentDate: incidentDate,
			Description:  description,
			Location:     location,
			Geotagging:   geotagging,
			Anonymous:    anonymous,
			ContactEmail: contactEmail,
			ContactPhone: contactPhone,
		}

		atts := make([]report.Attachment, 0, len(attachPaths))
		for _, path := range attachPaths {
			a, err := client.AttachmentFromFile(path)
			if err != nil {
				return err
			}
			atts = append(atts, a)
		}

		res, err := app.Submit(cmd.Context(), p, atts)
		if err != nil {
			return fmt.Errorf("submit report: %w", err)
		}

		if wantJSON(cmd) {
			return printJSON(res)
		}
		if res.IsQueued() {
			fmt.Println(color.YellowString("saved offline"), res.Queued)
			fmt.Println("It will be sent when the server is reachable.")
			return nil
		}
		fmt.Println(color.GreenString("submitted"), res.Confirmed)
		return nil
	},
}

func init() {
	SubmitCmd.Flags().StringVarP(&category, "category", "c", "", "incident category")
	SubmitCmd.Flags().StringVar(&incidentDate, "date", time.Now().Format(report.DateLayout), "incident date (YYYY-MM-DD)")
	SubmitCmd.Flags().StringVarP(&description, "description", "d", "", "what happened")
	SubmitCmd.Flags().StringVarP(&location, "location", "l", "", "where it happened")
	SubmitCmd.Flags().BoolVar(&geotagging, "geotag", false, "allow geotagging")
	SubmitCmd.Flags().BoolVar(&anonymous, "anonymous", false, "submit without contact details")
	SubmitCmd.Flags().StringVar(&contactEmail, "email", "", "contact email")
	SubmitCmd.Flags().StringVar(&contactPhone, "phone", "", "contact phone")
	SubmitCmd.Flags().StringArrayVarP(&attachPaths, "attach", "a", nil, "media file to attach (repeatable)")

	_ = SubmitCmd.MarkFlagRequired("category")
	_ = SubmitCmd.MarkFlagRequired("description")
}
