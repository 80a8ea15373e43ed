package report

import (
	"time"
)

const (
	StatusReceived = "pending"

	MediaBucket = "report-media"
)

// Report is the backend's view of a submitted incident report.
type Report struct {
	ID         string    `json:"id"`
	ClientID   string    `json:"client_id"`
	ReporterID string    `json:"-"`
	Title      string    `json:"title"`
	Payload    Payload   `json:"payload"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	MediaCount int       `json:"media_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Media is one stored attachment of a report.
type Media struct {
	ID           string    `json:"id"`
	ReportID     string    `json:"report_id"`
	AttachmentID string    `json:"attachment_id"`
	Path         string    `json:"path"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"`
	CreatedAt    time.Time `json:"created_at"`
}

// MediaPath is the storage path of an attachment: reports/<reportID>/<attachmentID><ext>.
func MediaPath(reportID string, a Attachment) string {
	return "reports/" + reportID + "/" + a.ID + a.Ext()
}
