package remote

import (
	"context"

	"reportsync/internal/domain/report"
)

// Backend is the remote report store. CreateReport is an upsert keyed by the
// client id and UploadAttachment an upsert keyed by attachment id, so both
// are safe to repeat.
type Backend interface {
	CreateReport(ctx context.Context, clientID string, p report.Payload) (string, error)
	UploadAttachment(ctx context.Context, remoteID string, a report.Attachment) (string, error)
	ListReports(ctx context.Context) ([]report.Report, error)
	Health(ctx context.Context) error
}

// Wire types shared with the server.

type CreateReportResponse struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Created  bool   `json:"created"`
}

type UploadAttachmentRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	Checksum    string `json:"checksum"`
}

type UploadAttachmentResponse struct {
	Path string `json:"path"`
}

type ListReportsResponse struct {
	Reports []report.Report `json:"reports"`
	Total   int             `json:"total"`
}

const ReporterHeader = "X-Reporter-Id"
