package report

import (
	"reportsync/internal/app/client/remote"
	"reportsync/internal/domain/report"
)

type upsertInput struct {
	ID   string `path:"id" format:"uuid" doc:"Client-generated report id, the idempotency key"`
	Body report.Payload
}

type upsertOutput struct {
	Body remote.CreateReportResponse
}

type attachInput struct {
	ID           string `path:"id" format:"uuid" doc:"Report id returned by the upsert"`
	AttachmentID string `path:"attachmentId" format:"uuid" doc:"Client-generated attachment id"`
	Body         remote.UploadAttachmentRequest
}

type attachOutput struct {
	Body remote.UploadAttachmentResponse
}

type listOutput struct {
	Body remote.ListReportsResponse
}
