package report

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) upsertOp() huma.Operation {
	return huma.Operation{
		OperationID: "upsert-report",
		Method:      http.MethodPut,
		Path:        "/api/v1/reports/{id}",
		Summary:     "Create a report idempotently",
		Description: "Creates the report with the given client id, or returns the existing one.",
		Tags:        []string{"reports"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) attachOp() huma.Operation {
	return huma.Operation{
		OperationID:  "upsert-attachment",
		Method:       http.MethodPut,
		Path:         "/api/v1/reports/{id}/attachments/{attachmentId}",
		Summary:      "Upload a report attachment",
		Description:  "Stores the attachment; repeating the upload overwrites it.",
		Tags:         []string{"reports"},
		MaxBodyBytes: maxAttachmentBody,
		Middlewares:  h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "list-reports",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports",
		Summary:     "List the caller's reports",
		Tags:        []string{"reports"},
		Middlewares: h.middleware,
	}
}
