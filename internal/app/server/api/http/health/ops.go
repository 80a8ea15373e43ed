package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "get-intake-health",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Report intake readiness",
		Description: "Answers 200 while reports can be accepted and 503 when the report database is unreachable. " +
			"Clients poll this to decide whether to send reports directly or keep them queued.",
		Tags:        []string{"health"},
		Middlewares: h.middleware,
	}
}
