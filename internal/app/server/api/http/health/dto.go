package health

const (
	dbUp            = "up"
	dbNotConfigured = "not_configured"
)

type Input struct{}

type Output struct {
	Body Response
}

// Response tells a client whether report intake is available.
type Response struct {
	Status   string `json:"status" example:"OK" doc:"OK while reports are accepted"`
	Database string `json:"database" enum:"up,not_configured" doc:"State of the report database"`
}
