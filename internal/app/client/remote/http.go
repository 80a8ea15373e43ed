package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/exp/slog"

	"reportsync/internal/domain/report"
)

type HTTPConfig struct {
	BaseURL    string
	ReporterID string
	Timeout    time.Duration
}

type HTTPBackend struct {
	client     *http.Client
	log        *slog.Logger
	baseURL    string
	reporterID string
	userAgent  string
}

func NewHTTPBackend(cfg HTTPConfig, log *slog.Logger) *HTTPBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPBackend{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log:        log.With("component", "http_backend"),
		baseURL:    cfg.BaseURL,
		reporterID: cfg.ReporterID,
		userAgent:  "reportsync-client/1.0",
	}
}

func (h *HTTPBackend) Health(ctx context.Context) error {
	return h.do(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}

func (h *HTTPBackend) CreateReport(ctx context.Context, clientID string, p report.Payload) (string, error) {
	var resp CreateReportResponse
	if err := h.do(ctx, http.MethodPut, "/api/v1/reports/"+url.PathEscape(clientID), p, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", report.Backend("create report: empty id in response", nil)
	}
	return resp.ID, nil
}

func (h *HTTPBackend) UploadAttachment(ctx context.Context, remoteID string, a report.Attachment) (string, error) {
	a.Prepare()
	req := UploadAttachmentRequest{
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Data:        a.Data,
		Checksum:    a.Checksum,
	}
	path := "/api/v1/reports/" + url.PathEscape(remoteID) + "/attachments/" + url.PathEscape(a.ID)

	var resp UploadAttachmentResponse
	if err := h.do(ctx, http.MethodPut, path, req, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

func (h *HTTPBackend) ListReports(ctx context.Context) ([]report.Report, error) {
	var resp ListReportsResponse
	if err := h.do(ctx, http.MethodGet, "/api/v1/reports", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}

func (h *HTTPBackend) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.reporterID != "" {
		req.Header.Set(ReporterHeader, h.reporterID)
	}

	h.log.Debug("sending request", "method", method, "url", req.URL.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return report.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return report.Network(fmt.Errorf("read response: %w", err))
	}

	h.log.Debug("received response", "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode >= 400 {
		return classify(resp.StatusCode, data)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return report.Backend("decode response", err)
		}
	}
	return nil
}

// problem is the RFC 7807 body produced by the server.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message  string `json:"message"`
		Location string `json:"location"`
	} `json:"errors"`
}

func (p problem) message(status int) string {
	msg := p.Detail
	if msg == "" {
		msg = p.Title
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	for _, e := range p.Errors {
		if e.Location != "" {
			msg += "; " + e.Location + ": " + e.Message
		} else {
			msg += "; " + e.Message
		}
	}
	return msg
}

func classify(status int, body []byte) error {
	var p problem
	_ = json.Unmarshal(body, &p)
	msg := p.message(status)

	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &report.DomainError{Kind: report.ErrValidation, Message: msg}
	default:
		return report.Backend(fmt.Sprintf("server returned %d: %s", status, msg), nil)
	}
}
