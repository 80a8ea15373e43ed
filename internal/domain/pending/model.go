package pending

import (
	"time"

	"reportsync/internal/domain/report"
)

// Report is an incident report held in the local durable queue until the
// backend has acknowledged it.
type Report struct {
	ID            string              `json:"id"`
	Payload       report.Payload      `json:"payload"`
	Attachments   []report.Attachment `json:"attachments"`
	Status        Status              `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	Attempts      int                 `json:"attempts"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
	RemoteID      string              `json:"remote_id,omitempty"`
}

// Transition applies next to the report, enforcing CanTransition.
func (r *Report) Transition(next Status) error {
	if !r.Status.CanTransition(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	return nil
}

// Summary is a report without attachment bytes, for listings.
type Summary struct {
	ID              string         `json:"id"`
	Payload         report.Payload `json:"payload"`
	Status          Status         `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	Attempts        int            `json:"attempts"`
	LastAttemptAt   *time.Time     `json:"last_attempt_at,omitempty"`
	RemoteID        string         `json:"remote_id,omitempty"`
	AttachmentCount int            `json:"attachment_count"`
}

func (r Report) Summary() Summary {
	return Summary{
		ID:              r.ID,
		Payload:         r.Payload,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		Attempts:        r.Attempts,
		LastAttemptAt:   r.LastAttemptAt,
		RemoteID:        r.RemoteID,
		AttachmentCount: len(r.Attachments),
	}
}
