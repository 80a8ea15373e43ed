package report

import (
	"context"
)

type Repository interface {
	// Upsert inserts the report or, when one with the same ClientID exists for
	// the same reporter, returns it untouched. created is false in that case.
	// A ClientID owned by another reporter yields ErrConflict.
	Upsert(ctx context.Context, r *Report) (id string, created bool, err error)
	Get(ctx context.Context, id string) (*Report, error)
	ListByReporter(ctx context.Context, reporterID string) ([]Report, error)
	UpsertMedia(ctx context.Context, m *Media) error
}

// MediaStore holds attachment blobs.
type MediaStore interface {
	Put(ctx context.Context, path string, data []byte) error
}
