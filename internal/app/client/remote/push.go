package remote

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"reportsync/internal/domain/report"
)

const DefaultUploadConcurrency = 3

// Push creates the report under id and uploads every attachment to it. It
// succeeds only when all calls succeed; any partial remote state is
// overwritten by the next Push with the same id.
func Push(ctx context.Context, b Backend, id string, p report.Payload, atts []report.Attachment, concurrency int) (string, error) {
	remoteID, err := b.CreateReport(ctx, id, p)
	if err != nil {
		return "", err
	}
	if len(atts) == 0 {
		return remoteID, nil
	}

	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, a := range atts {
		a := a
		g.Go(func() error {
			if _, err := b.UploadAttachment(gctx, remoteID, a); err != nil {
				return fmt.Errorf("upload %s: %w", a.Filename, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return remoteID, nil
}
