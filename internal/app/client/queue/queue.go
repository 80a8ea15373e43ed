package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"reportsync/internal/domain/pending"
	"reportsync/internal/domain/report"
)

const (
	Namespace = "reports"

	indexKey     = "pendingIndex"
	recordPrefix = "report:"
	mediaPrefix  = "media:"
)

func recordKey(id string) string {
	return recordPrefix + id
}

// Attachment bytes live under their own keys so listings never decode them.
func mediaKey(reportID, attachmentID string) string {
	return mediaPrefix + reportID + ":" + attachmentID
}

// Queue is the local durable queue of reports awaiting sync. A record and
// its pending index entry are always written in the same transaction.
type Queue struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func New(store Store, log *slog.Logger) *Queue {
	return &Queue{
		store: store,
		log:   log.With("component", "queue"),
		now:   time.Now,
	}
}

// Open builds a queue and reconciles the pending index with stored records.
func Open(ctx context.Context, store Store, log *slog.Logger) (*Queue, error) {
	q := New(store, log)
	if _, err := q.Recover(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Queue) Enqueue(ctx context.Context, p report.Payload, atts []report.Attachment) (string, error) {
	return q.EnqueueWithID(ctx, uuid.NewString(), p, atts)
}

// EnqueueWithID stores a new pending report under id. If a record with that
// id already exists it is left as is.
func (q *Queue) EnqueueWithID(ctx context.Context, id string, p report.Payload, atts []report.Attachment) (string, error) {
	r := pending.Report{
		ID:          id,
		Payload:     p,
		Attachments: atts,
		Status:      pending.Pending(),
		CreatedAt:   q.now().UTC(),
	}

	err := q.store.Update(ctx, func(tx Tx) error {
		if _, err := tx.Get(recordKey(id)); err == nil {
			return nil
		} else if !errors.Is(err, ErrKeyNotFound) {
			return err
		}

		if err := putRecord(tx, &r); err != nil {
			return err
		}
		index, err := readIndex(tx)
		if err != nil {
			return err
		}
		return writeIndex(tx, index.add(id))
	})
	if err != nil {
		q.log.Error("failed to enqueue report", "id", id, "error", err)
		return "", err
	}

	q.log.Info("report queued", "id", id, "attachments", len(atts))
	return id, nil
}

// Get returns report.ErrNotFound when no record exists.
func (q *Queue) Get(ctx context.Context, id string) (*pending.Report, error) {
	var r *pending.Report
	err := q.store.View(ctx, func(tx Tx) error {
		var err error
		r, err = getRecord(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListPending returns every record named by the pending index, oldest first.
func (q *Queue) ListPending(ctx context.Context) ([]pending.Report, error) {
	var out []pending.Report
	err := q.store.View(ctx, func(tx Tx) error {
		index, err := readIndex(tx)
		if err != nil {
			return err
		}
		for _, id := range index {
			r, err := getRecord(tx, id)
			if errors.Is(err, report.ErrNotFound) {
				q.log.Warn("pending index names a missing record", "id", id)
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(out)
	return out, nil
}

// ListAll returns every stored record regardless of status, oldest first.
func (q *Queue) ListAll(ctx context.Context) ([]pending.Report, error) {
	var out []pending.Report
	err := q.store.View(ctx, func(tx Tx) error {
		var err error
		if out, err = allRecords(tx); err != nil {
			return err
		}
		for i := range out {
			if err := loadMedia(tx, &out[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(out)
	return out, nil
}

// ListSummaries returns every stored record without attachment bytes,
// oldest first.
func (q *Queue) ListSummaries(ctx context.Context) ([]pending.Summary, error) {
	var records []pending.Report
	err := q.store.View(ctx, func(tx Tx) error {
		var err error
		records, err = allRecords(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(records)

	out := make([]pending.Summary, 0, len(records))
	for _, r := range records {
		out = append(out, r.Summary())
	}
	return out, nil
}

// UpdateStatus moves a record to status. Moving to Synced also drops the id
// from the pending index.
func (q *Queue) UpdateStatus(ctx context.Context, id string, status pending.Status) error {
	_, err := q.mutate(ctx, id, func(r *pending.Report) error {
		return r.Transition(status)
	})
	return err
}

// Attempt is the outcome of one sync attempt.
type Attempt struct {
	Status   pending.Status
	RemoteID string
	At       time.Time
}

// RecordAttempt stores the outcome of a sync attempt: status, attempt
// bookkeeping and remote id in one commit. A failed attempt against a record
// that is already Synced returns pending.ErrInvalidTransition and changes
// nothing. The returned record carries no attachment bytes.
func (q *Queue) RecordAttempt(ctx context.Context, id string, a Attempt) (*pending.Report, error) {
	return q.mutate(ctx, id, func(r *pending.Report) error {
		if r.Status.IsSynced() && a.Status.IsSynced() {
			return nil
		}
		if err := r.Transition(a.Status); err != nil {
			return err
		}
		at := a.At.UTC()
		r.LastAttemptAt = &at
		if a.Status.IsFailed() {
			r.Attempts++
		}
		if a.RemoteID != "" {
			r.RemoteID = a.RemoteID
		}
		return nil
	})
}

func (q *Queue) mutate(ctx context.Context, id string, fn func(*pending.Report) error) (*pending.Report, error) {
	var out *pending.Report
	err := q.store.Update(ctx, func(tx Tx) error {
		r, err := getMeta(tx, id)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		if err := putRecord(tx, r); err != nil {
			return err
		}

		index, err := readIndex(tx)
		if err != nil {
			return err
		}
		next := index.add(id)
		if r.Status.IsSynced() {
			next = index.remove(id)
		}
		if !next.equal(index) {
			if err := writeIndex(tx, next); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes the record and its index entry. Removing an absent id is
// not an error.
func (q *Queue) Remove(ctx context.Context, id string) error {
	err := q.store.Update(ctx, func(tx Tx) error {
		if err := tx.Delete(recordKey(id)); err != nil {
			return err
		}
		media, err := tx.Keys(mediaPrefix + id + ":")
		if err != nil {
			return err
		}
		for _, k := range media {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		index, err := readIndex(tx)
		if err != nil {
			return err
		}
		next := index.remove(id)
		if next.equal(index) {
			return nil
		}
		return writeIndex(tx, next)
	})
	if err != nil {
		q.log.Error("failed to remove report", "id", id, "error", err)
		return err
	}
	q.log.Info("report removed", "id", id)
	return nil
}

// Recover rebuilds the pending index from stored records when the two
// disagree and returns the number of ids added or dropped.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	var changed int
	err := q.store.Update(ctx, func(tx Tx) error {
		records, err := allRecords(tx)
		if err != nil {
			return err
		}
		index, err := readIndex(tx)
		if err != nil {
			return err
		}

		sortOldestFirst(records)
		want := make(pendingIndex, 0, len(records))
		for _, r := range records {
			if !r.Status.IsSynced() {
				want = want.add(r.ID)
			}
		}

		changed = want.diff(index)
		if changed == 0 {
			return nil
		}
		return writeIndex(tx, want)
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		q.log.Warn("pending index rebuilt", "changed", changed)
	}
	return changed, nil
}

// getRecord returns the full record, attachment bytes included.
func getRecord(tx Tx, id string) (*pending.Report, error) {
	r, err := getMeta(tx, id)
	if err != nil {
		return nil, err
	}
	if err := loadMedia(tx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// getMeta returns the record with attachment metadata but no bytes.
func getMeta(tx Tx, id string) (*pending.Report, error) {
	data, err := tx.Get(recordKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, report.NotFound(id)
	}
	if err != nil {
		return nil, err
	}
	var r pending.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, report.Storage("decode "+id, err)
	}
	return &r, nil
}

func loadMedia(tx Tx, r *pending.Report) error {
	for i := range r.Attachments {
		a := &r.Attachments[i]
		if a.Data != nil {
			continue
		}
		data, err := tx.Get(mediaKey(r.ID, a.ID))
		if errors.Is(err, ErrKeyNotFound) {
			return report.Storage("load attachment "+a.ID, err)
		}
		if err != nil {
			return err
		}
		a.Data = data
	}
	return nil
}

// putRecord writes the record and the bytes of every attachment that
// carries them. Attachments without bytes keep their stored media.
func putRecord(tx Tx, r *pending.Report) error {
	stored := *r
	stored.Attachments = make([]report.Attachment, len(r.Attachments))
	for i, a := range r.Attachments {
		if a.Data != nil {
			if err := tx.Put(mediaKey(r.ID, a.ID), a.Data); err != nil {
				return err
			}
		}
		a.Data = nil
		stored.Attachments[i] = a
	}

	data, err := json.Marshal(&stored)
	if err != nil {
		return report.Storage("encode "+r.ID, err)
	}
	return tx.Put(recordKey(r.ID), data)
}

func allRecords(tx Tx) ([]pending.Report, error) {
	keys, err := tx.Keys(recordPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]pending.Report, 0, len(keys))
	for _, k := range keys {
		r, err := getMeta(tx, k[len(recordPrefix):])
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func sortOldestFirst(rs []pending.Report) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}
