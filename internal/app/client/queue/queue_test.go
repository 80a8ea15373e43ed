package queue

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"reportsync/internal/domain/pending"
	"reportsync/internal/domain/report"
)

func testPayload(desc string) report.Payload {
	return report.Payload{
		Category:     report.CategoryDigitalSecurity,
		IncidentDate: "2024-05-20",
		Description:  desc,
		Location:     "Nairobi",
		Geotagging:   true,
	}
}

func openSQLite(t *testing.T) Store {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "queue.db"), Namespace)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": openSQLite(t),
	}
}

// clock returns increasing timestamps one second apart.
func clock() func() time.Time {
	base := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func indexOf(t *testing.T, s Store) []string {
	t.Helper()
	var ix pendingIndex
	require.NoError(t, s.View(context.Background(), func(tx Tx) error {
		var err error
		ix, err = readIndex(tx)
		return err
	}))
	out := append([]string(nil), ix...)
	sort.Strings(out)
	return out
}

func TestQueue_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			q, err := Open(ctx, store, slog.Default())
			require.NoError(t, err)

			att := report.NewAttachment("evidence.png", []byte{0x89, 0x50, 0x4e, 0x47})
			p := testPayload("account suspended without notice")

			id, err := q.Enqueue(ctx, p, []report.Attachment{att})
			require.NoError(t, err)

			got, err := q.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, got.ID)
			assert.Equal(t, p, got.Payload)
			require.Len(t, got.Attachments, 1)
			assert.Equal(t, att, got.Attachments[0])
			assert.True(t, got.Status.IsPending())
			assert.Zero(t, got.Attempts)
			assert.Nil(t, got.LastAttemptAt)
		})
	}
}

func TestQueue_ListPendingOldestFirst(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			q := New(store, slog.Default())
			q.now = clock()

			first, err := q.Enqueue(ctx, testPayload("first report text"), nil)
			require.NoError(t, err)
			second, err := q.Enqueue(ctx, testPayload("second report text"), nil)
			require.NoError(t, err)
			third, err := q.Enqueue(ctx, testPayload("third report text"), nil)
			require.NoError(t, err)

			require.NoError(t, q.UpdateStatus(ctx, second, pending.Synced()))

			list, err := q.ListPending(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, first, list[0].ID)
			assert.Equal(t, third, list[1].ID)

			all, err := q.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{first, second, third}, []string{all[0].ID, all[1].ID, all[2].ID})
		})
	}
}

func TestQueue_UpdateStatus(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			q := New(store, slog.Default())

			id, err := q.Enqueue(ctx, testPayload("status transitions"), nil)
			require.NoError(t, err)

			require.NoError(t, q.UpdateStatus(ctx, id, pending.Failed("timeout", true)))
			assert.Equal(t, []string{id}, indexOf(t, store))

			require.NoError(t, q.UpdateStatus(ctx, id, pending.Synced()))
			assert.Empty(t, indexOf(t, store))

			err = q.UpdateStatus(ctx, id, pending.Failed("late", true))
			assert.ErrorIs(t, err, pending.ErrInvalidTransition)

			got, err := q.Get(ctx, id)
			require.NoError(t, err)
			assert.True(t, got.Status.IsSynced())

			err = q.UpdateStatus(ctx, "missing", pending.Synced())
			assert.ErrorIs(t, err, report.ErrNotFound)
		})
	}
}

func TestQueue_RecordAttempt(t *testing.T) {
	ctx := context.Background()
	q := New(NewMemoryStore(), slog.Default())
	id, err := q.Enqueue(ctx, testPayload("attempt bookkeeping"), nil)
	require.NoError(t, err)

	at := time.Date(2024, 5, 21, 8, 0, 0, 0, time.UTC)
	r, err := q.RecordAttempt(ctx, id, Attempt{Status: pending.Failed("503", true), At: at})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Attempts)
	assert.Equal(t, "503", r.Status.LastError())
	require.NotNil(t, r.LastAttemptAt)
	assert.True(t, at.Equal(*r.LastAttemptAt))

	r, err = q.RecordAttempt(ctx, id, Attempt{Status: pending.Synced(), RemoteID: "remote-1", At: at})
	require.NoError(t, err)
	assert.True(t, r.Status.IsSynced())
	assert.Equal(t, "remote-1", r.RemoteID)
	assert.Equal(t, 1, r.Attempts)

	_, err = q.RecordAttempt(ctx, id, Attempt{Status: pending.Failed("late", true), At: at})
	assert.ErrorIs(t, err, pending.ErrInvalidTransition)

	got, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Status.IsSynced())
	assert.Equal(t, 1, got.Attempts)
}

func TestQueue_EnqueueWithIDKeepsExisting(t *testing.T) {
	ctx := context.Background()
	q := New(NewMemoryStore(), slog.Default())

	id := "8d7b1c1e-1c2f-4a66-b3c1-3c9b1e5e2f10"
	_, err := q.EnqueueWithID(ctx, id, testPayload("original description"), nil)
	require.NoError(t, err)
	_, err = q.EnqueueWithID(ctx, id, testPayload("replacement description"), nil)
	require.NoError(t, err)

	got, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original description", got.Payload.Description)

	all, err := q.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestQueue_Remove(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			q := New(store, slog.Default())

			id, err := q.Enqueue(ctx, testPayload("to be discarded"), nil)
			require.NoError(t, err)

			require.NoError(t, q.Remove(ctx, id))
			_, err = q.Get(ctx, id)
			assert.ErrorIs(t, err, report.ErrNotFound)
			assert.Empty(t, indexOf(t, store))

			assert.NoError(t, q.Remove(ctx, id))
		})
	}
}

func TestQueue_IndexMatchesNonSyncedRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	q := New(store, slog.Default())

	var ids []string
	for i := 0; i < 6; i++ {
		id, err := q.Enqueue(ctx, testPayload("index consistency"), nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, q.UpdateStatus(ctx, ids[0], pending.Synced()))
	require.NoError(t, q.UpdateStatus(ctx, ids[1], pending.Failed("offline", true)))
	require.NoError(t, q.UpdateStatus(ctx, ids[2], pending.Failed("422", false)))
	require.NoError(t, q.UpdateStatus(ctx, ids[2], pending.Synced()))
	require.NoError(t, q.Remove(ctx, ids[3]))

	all, err := q.ListAll(ctx)
	require.NoError(t, err)

	var want []string
	for _, r := range all {
		if !r.Status.IsSynced() {
			want = append(want, r.ID)
		}
	}
	sort.Strings(want)
	assert.Equal(t, want, indexOf(t, store))
}

// failingStore fails the Nth Put inside every Update.
type failingStore struct {
	Store
	failOn int
}

type failingTx struct {
	Tx
	puts   int
	failOn int
}

func (t *failingTx) Put(key string, value []byte) error {
	t.puts++
	if t.puts == t.failOn {
		return report.Storage("put "+key, errors.New("disk full"))
	}
	return t.Tx.Put(key, value)
}

func (s *failingStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.Store.Update(ctx, func(tx Tx) error {
		return fn(&failingTx{Tx: tx, failOn: s.failOn})
	})
}

func TestQueue_EnqueueIsAtomic(t *testing.T) {
	for name, inner := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			// The record write succeeds, the index write fails.
			q := New(&failingStore{Store: inner, failOn: 2}, slog.Default())

			_, err := q.Enqueue(ctx, testPayload("never half written"), nil)
			require.ErrorIs(t, err, report.ErrStorage)

			healthy := New(inner, slog.Default())
			all, err := healthy.ListAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Empty(t, indexOf(t, inner))
		})
	}
}

func TestQueue_SyncedUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	healthy := New(inner, slog.Default())
	id, err := healthy.Enqueue(ctx, testPayload("synced but index write fails"), nil)
	require.NoError(t, err)

	broken := New(&failingStore{Store: inner, failOn: 2}, slog.Default())
	err = broken.UpdateStatus(ctx, id, pending.Synced())
	require.ErrorIs(t, err, report.ErrStorage)

	got, err := healthy.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Status.IsPending())
	assert.Equal(t, []string{id}, indexOf(t, inner))
}

func TestQueue_RecoverRebuildsIndex(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	q := New(store, slog.Default())

	a, err := q.Enqueue(ctx, testPayload("kept pending record"), nil)
	require.NoError(t, err)
	b, err := q.Enqueue(ctx, testPayload("synced record entry"), nil)
	require.NoError(t, err)
	require.NoError(t, q.UpdateStatus(ctx, b, pending.Synced()))

	// Corrupt the index: drop a, add b and a dangling id.
	require.NoError(t, store.Update(ctx, func(tx Tx) error {
		return writeIndex(tx, pendingIndex{b, "ghost"})
	}))

	changed, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, changed)
	assert.Equal(t, []string{a}, indexOf(t, store))

	changed, err = q.Recover(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")

	s, err := OpenSQLite(path, Namespace)
	require.NoError(t, err)
	q := New(s, slog.Default())
	id, err := q.Enqueue(ctx, testPayload("survives a restart"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, Namespace)
	require.NoError(t, err)
	defer s.Close()

	q, err = Open(ctx, s, slog.Default())
	require.NoError(t, err)
	list, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
}

func TestSQLiteStore_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")

	a, err := OpenSQLite(path, "a")
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenSQLite(path, "b")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Update(ctx, func(tx Tx) error { return tx.Put("k", []byte("v")) }))
	err = b.View(ctx, func(tx Tx) error {
		_, err := tx.Get("k")
		return err
	})
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestQueue_AttachmentBytesKeptApart(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			q, err := Open(ctx, store, slog.Default())
			require.NoError(t, err)

			att := report.NewAttachment("recording.mp4", []byte("large video bytes"))
			id, err := q.Enqueue(ctx, testPayload("video of the raid attached"), []report.Attachment{att})
			require.NoError(t, err)

			require.NoError(t, store.View(ctx, func(tx Tx) error {
				data, err := tx.Get(recordKey(id))
				require.NoError(t, err)
				var stored pending.Report
				require.NoError(t, json.Unmarshal(data, &stored))
				require.Len(t, stored.Attachments, 1)
				assert.Nil(t, stored.Attachments[0].Data)
				assert.Equal(t, att.Checksum, stored.Attachments[0].Checksum)
				return nil
			}))

			summaries, err := q.ListSummaries(ctx)
			require.NoError(t, err)
			require.Len(t, summaries, 1)
			assert.Equal(t, id, summaries[0].ID)
			assert.Equal(t, 1, summaries[0].AttachmentCount)

			// Status updates rewrite the record but not the media.
			require.NoError(t, q.UpdateStatus(ctx, id, pending.Failed("timeout", true)))
			got, err := q.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, att, got.Attachments[0])

			require.NoError(t, q.Remove(ctx, id))
			require.NoError(t, store.View(ctx, func(tx Tx) error {
				keys, err := tx.Keys(mediaPrefix)
				require.NoError(t, err)
				assert.Empty(t, keys)
				return nil
			}))
		})
	}
}

func TestQueue_CancelledContextIsStorageError(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			q := New(store, slog.Default())
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := q.Enqueue(ctx, testPayload("written after cancel"), nil)
			assert.ErrorIs(t, err, report.ErrStorage)

			_, err = q.ListPending(ctx)
			assert.ErrorIs(t, err, report.ErrStorage)
		})
	}
}
