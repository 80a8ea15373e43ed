package notify

import (
	"sync"
	"time"
)

type Kind string

const (
	KindSyncCompleted Kind = "sync_completed"
	KindReportQueued  Kind = "report_queued"
)

type Event struct {
	Kind     Kind      `json:"kind"`
	At       time.Time `json:"at"`
	ReportID string    `json:"report_id,omitempty"`
	Synced   int       `json:"synced,omitempty"`
	Failed   int       `json:"failed,omitempty"`
	Stalled  int       `json:"stalled,omitempty"`
}

type Publisher interface {
	Publish(Event)
}

const subscriberBuffer = 16

// Broadcaster fans events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Broadcaster) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
