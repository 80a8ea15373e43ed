package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster()
	a, cancelA := b.Subscribe()
	defer cancelA()
	c, cancelC := b.Subscribe()
	defer cancelC()

	b.Publish(Event{Kind: KindSyncCompleted, Synced: 2, Failed: 1})

	for _, ch := range []<-chan Event{a, c} {
		e := <-ch
		assert.Equal(t, KindSyncCompleted, e.Kind)
		assert.Equal(t, 2, e.Synced)
		assert.Equal(t, 1, e.Failed)
		assert.False(t, e.At.IsZero())
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer*3; i++ {
		b.Publish(Event{Kind: KindReportQueued})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestBroadcaster_Cancel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	b.Publish(Event{Kind: KindReportQueued})
}
