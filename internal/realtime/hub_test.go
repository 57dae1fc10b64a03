package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"paydash/pkg/errors"
	"paydash/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(queue, maxDropped int) *Hub {
	return NewHub(Options{QueueSize: queue, MaxDropped: maxDropped}, logger.NewNop())
}

func nextWithin(t *testing.T, s *Subscriber, d time.Duration) (Event, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.Next(ctx)
}

func TestHub_LateSubscriberMissesEarlierBroadcast(t *testing.T) {
	hub := newTestHub(8, 8)
	early, err := hub.Subscribe()
	require.NoError(t, err)

	n, err := hub.Broadcast(Event{Type: EventPaymentUpdate, Data: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	late, err := hub.Subscribe()
	require.NoError(t, err)

	ev, err := nextWithin(t, early, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "p1", ev.Data)

	// Exactly one event.
	_, err = nextWithin(t, early, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = nextWithin(t, late, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHub_FanOutToAllSubscribers(t *testing.T) {
	hub := newTestHub(8, 8)
	subs := make([]*Subscriber, 5)
	for i := range subs {
		s, err := hub.Subscribe()
		require.NoError(t, err)
		subs[i] = s
	}

	n, err := hub.Broadcast(Event{Type: EventPaymentUpdate, Data: 42})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	for _, s := range subs {
		ev, err := nextWithin(t, s, time.Second)
		require.NoError(t, err)
		assert.Equal(t, EventPaymentUpdate, ev.Type)
		assert.Equal(t, 42, ev.Data)
	}
}

func TestHub_StalledSubscriberDropsOldestOnly(t *testing.T) {
	hub := newTestHub(2, 100)
	stalled, err := hub.Subscribe()
	require.NoError(t, err)
	active, err := hub.Subscribe()
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		_, err := hub.Broadcast(Event{Type: EventPaymentUpdate, Data: i})
		require.NoError(t, err)

		ev, err := nextWithin(t, active, time.Second)
		require.NoError(t, err)
		assert.Equal(t, i, ev.Data)
	}

	assert.Equal(t, 2, stalled.Dropped())
	assert.Equal(t, 0, active.Dropped())

	ev, err := nextWithin(t, stalled, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, ev.Data)
	ev, err = nextWithin(t, stalled, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 4, ev.Data)
}

func TestHub_DisconnectsSubscriberPastCeiling(t *testing.T) {
	hub := newTestHub(1, 2)
	slow, err := hub.Subscribe()
	require.NoError(t, err)
	healthy, err := hub.Subscribe()
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := hub.Broadcast(Event{Type: EventPaymentUpdate, Data: i})
		require.NoError(t, err)
		_, err = nextWithin(t, healthy, time.Second)
		require.NoError(t, err)
	}

	assert.Equal(t, StateDisconnected, slow.State())
	assert.ErrorIs(t, slow.Err(), ErrSlowConsumer)
	assert.Equal(t, StateConnected, healthy.State())
	assert.Equal(t, 1, hub.Len())

	_, err = nextWithin(t, slow, time.Second)
	assert.ErrorIs(t, err, ErrSlowConsumer)
}

func TestHub_ReadingResetsDropCount(t *testing.T) {
	hub := newTestHub(1, 1)
	s, err := hub.Subscribe()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := hub.Broadcast(Event{Data: i})
		require.NoError(t, err)
		_, err = hub.Broadcast(Event{Data: i})
		require.NoError(t, err)
		_, err = nextWithin(t, s, time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, 10, s.Dropped())
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := newTestHub(4, 4)
	s, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Unsubscribe(s)
	hub.Unsubscribe(s)

	n, err := hub.Broadcast(Event{Data: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, hub.Len())

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed")
	}
	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, ErrUnsubscribed)
}

func TestHub_NextUnblocksOnUnsubscribe(t *testing.T) {
	hub := newTestHub(4, 4)
	s, err := hub.Subscribe()
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Next(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	hub.Unsubscribe(s)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrUnsubscribed)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after unsubscribe")
	}
}

func TestHub_Close(t *testing.T) {
	hub := newTestHub(4, 4)
	s, err := hub.Subscribe()
	require.NoError(t, err)

	hub.Close()
	hub.Close()

	assert.Equal(t, StateDisconnected, s.State())
	assert.ErrorIs(t, s.Err(), errors.ErrHubClosed)

	_, err = hub.Subscribe()
	assert.ErrorIs(t, err, errors.ErrHubClosed)
	_, err = hub.Broadcast(Event{Data: 1})
	assert.ErrorIs(t, err, errors.ErrHubClosed)
}

func TestHub_ConcurrentUse(t *testing.T) {
	hub := newTestHub(16, 1000)
	stable, err := hub.Subscribe()
	require.NoError(t, err)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s, err := hub.Subscribe()
				if err != nil {
					return
				}
				_, _ = hub.Broadcast(Event{Data: j})
				hub.Unsubscribe(s)
			}
		}()
	}

	received := make(chan int, 1)
	go func() {
		count := 0
		for {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			_, err := stable.Next(ctx)
			cancel()
			if err != nil {
				received <- count
				return
			}
			count++
		}
	}()

	wg.Wait()
	assert.Equal(t, 1, hub.Len())
	count := <-received
	assert.Positive(t, count+stable.Dropped())
}
