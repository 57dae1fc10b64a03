package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"paydash/internal/domain"
	"paydash/pkg/errors"
	"paydash/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func samplePayment() *domain.Payment {
	return &domain.Payment{
		ID:        uuid.New(),
		Amount:    decimal.NewFromInt(100),
		Receiver:  "Acme",
		Status:    domain.PaymentStatusSuccess,
		Method:    domain.PaymentMethodPaypal,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPaymentBroadcaster_DeliversToHub(t *testing.T) {
	hub := newTestHub(4, 4)
	sub, err := hub.Subscribe()
	require.NoError(t, err)

	b := NewPaymentBroadcaster(hub, nil, logger.NewNop())
	p := samplePayment()
	require.NoError(t, b.Broadcast(context.Background(), p))

	ev, err := nextWithin(t, sub, time.Second)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentUpdate, ev.Type)
	got, ok := ev.Data.(*domain.Payment)
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)
}

func TestPaymentBroadcaster_PublishesInBackground(t *testing.T) {
	hub := newTestHub(4, 4)
	pub := new(MockPublisher)
	published := make(chan struct{})
	p := samplePayment()
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(got *domain.Payment) bool { return got.ID == p.ID })).
		Run(func(mock.Arguments) { close(published) }).
		Return(fmt.Errorf("redis down"))

	b := NewPaymentBroadcaster(hub, pub, logger.NewNop())
	require.NoError(t, b.Broadcast(context.Background(), p))

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publisher not called")
	}
}

func TestPaymentBroadcaster_CloseWaitsForPublishes(t *testing.T) {
	hub := newTestHub(4, 4)
	pub := new(MockPublisher)
	release := make(chan struct{})
	var finished atomic.Bool
	pub.On("Publish", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			<-release
			finished.Store(true)
		}).
		Return(nil).Once()

	b := NewPaymentBroadcaster(hub, pub, logger.NewNop())
	require.NoError(t, b.Broadcast(context.Background(), samplePayment()))

	closed := make(chan struct{})
	go func() {
		b.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned before the publish finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.True(t, finished.Load())

	// Publishing stops after Close; the local hub still delivers.
	require.NoError(t, b.Broadcast(context.Background(), samplePayment()))
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestPaymentBroadcaster_ClosedHub(t *testing.T) {
	hub := newTestHub(4, 4)
	hub.Close()

	b := NewPaymentBroadcaster(hub, nil, logger.NewNop())
	err := b.Broadcast(context.Background(), samplePayment())
	assert.ErrorIs(t, err, errors.ErrHubClosed)
}

func TestRelay_HandleSkipsOwnMessages(t *testing.T) {
	hub := newTestHub(4, 4)
	sub, err := hub.Subscribe()
	require.NoError(t, err)
	relay := NewRelay(nil, "payments:updates", hub, logger.NewNop())

	own, _ := json.Marshal(relayMessage{Origin: relay.Origin(), Payment: samplePayment()})
	relay.handle(string(own))
	relay.handle("not json")

	remote := samplePayment()
	other, _ := json.Marshal(relayMessage{Origin: uuid.NewString(), Payment: remote})
	relay.handle(string(other))

	ev, err := nextWithin(t, sub, time.Second)
	require.NoError(t, err)
	got, ok := ev.Data.(*domain.Payment)
	require.True(t, ok)
	assert.Equal(t, remote.ID, got.ID)

	_, err = nextWithin(t, sub, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
