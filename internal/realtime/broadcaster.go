package realtime

import (
	"context"
	"sync"
	"time"

	"paydash/internal/domain"
	"paydash/pkg/logger"
)

// Publisher forwards payments to other service instances.
type Publisher interface {
	Publish(ctx context.Context, p *domain.Payment) error
}

// PaymentBroadcaster delivers created payments to the local hub and, when a
// publisher is set, to the other instances.
type PaymentBroadcaster struct {
	hub            *Hub
	publisher      Publisher
	publishTimeout time.Duration
	logger         logger.Logger

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

func NewPaymentBroadcaster(hub *Hub, publisher Publisher, log logger.Logger) *PaymentBroadcaster {
	if log == nil {
		log = logger.NewNop()
	}
	return &PaymentBroadcaster{hub: hub, publisher: publisher, publishTimeout: 2 * time.Second, logger: log}
}

// Broadcast returns only local hub failures. Cross-instance publishing runs
// in the background and its failures are logged.
func (b *PaymentBroadcaster) Broadcast(ctx context.Context, p *domain.Payment) error {
	record := *p
	delivered, err := b.hub.Broadcast(Event{Type: EventPaymentUpdate, Data: &record})

	if b.publisher != nil {
		b.mu.Lock()
		if !b.closed {
			b.pending.Add(1)
			go func() {
				defer b.pending.Done()
				pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.publishTimeout)
				defer cancel()
				if err := b.publisher.Publish(pubCtx, &record); err != nil {
					b.logger.Warn("Payment relay publish failed", map[string]interface{}{
						"payment_id": record.ID,
						"error":      err.Error(),
					})
				}
			}()
		}
		b.mu.Unlock()
	}

	if err != nil {
		return err
	}
	b.logger.Debug("Payment broadcast", map[string]interface{}{"payment_id": record.ID, "delivered": delivered})
	return nil
}

// Close stops relay publishing and waits for in-flight publishes. Call it
// before closing the publisher's connection.
func (b *PaymentBroadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.pending.Wait()
}
