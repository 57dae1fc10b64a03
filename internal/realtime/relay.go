package realtime

import (
	"context"
	"encoding/json"

	"paydash/internal/domain"
	"paydash/pkg/errors"
	"paydash/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Relay shares payment updates between instances over Redis pub/sub. Each
// instance re-broadcasts messages from other instances to its own hub.
// Delivery is best effort like the hub itself.
type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	logger  logger.Logger
}

type relayMessage struct {
	Origin  string          `json:"origin"`
	Payment *domain.Payment `json:"payment"`
}

func NewRelay(client *redis.Client, channel string, hub *Hub, log logger.Logger) *Relay {
	if log == nil {
		log = logger.NewNop()
	}
	return &Relay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		hub:     hub,
		logger:  log,
	}
}

// Origin identifies this instance in relayed messages.
func (r *Relay) Origin() string { return r.origin }

func (r *Relay) Publish(ctx context.Context, p *domain.Payment) error {
	payload, err := json.Marshal(relayMessage{Origin: r.origin, Payment: p})
	if err != nil {
		return errors.Wrap(err, "failed to encode relay message")
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return errors.Wrap(err, "failed to publish relay message")
	}
	return nil
}

// Run consumes the relay channel until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return errors.Wrap(err, "failed to subscribe to relay channel")
	}
	r.logger.Info("Payment relay subscribed", map[string]interface{}{"channel": r.channel, "origin": r.origin})

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *Relay) handle(payload string) {
	var m relayMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil || m.Payment == nil {
		r.logger.Warn("Discarding malformed relay message", map[string]interface{}{"channel": r.channel})
		return
	}
	if m.Origin == r.origin {
		return
	}
	if _, err := r.hub.Broadcast(Event{Type: EventPaymentUpdate, Data: m.Payment}); err != nil {
		r.logger.Warn("Relay broadcast failed", map[string]interface{}{"payment_id": m.Payment.ID, "error": err.Error()})
	}
}
