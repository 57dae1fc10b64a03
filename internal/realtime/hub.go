// Package realtime implements the live-update hub that fans newly created
// payments out to connected subscribers.
package realtime

import (
	"context"
	stderrors "errors"
	"sync"

	"paydash/pkg/errors"
	"paydash/pkg/logger"

	"github.com/google/uuid"
)

// EventPaymentUpdate carries a newly created payment.
const EventPaymentUpdate = "paymentUpdate"

var (
	ErrUnsubscribed = stderrors.New("subscriber unsubscribed")
	ErrSlowConsumer = stderrors.New("subscriber disconnected: backlog exceeded")
)

// Event is one push message.
type Event struct {
	Type string      `json:"event"`
	Data interface{} `json:"data"`
}

// State of a subscriber. Disconnected is terminal.
type State int

const (
	StateConnected State = iota
	StateDisconnected
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

type Options struct {
	// QueueSize bounds each subscriber's pending events; on overflow the
	// oldest pending event is dropped.
	QueueSize int
	// MaxDropped disconnects a subscriber once this many events have been
	// dropped since it last received one.
	MaxDropped int
}

// Hub is the process-wide subscriber registry. Subscribe, Unsubscribe and
// Broadcast are safe for concurrent use; Broadcast never blocks on a subscriber.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscriber
	closed bool
	opts   Options
	logger logger.Logger
}

func NewHub(opts Options, log logger.Logger) *Hub {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxDropped <= 0 {
		opts.MaxDropped = 4 * opts.QueueSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		subs:   make(map[uuid.UUID]*Subscriber),
		opts:   opts,
		logger: log,
	}
}

// Subscribe registers a new connected subscriber. It only sees events
// broadcast after it was registered.
func (h *Hub) Subscribe() (*Subscriber, error) {
	s := &Subscriber{
		id:    uuid.New(),
		state: StateConnected,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.ErrHubClosed
	}
	h.subs[s.id] = s

	h.logger.Debug("Subscriber connected", map[string]interface{}{"subscriber_id": s.id, "subscribers": len(h.subs)})
	return s, nil
}

// Unsubscribe removes s and moves it to Disconnected. Calling it twice is harmless.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.remove(s, ErrUnsubscribed)
}

func (h *Hub) remove(s *Subscriber, reason error) {
	if s == nil {
		return
	}
	h.mu.Lock()
	if h.subs[s.id] == s {
		delete(h.subs, s.id)
	}
	h.mu.Unlock()

	if s.disconnect(reason) {
		h.logger.Debug("Subscriber disconnected", map[string]interface{}{"subscriber_id": s.id, "reason": reason.Error()})
	}
}

// Broadcast enqueues ev for every subscriber connected at the time of the
// call and returns how many received it.
func (h *Hub) Broadcast(ev Event) (int, error) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return 0, errors.ErrHubClosed
	}
	targets := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		ok, overflowed := s.enqueue(ev, h.opts)
		if ok {
			delivered++
		}
		if overflowed {
			h.logger.Warn("Disconnecting slow subscriber", map[string]interface{}{
				"subscriber_id": s.id,
				"dropped":       s.Dropped(),
			})
			h.remove(s, ErrSlowConsumer)
		}
	}
	return delivered, nil
}

// Len is the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber and rejects further use.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[uuid.UUID]*Subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.disconnect(errors.ErrHubClosed)
	}
	h.logger.Info("Live-update hub closed", map[string]interface{}{"dropped_subscribers": len(subs)})
}

// Subscriber is one connection's handle on the hub.
type Subscriber struct {
	id uuid.UUID

	mu           sync.Mutex
	state        State
	queue        []Event
	dropped      int
	totalDropped int
	reason       error

	ready chan struct{}
	done  chan struct{}
}

func (s *Subscriber) ID() uuid.UUID { return s.id }

func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the subscriber becomes Disconnected.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Err reports why the subscriber was disconnected, or nil while connected.
func (s *Subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Dropped is the total number of events dropped for this subscriber.
func (s *Subscriber) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalDropped
}

// Next blocks until an event is pending, the subscriber is disconnected or
// ctx is done. Pending events are discarded on disconnect.
func (s *Subscriber) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if s.state == StateDisconnected {
			reason := s.reason
			s.mu.Unlock()
			return Event{}, reason
		}
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.dropped = 0
			s.mu.Unlock()
			return ev, nil
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-s.done:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// enqueue never blocks. It reports whether ev was queued and whether the
// subscriber has exceeded its drop ceiling.
func (s *Subscriber) enqueue(ev Event, opts Options) (bool, bool) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return false, false
	}
	if len(s.queue) >= opts.QueueSize {
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.dropped++
		s.totalDropped++
	}
	s.queue = append(s.queue, ev)
	overflowed := s.dropped > opts.MaxDropped
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return true, overflowed
}

// disconnect moves s to Disconnected and reports whether this call did it.
func (s *Subscriber) disconnect(reason error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return false
	}
	s.state = StateDisconnected
	s.reason = reason
	s.queue = nil
	close(s.done)
	return true
}
