package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"paydash/internal/middleware"
	"paydash/internal/realtime"
	"paydash/pkg/errors"

	"github.com/gorilla/websocket"
)

const eventJoinRoom = "joinRoom"

// RealtimeOptions configures the websocket binding of the hub.
type RealtimeOptions struct {
	AllowedOrigins []string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

// RealtimeHandler pushes paymentUpdate events to websocket clients.
type RealtimeHandler struct {
	hub          *realtime.Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       Logger
}

type clientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func NewRealtimeHandler(hub *realtime.Hub, opts RealtimeOptions, log Logger) *RealtimeHandler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	allowed := opts.AllowedOrigins
	return &RealtimeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(allowed, origin)
			},
		},
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
		logger:       log,
	}
}

// ServeWS upgrades the request and streams hub events until either side goes away.
func (h *RealtimeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sub, err := h.hub.Subscribe()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errors.KindInternal, "Live updates unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.Unsubscribe(sub)
		h.logger.Error("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()
	defer h.hub.Unsubscribe(sub)

	fields := map[string]interface{}{"subscriber_id": sub.ID().String()}
	if id, ok := middleware.IdentityFromContext(r.Context()); ok {
		fields["subject"] = id.Subject
	}
	h.logger.Info("WebSocket client connected", fields)

	go h.readLoop(conn, sub, fields)
	h.writeLoop(conn, sub)

	h.logger.Info("WebSocket client disconnected", map[string]interface{}{
		"subscriber_id": sub.ID().String(),
		"dropped":       sub.Dropped(),
	})
}

// writeLoop is the only writer on conn apart from control frames.
func (h *RealtimeHandler) writeLoop(conn *websocket.Conn, sub *realtime.Subscriber) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), h.pingInterval)
		ev, err := sub.Next(ctx)
		cancel()

		switch {
		case err == nil:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case errors.Is(err, context.DeadlineExceeded):
			deadline := time.Now().Add(h.writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		default:
			h.closeWith(conn, err)
			return
		}
	}
}

// readLoop consumes client frames. Any read error ends the subscription,
// which also stops writeLoop.
func (h *RealtimeHandler) readLoop(conn *websocket.Conn, sub *realtime.Subscriber, fields map[string]interface{}) {
	defer h.hub.Unsubscribe(sub)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))

		switch msg.Event {
		case eventJoinRoom:
			var room string
			_ = json.Unmarshal(msg.Data, &room)
			h.logger.Info("WebSocket joinRoom", map[string]interface{}{
				"subscriber_id": fields["subscriber_id"],
				"room":          room,
			})
		default:
			h.logger.Warn("Ignoring unknown websocket event", map[string]interface{}{
				"subscriber_id": fields["subscriber_id"],
				"event":         msg.Event,
			})
		}
	}
}

func (h *RealtimeHandler) closeWith(conn *websocket.Conn, reason error) {
	code := websocket.CloseNormalClosure
	switch {
	case errors.Is(reason, realtime.ErrSlowConsumer):
		code = websocket.CloseTryAgainLater
	case errors.Is(reason, errors.ErrHubClosed):
		code = websocket.CloseGoingAway
	}
	msg := websocket.FormatCloseMessage(code, reason.Error())
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.writeTimeout))
}
