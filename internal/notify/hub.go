// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

/*
Package notify implements the one-way event channel from the gateway to all
open foreground instances of the website.

Frontend tabs subscribe once at startup over a WebSocket and render transient
status indicators ("change pending", "all changes synced"). Delivery is
best-effort and at-most-once: these are advisory UX signals, never
correctness-critical, so there is no acknowledgement back-channel and a slow
subscriber is simply dropped.
*/
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sagipkalikasan/bantay/internal/platform/constants"
)

// Event is a single notification pushed to every subscriber.
type Event struct {
	// Type is one of the constants.Event* values.
	Type string `json:"type"`

	// URL and Method identify the affected write for write-queued events.
	URL    string `json:"url,omitempty"`
	Method string `json:"method,omitempty"`
}

// Tunables for the WebSocket transport.
const (
	writeWait      = 5 * time.Second
	sendBufferSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway's CORS middleware already vets origins; the upgrader
	// must not second-guess it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is a single subscribed foreground instance.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of subscribers and broadcasts events to them.
//
// # Concurrency
//
// All subscriber bookkeeping happens on the Run goroutine; handlers and
// producers only ever touch channels.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     *slog.Logger
}

// NewHub creates an empty hub. Call [Hub.Run] on its own goroutine before
// serving subscribers.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes subscriptions and broadcasts until the context is cancelled.
func (hub *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Closing done unblocks any ServeWS or readPump goroutine still
			// trying to hand a subscriber to the (now gone) loop.
			close(hub.done)
			for subscriber := range hub.clients {
				close(subscriber.send)
				delete(hub.clients, subscriber)
			}
			return

		case subscriber := <-hub.register:
			hub.clients[subscriber] = true
			hub.logger.Debug("notify_subscriber_joined", slog.Int("total", len(hub.clients)))

		case subscriber := <-hub.unregister:
			if _, ok := hub.clients[subscriber]; ok {
				delete(hub.clients, subscriber)
				close(subscriber.send)
				hub.logger.Debug("notify_subscriber_left", slog.Int("total", len(hub.clients)))
			}

		case message := <-hub.broadcast:
			for subscriber := range hub.clients {
				select {
				case subscriber.send <- message:
				default:
					// A subscriber that can't keep up is dropped rather
					// than allowed to stall everyone else.
					close(subscriber.send)
					delete(hub.clients, subscriber)
				}
			}
		}
	}
}

// # Producer Side (syncq.Notifier)

// WriteQueued broadcasts an offline-write-queued event.
func (hub *Hub) WriteQueued(url, method string) {
	hub.emit(Event{Type: constants.EventWriteQueued, URL: url, Method: method})
}

// QueueSynced broadcasts a queue-synced event.
func (hub *Hub) QueueSynced() {
	hub.emit(Event{Type: constants.EventQueueSynced})
}

// emit serializes and broadcasts an event. If the hub itself is saturated
// the event is dropped — at-most-once is the contract.
func (hub *Hub) emit(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		hub.logger.Error("notify_encode_failed", slog.Any("error", err))
		return
	}

	select {
	case hub.broadcast <- message:
	default:
		hub.logger.Warn("notify_event_dropped", slog.String("type", event.Type))
	}
}

// # Subscriber Side

// ServeWS upgrades an HTTP request into an event subscription.
//
// GET /ws/events
func (hub *Hub) ServeWS(writer http.ResponseWriter, request *http.Request) {
	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		hub.logger.Warn("notify_upgrade_failed", slog.Any("error", err))
		return
	}

	subscriber := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	select {
	case hub.register <- subscriber:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go subscriber.writePump()
	go subscriber.readPump(hub)
}

// readPump discards inbound frames and detects disconnects. The channel is
// one-way; subscribers have nothing to say.
func (subscriber *client) readPump(hub *Hub) {
	defer func() {
		select {
		case hub.unregister <- subscriber:
		case <-hub.done:
		}
		_ = subscriber.conn.Close()
	}()
	for {
		if _, _, err := subscriber.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump relays broadcast messages to the socket.
func (subscriber *client) writePump() {
	defer func() { _ = subscriber.conn.Close() }()
	for message := range subscriber.send {
		_ = subscriber.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := subscriber.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = subscriber.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
