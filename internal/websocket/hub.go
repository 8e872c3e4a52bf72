// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/whisperbox/internal/config"
	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/metrics"
	"github.com/tomtom215/whisperbox/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Frame types for websocket communication
const (
	MessageTypeMessageCreated = "message_created"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

const (
	defaultSendBuffer   = 256
	defaultFrameRate    = 5
	defaultFrameBurst   = 10
	registerTimeout     = 5 * time.Second
	publishQueueDefault = 1024
)

// ErrHubUnavailable is returned by Attach when the hub loop does not accept
// a registration in time.
var ErrHubUnavailable = errors.New("websocket hub unavailable")

// Message represents a websocket frame sent by the server.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// delivery is a frame addressed to one recipient's clients.
type delivery struct {
	recipientID string
	message     Message
}

// Hub maintains the connected clients grouped by recipient and routes
// message-created frames only to the owning recipient's clients.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan delivery
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	sendBuffer int
	frameRate  rate.Limit
	frameBurst int
}

// NewHub creates a new Hub
func NewHub(cfg config.WebSocketConfig) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan delivery, publishQueueDefault),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		sendBuffer: cfg.SendBuffer,
		frameRate:  rate.Limit(cfg.ClientFrameRate),
		frameBurst: cfg.ClientFrameBurst,
	}
	if h.sendBuffer < 1 {
		h.sendBuffer = defaultSendBuffer
	}
	if h.frameRate <= 0 {
		h.frameRate = defaultFrameRate
	}
	if h.frameBurst < 1 {
		h.frameBurst = defaultFrameBurst
	}
	return h
}

// RunWithContext runs the hub loop until ctx is canceled, then closes every
// client and returns ctx.Err(). Designed for suture supervision.
//
// Lifecycle events are drained before deliveries so a client registered
// ahead of a publish always receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	set := h.clients[client.recipientID]
	if set == nil {
		set = make(map[*Client]bool)
		h.clients[client.recipientID] = set
	}
	set[client] = true
	total := h.countLocked()
	h.mu.Unlock()

	client.state.transition(StateActive)
	metrics.WSConnections.Inc()
	logging.Debug().
		Str("recipient_id", client.recipientID).
		Uint64("client_id", client.id).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	total := h.countLocked()
	h.mu.Unlock()

	if !removed {
		return
	}
	client.state.transition(StateClosed)
	logging.Debug().
		Str("recipient_id", client.recipientID).
		Uint64("client_id", client.id).
		Int("total_clients", total).
		Msg("websocket client disconnected")
}

// removeLocked drops client from the registry and closes its send channel.
// Caller must hold h.mu.
func (h *Hub) removeLocked(client *Client) bool {
	set := h.clients[client.recipientID]
	if !set[client] {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.recipientID)
	}
	close(client.send)
	close(client.removed)
	metrics.WSConnections.Dec()
	return true
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// deliver sends a frame to every client of one recipient in client id order.
// A client whose buffer is full moves to Error and is dropped; its session
// reconnects and re-lists.
func (h *Hub) deliver(d delivery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[d.recipientID]
	if len(set) == 0 {
		return
	}

	clients := make([]*Client, 0, len(set))
	for client := range set {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- d.message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		client.state.transition(StateError)
		h.removeLocked(client)
		metrics.WSErrors.WithLabelValues("slow_consumer").Inc()
		logging.Warn().
			Str("recipient_id", client.recipientID).
			Uint64("client_id", client.id).
			Msg("websocket client buffer full, dropping client")
	}
}

// closeAllClients closes every client in id order during shutdown.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	var clients []*Client
	for _, set := range h.clients {
		for client := range set {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		h.removeLocked(client)
		client.state.transition(StateClosed)
	}
}

// PublishMessage queues m for the recipient's live clients. It never blocks;
// when the queue is full the frame is dropped and false is returned.
func (h *Hub) PublishMessage(m *models.Message) bool {
	d := delivery{
		recipientID: m.RecipientID,
		message:     Message{Type: MessageTypeMessageCreated, Data: m},
	}

	select {
	case h.broadcast <- d:
		return true
	default:
		metrics.RecordEventDropped("hub_queue_full")
		logging.Warn().
			Str("recipient_id", m.RecipientID).
			Str("message_id", m.ID).
			Msg("hub queue full, dropping message_created frame")
		return false
	}
}

// Attach wraps conn in a Client for recipientID, registers it and starts
// its pumps. The connection is closed if the hub does not accept it.
func (h *Hub) Attach(ctx context.Context, conn *websocket.Conn, recipientID string) (*Client, error) {
	client := NewClient(h, conn, recipientID)

	timer := time.NewTimer(registerTimeout)
	defer timer.Stop()

	select {
	case h.Register <- client:
	case <-ctx.Done():
		_ = conn.Close()
		return nil, ctx.Err()
	case <-timer.C:
		_ = conn.Close()
		return nil, ErrHubUnavailable
	}

	client.Start()
	return client, nil
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked()
}

// RecipientClientCount returns the number of live clients for one recipient.
func (h *Hub) RecipientClientCount(recipientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[recipientID])
}
