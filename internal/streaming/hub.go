// Package streaming pushes live import progress to connected browsers
// over Server-Sent Events. Each import run is a session; a session can
// have several watchers (two phones at the kitchen table).
package streaming

import (
	"context"
	"log"
	"sync"
	"time"
)

// Client represents a connected SSE client
type Client struct {
	Events chan SSEEvent
}

// NewClient creates a new SSE client
func NewClient() *Client {
	return &Client{
		Events: make(chan SSEEvent, 10),
	}
}

// SessionBroadcaster fans events out to every watcher of one import run.
type SessionBroadcaster struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	events   chan SSEEvent
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopped  bool
}

// NewSessionBroadcaster creates a new session broadcaster
func NewSessionBroadcaster(ctx context.Context) *SessionBroadcaster {
	ctx, cancel := context.WithCancel(ctx)
	return &SessionBroadcaster{
		clients: make(map[*Client]bool),
		events:  make(chan SSEEvent, 100),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a client to the broadcaster
func (b *SessionBroadcaster) Register(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = true
	log.Printf("INFO: client registered, total clients: %d", len(b.clients))
}

// Unregister removes a client from the broadcaster
func (b *SessionBroadcaster) Unregister(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		// Stop() already closes all client channels
		if !b.stopped {
			close(client.Events)
		}
		log.Printf("INFO: client unregistered, total clients: %d", len(b.clients))
	}
}

// ClientCount returns the number of connected clients
func (b *SessionBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends an event to all registered clients. Terminal events
// (complete, error) are retried briefly; progress events are dropped
// when the channel is full since the next one supersedes them anyway.
func (b *SessionBroadcaster) Broadcast(event SSEEvent) {
	b.mu.RLock()
	if b.stopped {
		b.mu.RUnlock()
		return
	}
	b.mu.RUnlock()

	if event.Type == EventTypeComplete || event.Type == EventTypeError {
		select {
		case b.events <- event:
			return
		case <-b.ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
			log.Printf("ERROR: failed to send terminal event type %s, watchers may hang (channel capacity %d)", event.Type, cap(b.events))
		}
		return
	}

	select {
	case b.events <- event:
	case <-b.ctx.Done():
	default:
		log.Printf("WARN: event channel full, dropping event type: %s", event.Type)
	}
}

// Stop stops the broadcaster and cleans up resources
func (b *SessionBroadcaster) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		for client := range b.clients {
			close(client.Events)
			delete(b.clients, client)
		}
		b.mu.Unlock()
		b.cancel()
		close(b.events)
	})
}

// Start starts broadcasting events to all clients
func (b *SessionBroadcaster) Start() {
	go func() {
		defer b.Stop()
		for {
			select {
			case <-b.ctx.Done():
				return
			case event, ok := <-b.events:
				if !ok {
					return
				}
				b.broadcastToClients(event)

				// Terminal events end the session after a short grace
				// period for the last delivery.
				if event.Type == EventTypeComplete || event.Type == EventTypeError {
					time.Sleep(100 * time.Millisecond)
					return
				}
			}
		}
	}()
}

func (b *SessionBroadcaster) broadcastToClients(event SSEEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		if event.Type == EventTypeComplete || event.Type == EventTypeError {
			select {
			case client.Events <- event:
			case <-time.After(50 * time.Millisecond):
				log.Printf("ERROR: failed to send terminal event type %s to client (channel capacity %d)", event.Type, cap(client.Events))
			}
			continue
		}

		select {
		case client.Events <- event:
		default:
			log.Printf("WARN: client channel full, skipping event type: %s", event.Type)
		}
	}
}

// StreamHub manages broadcasters for concurrent import sessions.
type StreamHub struct {
	mu           sync.RWMutex
	broadcasters map[string]*SessionBroadcaster
}

// NewStreamHub creates a new stream hub
func NewStreamHub() *StreamHub {
	return &StreamHub{
		broadcasters: make(map[string]*SessionBroadcaster),
	}
}

// Register registers a client for a session and returns the client
func (h *StreamHub) Register(ctx context.Context, sessionID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	client := NewClient()

	broadcaster, exists := h.broadcasters[sessionID]
	if !exists {
		broadcaster = NewSessionBroadcaster(ctx)
		h.broadcasters[sessionID] = broadcaster
		broadcaster.Start()
		log.Printf("INFO: created broadcaster for import session %s", sessionID)
	}

	broadcaster.Register(client)
	return client
}

// Unregister removes a client from a session
func (h *StreamHub) Unregister(sessionID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	broadcaster, exists := h.broadcasters[sessionID]
	if !exists {
		return
	}

	broadcaster.Unregister(client)

	if broadcaster.ClientCount() == 0 {
		log.Printf("INFO: last client disconnected from session %s, stopping broadcaster", sessionID)
		broadcaster.Stop()
		delete(h.broadcasters, sessionID)
	}
}

// Broadcast sends an event to all clients of a session
func (h *StreamHub) Broadcast(sessionID string, event SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	broadcaster, exists := h.broadcasters[sessionID]
	if !exists {
		return
	}

	broadcaster.Broadcast(event)
}

// IsRunning checks if a session broadcaster exists
func (h *StreamHub) IsRunning(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.broadcasters[sessionID]
	return exists
}
