package streaming

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSingleClientReceivesAllEvents(t *testing.T) {
	ctx := context.Background()
	hub := NewStreamHub()
	sessionID := "import-session-1"

	client := hub.Register(ctx, sessionID)

	events := []SSEEvent{
		NewProgressEvent(ProgressEvent{FileName: "march.csv", Processed: 1, Total: 10}),
		NewProgressEvent(ProgressEvent{FileName: "march.csv", Processed: 5, Total: 10}),
		NewProgressEvent(ProgressEvent{FileName: "march.csv", Processed: 10, Total: 10}),
	}

	for _, event := range events {
		hub.Broadcast(sessionID, event)
	}

	received := 0
	timeout := time.After(2 * time.Second)
	for received < len(events) {
		select {
		case event := <-client.Events:
			received++
			if event.Type != EventTypeProgress {
				t.Errorf("Expected EventTypeProgress, got %s", event.Type)
			}
		case <-timeout:
			t.Fatalf("Timeout waiting for events. Received %d/%d", received, len(events))
		}
	}

	hub.Unregister(sessionID, client)
}

func TestMultipleClientsReceiveSameEvents(t *testing.T) {
	ctx := context.Background()
	hub := NewStreamHub()
	sessionID := "import-session-2"

	numClients := 3
	clients := make([]*Client, numClients)
	for i := 0; i < numClients; i++ {
		clients[i] = hub.Register(ctx, sessionID)
	}

	hub.Broadcast(sessionID, NewProgressEvent(ProgressEvent{FileName: "march.csv", Processed: 5, Total: 10}))

	var wg sync.WaitGroup
	wg.Add(numClients)
	for i, client := range clients {
		go func(idx int, c *Client) {
			defer wg.Done()
			select {
			case event := <-c.Events:
				if event.Type != EventTypeProgress {
					t.Errorf("Client %d: Expected EventTypeProgress, got %s", idx, event.Type)
				}
			case <-time.After(2 * time.Second):
				t.Errorf("Client %d: Timeout waiting for event", idx)
			}
		}(i, client)
	}

	wg.Wait()

	for _, client := range clients {
		hub.Unregister(sessionID, client)
	}
}

func TestLastClientCleansUpBroadcaster(t *testing.T) {
	ctx := context.Background()
	hub := NewStreamHub()
	sessionID := "import-session-3"

	client := hub.Register(ctx, sessionID)
	if !hub.IsRunning(sessionID) {
		t.Fatal("expected broadcaster to be running after register")
	}

	hub.Unregister(sessionID, client)
	if hub.IsRunning(sessionID) {
		t.Error("expected broadcaster cleaned up after last client left")
	}
}

func TestTerminalEventStopsSession(t *testing.T) {
	ctx := context.Background()
	hub := NewStreamHub()
	sessionID := "import-session-4"

	client := hub.Register(ctx, sessionID)

	hub.Broadcast(sessionID, NewEvent(EventTypeComplete, map[string]string{"status": "completed"}))

	select {
	case event, ok := <-client.Events:
		if !ok {
			t.Fatal("channel closed before delivering the terminal event")
		}
		if event.Type != EventTypeComplete {
			t.Errorf("expected complete event, got %s", event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for terminal event")
	}

	// The broadcaster shuts down shortly after a terminal event and
	// closes the client channel.
	select {
	case _, ok := <-client.Events:
		if ok {
			t.Error("expected channel close after terminal event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}

func TestBroadcastToUnknownSessionIsSafe(t *testing.T) {
	hub := NewStreamHub()
	// Must not panic or block.
	hub.Broadcast("nope", NewErrorEvent("boom", "march.csv"))
}

func TestProgressEventPercentage(t *testing.T) {
	event := NewProgressEvent(ProgressEvent{FileName: "march.csv", Processed: 3, Total: 4})
	p, ok := event.Data.(ProgressEvent)
	if !ok {
		t.Fatalf("expected ProgressEvent payload, got %T", event.Data)
	}
	if p.Percentage != 75 {
		t.Errorf("expected 75%%, got %v", p.Percentage)
	}
	if event.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}
