package streaming

import "time"

// EventType represents the type of SSE event
type EventType string

const (
	EventTypeProgress  EventType = "progress"
	EventTypeRow       EventType = "row"
	EventTypeReport    EventType = "report"
	EventTypeComplete  EventType = "complete"
	EventTypeError     EventType = "error"
	EventTypeHeartbeat EventType = "heartbeat"
)

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ProgressEvent reports import progress through one statement file.
type ProgressEvent struct {
	FileName   string  `json:"fileName"`
	Processed  int     `json:"processed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// RowEvent announces one transaction added during an import.
type RowEvent struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Merchant    string  `json:"merchant"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`
}

// ErrorEvent reports an import failure.
type ErrorEvent struct {
	Message  string `json:"message"`
	FileName string `json:"fileName,omitempty"`
}

// NewEvent wraps data in a timestamped SSE event.
func NewEvent(eventType EventType, data interface{}) SSEEvent {
	return SSEEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewProgressEvent builds a progress event, deriving the percentage.
func NewProgressEvent(p ProgressEvent) SSEEvent {
	if p.Total > 0 {
		p.Percentage = float64(p.Processed) / float64(p.Total) * 100
	}
	return NewEvent(EventTypeProgress, p)
}

// NewErrorEvent builds an error event from a message.
func NewErrorEvent(message, fileName string) SSEEvent {
	return NewEvent(EventTypeError, ErrorEvent{Message: message, FileName: fileName})
}
