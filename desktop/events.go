package desktop

import (
	"sync"
	"time"
)

// EventType classifies entries in the job event log.
type EventType string

const (
	EventTypeStatus EventType = "status"
	EventTypeLog    EventType = "log"
	EventTypeResult EventType = "result"
	EventTypeError  EventType = "error"
)

// Event is one sequenced entry of the job event log. Log events carry a
// single line of tool output as it arrived; result events carry the located
// stem paths.
type Event struct {
	Seq          int64     `json:"seq"`
	Timestamp    time.Time `json:"timestamp"`
	JobID        string    `json:"jobId"`
	Type         EventType `json:"type"`
	Status       JobStatus `json:"status,omitempty"`
	Message      string    `json:"message,omitempty"`
	Vocals       string    `json:"vocals,omitempty"`
	Instrumental string    `json:"instrumental,omitempty"`
	OutputDir    string    `json:"outputDir,omitempty"`
}

// EventBus keeps a bounded history of events with incremental reads. The
// frontend polls with the last sequence it saw and misses nothing that is
// still buffered.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish assigns the next sequence number, stamps the event, and appends
// it, dropping the oldest entries once the buffer is full.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
