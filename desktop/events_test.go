// stemsep/desktop/events_test.go
package desktop

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusPublish(t *testing.T) {
	bus := NewEventBus(10)

	first := bus.Publish(Event{Type: EventTypeLog, Message: "one"})
	second := bus.Publish(Event{Type: EventTypeLog, Message: "two"})

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.False(t, first.Timestamp.IsZero())
}

func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(10)
	bus.Publish(Event{Message: "one"})
	bus.Publish(Event{Message: "two"})
	bus.Publish(Event{Message: "three"})

	events := bus.Since(1)
	assert.Len(t, events, 2)
	assert.Equal(t, "two", events[0].Message)
	assert.Equal(t, "three", events[1].Message)

	assert.Empty(t, bus.Since(3))
}

func TestEventBusSinceEmpty(t *testing.T) {
	bus := NewEventBus(10)
	assert.Nil(t, bus.Since(0))
}

func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2)
	bus.Publish(Event{Message: "one"})
	bus.Publish(Event{Message: "two"})
	bus.Publish(Event{Message: "three"})

	events := bus.Since(0)
	assert.Len(t, events, 2)
	assert.Equal(t, "two", events[0].Message)
	assert.Equal(t, "three", events[1].Message)
	// Sequence numbers survive the trim.
	assert.Equal(t, int64(2), events[0].Seq)
}

func TestEventBusDefaultCap(t *testing.T) {
	bus := NewEventBus(0)
	for i := 0; i < 501; i++ {
		bus.Publish(Event{Message: fmt.Sprintf("line %d", i)})
	}

	events := bus.Since(0)
	assert.Len(t, events, 500)
	assert.Equal(t, "line 1", events[0].Message)
}
