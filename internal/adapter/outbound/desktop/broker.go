// Package desktop provides the event, notification and window adapters used
// when the UI runs as a separate process talking to the local API.
package desktop

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plutodesk/plutodesk/internal/port/outbound"
)

// defaultSubscriberBuffer is the per-subscriber queue length.
const defaultSubscriberBuffer = 64

// Event is a named UI event with an optional JSON-encodable payload.
type Event struct {
	Name    string    `json:"name"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Broker fans events out to subscribers. Emit never blocks: a subscriber
// whose queue is full misses the event and the drop is counted.
type Broker struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	nextID  uint64
	buffer  int
	dropped atomic.Int64
	logger  *slog.Logger
}

// NewBroker creates a broker with the default per-subscriber buffer.
func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subs:   make(map[uint64]chan Event),
		buffer: defaultSubscriberBuffer,
		logger: logger,
	}
}

// Emit delivers an event to every current subscriber.
func (b *Broker) Emit(name string, payload any) {
	ev := Event{Name: name, Payload: payload, At: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped for slow subscriber", "event", name, "subscriber", id)
		}
	}
}

// Subscribe registers a subscriber. The returned cancel function
// unregisters it and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns the number of events dropped for slow subscribers.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}

var _ outbound.EventEmitter = (*Broker)(nil)
