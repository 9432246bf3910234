package bus

import (
	"context"
	"sync"
	"time"
)

const defaultEventBuffer = 100

type EventType string

const (
	EventCommandReceived  EventType = "command_received"
	EventCommandCompleted EventType = "command_completed"
	EventCommandFailed    EventType = "command_failed"
)

// Event describes one step in the life of a command.
type Event struct {
	Type      EventType `json:"type"`
	At        time.Time `json:"at"`
	RequestID string    `json:"request_id,omitempty"`
	Adapter   string    `json:"adapter,omitempty"`
	ChatID    int64     `json:"chat_id,omitempty"`
	Command   string    `json:"command,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Events fans command events out to subscribers. Slow subscribers lose
// events instead of blocking publishers.
type Events struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64

	done      chan struct{}
	closeOnce sync.Once
}

func NewEvents() *Events {
	return &Events{
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
	}
}

func (e *Events) Publish(ctx context.Context, event Event) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return false
	case <-e.done:
		return false
	default:
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		default:
		}
	}

	return true
}

func (e *Events) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	ch := make(chan Event, buffer)

	e.mu.Lock()
	select {
	case <-e.done:
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := e.nextID
	e.nextID++
	e.subscribers[id] = ch
	e.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			e.mu.Lock()
			if eventCh, ok := e.subscribers[id]; ok {
				delete(e.subscribers, id)
				close(eventCh)
			}
			e.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-e.done:
			unsubscribe()
		}
	}()

	return ch, unsubscribe
}

// Close stops publishing and closes every subscriber channel.
func (e *Events) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}
