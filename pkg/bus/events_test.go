package bus

import (
	"context"
	"testing"
	"time"
)

func TestEventFanout(t *testing.T) {
	events := NewEvents()
	t.Cleanup(events.Close)

	ctx := context.Background()
	eventsA, unsubA := events.Subscribe(ctx, 1)
	defer unsubA()
	eventsB, unsubB := events.Subscribe(ctx, 1)
	defer unsubB()

	event := Event{Type: EventCommandReceived, Command: "/date", ChatID: 1}
	if ok := events.Publish(ctx, event); !ok {
		t.Fatal("expected event publish to succeed")
	}

	for name, ch := range map[string]<-chan Event{"A": eventsA, "B": eventsB} {
		select {
		case got := <-ch:
			if got.Type != EventCommandReceived || got.Command != "/date" {
				t.Fatalf("subscriber %s got %#v", name, got)
			}
			if got.At.IsZero() {
				t.Fatalf("subscriber %s got event without timestamp", name)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("subscriber %s did not receive event", name)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	events := NewEvents()
	t.Cleanup(events.Close)

	ctx := context.Background()
	ch, unsubscribe := events.Subscribe(ctx, 1)
	defer unsubscribe()

	if ok := events.Publish(ctx, Event{Type: EventCommandReceived}); !ok {
		t.Fatal("expected first event publish to succeed")
	}

	start := time.Now()
	if ok := events.Publish(ctx, Event{Type: EventCommandCompleted}); !ok {
		t.Fatal("expected second event publish to succeed")
	}

	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("publish blocked on slow subscriber")
	}

	select {
	case <-ch:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected at least one event")
	}
}

func TestCloseStopsEvents(t *testing.T) {
	events := NewEvents()
	ch, _ := events.Subscribe(context.Background(), 1)

	events.Close()

	if ok := events.Publish(context.Background(), Event{Type: EventCommandFailed}); ok {
		t.Fatal("expected publish to fail after close")
	}

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("subscriber channel was not closed")
	}

	late, _ := events.Subscribe(context.Background(), 1)
	if _, open := <-late; open {
		t.Fatal("expected subscription after close to be closed")
	}
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	events := NewEvents()
	t.Cleanup(events.Close)

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := events.Subscribe(ctx, 1)
	cancel()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected closed channel after cancel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("subscription did not end on cancel")
	}
}
