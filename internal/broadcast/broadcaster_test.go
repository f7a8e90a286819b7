package broadcast

import (
	"testing"

	"whatswizard/internal/core/domain"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := New[domain.StatusEvent]()

	a, cancelA := bus.Subscribe()
	b, cancelB := bus.Subscribe()
	defer cancelA()
	defer cancelB()

	bus.Publish(domain.StatusEvent{Type: domain.StatusAuth, Stats: domain.ClientStats{IsAuthenticated: true}})

	for name, ch := range map[string]<-chan domain.StatusEvent{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Type != domain.StatusAuth || !ev.Stats.IsAuthenticated {
				t.Errorf("subscriber %s got %+v", name, ev)
			}
		default:
			t.Errorf("subscriber %s received nothing", name)
		}
	}
}

func TestLateSubscriberSeesOnlyFutureEvents(t *testing.T) {
	bus := New[domain.StatusEvent]()

	bus.Publish(domain.StatusEvent{Type: domain.StatusQR})

	ch, cancel := bus.Subscribe()
	defer cancel()

	select {
	case ev := <-ch:
		t.Fatalf("late subscriber should not see past events, got %+v", ev)
	default:
	}

	bus.Publish(domain.StatusEvent{Type: domain.StatusUnread, Stats: domain.ClientStats{UnreadChats: 3}})
	select {
	case ev := <-ch:
		if ev.Stats.UnreadChats != 3 {
			t.Errorf("got %+v", ev)
		}
	default:
		t.Fatal("expected future event")
	}
}

func TestCancelUnsubscribes(t *testing.T) {
	bus := New[int]()
	ch, cancel := bus.Subscribe()
	cancel()

	if bus.Len() != 0 {
		t.Fatalf("Len = %d after cancel", bus.Len())
	}
	if _, open := <-ch; open {
		t.Fatal("channel should be closed after cancel")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := New[int]()
	_, cancel := bus.Subscribe()
	defer cancel()

	// fill well past the subscriber buffer; Publish must never block
	for i := 0; i < 100; i++ {
		bus.Publish(i)
	}
}
