package bus

import (
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"slackgram/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestEventBus_EmitAndReceive(t *testing.T) {
	eb := NewEventBus(testLogger())

	var received int32
	eb.On(EventRelayDelivered, func(e Event) {
		atomic.AddInt32(&received, 1)
	})

	eb.Emit(Event{Type: EventRelayDelivered})
	eb.Emit(Event{Type: EventRelayFailed})

	if atomic.LoadInt32(&received) != 1 {
		t.Errorf("expected 1 event received, got %d", received)
	}
}

func TestEventBus_WildcardHandler(t *testing.T) {
	eb := NewEventBus(testLogger())

	var count int32
	eb.On("*", func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	eb.Emit(Event{Type: EventRelaySkipped})
	eb.Emit(Event{Type: EventRelayFailed})

	if atomic.LoadInt32(&count) != 2 {
		t.Errorf("expected 2, got %d", count)
	}
}

func TestEventBus_HandlersRunInOrder(t *testing.T) {
	eb := NewEventBus(testLogger())

	var order []string
	eb.On("*", func(e Event) { order = append(order, "wildcard") })
	eb.On("x", func(e Event) { order = append(order, "first") })
	eb.On("x", func(e Event) { order = append(order, "second") })

	eb.Emit(Event{Type: "x"})

	want := []string{"first", "second", "wildcard"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestEventBus_SetsTimestamp(t *testing.T) {
	eb := NewEventBus(testLogger())

	var got []time.Time
	eb.On("x", func(e Event) { got = append(got, e.Timestamp) })

	before := time.Now()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	eb.Emit(Event{Type: "x"})
	eb.Emit(Event{Type: "x", Timestamp: fixed})

	if got[0].Before(before) {
		t.Errorf("timestamp %v not set at emit time", got[0])
	}
	if !got[1].Equal(fixed) {
		t.Errorf("explicit timestamp overwritten: %v", got[1])
	}
}

func TestEventBus_PanicRecovery(t *testing.T) {
	eb := NewEventBus(testLogger())

	var after int32
	eb.On("panic", func(e Event) {
		panic("test panic")
	})
	eb.On("panic", func(e Event) { atomic.AddInt32(&after, 1) })

	eb.Emit(Event{Type: "panic"})

	if atomic.LoadInt32(&after) != 1 {
		t.Error("handler after a panicking one was not called")
	}
}

func TestResultEvent_RoundTrip(t *testing.T) {
	res := domain.RelayResult{
		ID:      "r1",
		Status:  domain.StatusFailed,
		Reason:  "delivery",
		Channel: "C1",
		Sender:  "Alice",
		Err:     errors.New("boom"),
	}
	e := ResultEvent("relay", res)
	if e.Type != EventRelayFailed {
		t.Fatalf("type = %q, want %q", e.Type, EventRelayFailed)
	}
	got, ok := ResultFrom(e)
	if !ok {
		t.Fatal("result not found in payload")
	}
	if got.ID != "r1" || got.ErrText() != "boom" {
		t.Errorf("unexpected result: %+v", got)
	}

	if _, ok := ResultFrom(Event{Type: "other"}); ok {
		t.Error("expected no result for foreign event")
	}
}

func TestResultEventType(t *testing.T) {
	cases := map[domain.RelayStatus]string{
		domain.StatusDelivered: EventRelayDelivered,
		domain.StatusSkipped:   EventRelaySkipped,
		domain.StatusFailed:    EventRelayFailed,
	}
	for status, want := range cases {
		if got := ResultEventType(status); got != want {
			t.Errorf("ResultEventType(%q) = %q, want %q", status, got, want)
		}
	}
}
