package bus

import (
	"testing"
	"time"

	"slackgram/internal/domain"
)

func TestQueue_PublishSubscribe(t *testing.T) {
	q := New(2, testLogger())
	q.Publish(domain.InboundEvent{Channel: "C1", Text: "a"})
	q.Publish(domain.InboundEvent{Channel: "C2", Text: "b"})

	ch := q.Subscribe()
	if ev := <-ch; ev.Channel != "C1" {
		t.Errorf("first event channel = %q, want C1", ev.Channel)
	}
	if ev := <-ch; ev.Channel != "C2" {
		t.Errorf("second event channel = %q, want C2", ev.Channel)
	}
}

func TestQueue_DropsWhenFull(t *testing.T) {
	q := New(1, testLogger())
	q.timeout = 20 * time.Millisecond

	q.Publish(domain.InboundEvent{Channel: "C1"})

	start := time.Now()
	q.Publish(domain.InboundEvent{Channel: "C2"})
	if time.Since(start) < q.timeout {
		t.Error("publish on a full queue returned before the timeout")
	}

	q.Close()
	var got []string
	for ev := range q.Subscribe() {
		got = append(got, ev.Channel)
	}
	if len(got) != 1 || got[0] != "C1" {
		t.Errorf("queue contents = %v, want [C1]", got)
	}
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := New(1, testLogger())
	q.Close()
	q.Close() // idempotent

	// must not panic on a closed channel
	q.Publish(domain.InboundEvent{Channel: "C1"})

	if _, ok := <-q.Subscribe(); ok {
		t.Error("expected closed channel")
	}
}

func TestQueue_CloseReleasesBlockedPublisher(t *testing.T) {
	q := New(1, testLogger())
	q.Publish(domain.InboundEvent{Channel: "C1"})

	published := make(chan struct{})
	go func() {
		q.Publish(domain.InboundEvent{Channel: "C2"}) // waits on the full queue
		close(published)
	}()
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	q.Close()
	if waited := time.Since(start); waited > time.Second {
		t.Errorf("Close waited %v for a blocked publisher", waited)
	}
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("blocked publisher was not released")
	}

	var got []string
	for ev := range q.Subscribe() {
		got = append(got, ev.Channel)
	}
	if len(got) != 1 || got[0] != "C1" {
		t.Errorf("queue contents = %v, want [C1]", got)
	}
}
