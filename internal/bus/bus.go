package bus

import (
	"log/slog"
	"sync"
	"time"

	"slackgram/internal/domain"
)

const publishTimeout = 10 * time.Second

// Queue is a Go-channel based event queue between the Slack source and the relay.
type Queue struct {
	inbound   chan domain.InboundEvent
	done      chan struct{} // closed first by Close to release waiting publishers
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	logger    *slog.Logger
	timeout   time.Duration
}

// New creates a new Queue with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *Queue {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Queue{
		inbound: make(chan domain.InboundEvent, bufferSize),
		done:    make(chan struct{}),
		logger:  logger,
		timeout: publishTimeout,
	}
}

// Publish enqueues ev. Blocks up to 10 seconds if the queue is full, then drops it.
// A publisher waiting on a full queue gives up as soon as Close is called.
func (q *Queue) Publish(ev domain.InboundEvent) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("attempted to publish to closed queue", "channel", ev.Channel)
		return
	}

	select {
	case q.inbound <- ev:
	default:
		q.logger.Warn("event queue full, waiting...", "channel", ev.Channel)
		timer := time.NewTimer(q.timeout)
		defer timer.Stop()
		select {
		case q.inbound <- ev:
		case <-timer.C:
			q.logger.Error("event dropped: queue full",
				"channel", ev.Channel,
				"wait", q.timeout,
			)
		case <-q.done:
			q.logger.Warn("event dropped: queue closing", "channel", ev.Channel)
		}
	}
}

func (q *Queue) Subscribe() <-chan domain.InboundEvent {
	return q.inbound
}

// Close stops the queue. Events already buffered stay readable from Subscribe.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.inbound)
	}
}
