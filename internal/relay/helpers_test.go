package relay

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"slackgram/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var errNotFound = errors.New("user_not_found")

// fakeDirectory answers lookups from a map; unknown IDs fail.
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]domain.UserInfo
	block bool // wait for ctx instead of answering
	calls int
}

func (d *fakeDirectory) LookupUser(ctx context.Context, userID string) (domain.UserInfo, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.block {
		<-ctx.Done()
		return domain.UserInfo{}, ctx.Err()
	}
	u, ok := d.users[userID]
	if !ok {
		return domain.UserInfo{}, errNotFound
	}
	return u, nil
}

type sentMessage struct {
	ChatID string
	Body   string
}

// fakeSender records deliveries.
type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	err   error
	delay time.Duration
	panic bool
}

func (s *fakeSender) Send(ctx context.Context, chatID, body string) error {
	if s.panic {
		panic("sender exploded")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{ChatID: chatID, Body: body})
	return nil
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}
