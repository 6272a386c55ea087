package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"slackgram/internal/bus"
	"slackgram/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultDeliveryTimeout = 15 * time.Second
	defaultConcurrency     = 5
)

// Failure reasons reported in RelayResult.Reason.
const (
	FailDelivery = "delivery"
	FailTimeout  = "timeout"
	FailPanic    = "panic"
)

// Config holds all dependencies and tuning parameters for the relay.
type Config struct {
	Mapping          domain.ChannelMapping
	Directory        domain.UserDirectory
	Sender           domain.Sender
	Events           *bus.EventBus // optional, receives one result event per inbound event
	Logger           *slog.Logger
	LookupTimeout    time.Duration
	DeliveryTimeout  time.Duration
	MaxMessageLength int
	Concurrency      int // max events processed in parallel
}

// Relay forwards Slack events to their mapped Telegram chats:
// filter → normalize → resolve sender → format → deliver.
type Relay struct {
	mapping         domain.ChannelMapping
	filter          *Filter
	resolver        *Resolver
	formatter       *Formatter
	sender          domain.Sender
	events          *bus.EventBus
	logger          *slog.Logger
	deliveryTimeout time.Duration
	concurrency     int
	newID           func() string

	inflight sync.WaitGroup
}

func New(cfg Config) *Relay {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Relay{
		mapping: cfg.Mapping,
		filter:  NewFilter(cfg.Mapping),
		resolver: NewResolver(ResolverConfig{
			Directory: cfg.Directory,
			Timeout:   cfg.LookupTimeout,
			Events:    cfg.Events,
			Logger:    cfg.Logger,
		}),
		formatter:       NewFormatter(cfg.MaxMessageLength),
		sender:          cfg.Sender,
		events:          cfg.Events,
		logger:          cfg.Logger,
		deliveryTimeout: cfg.DeliveryTimeout,
		concurrency:     cfg.Concurrency,
		newID:           uuid.NewString,
	}
}

// Run consumes events from the queue and relays each one in its own goroutine,
// with at most Concurrency in flight. It returns when ctx ends or the queue closes.
// In-flight relays are not cancelled with ctx; use Wait to let them finish.
func (r *Relay) Run(ctx context.Context, queue domain.EventQueue) {
	r.logger.Info("relay loop started", "channels", r.mapping.Len(), "concurrency", r.concurrency)

	sem := make(chan struct{}, r.concurrency)
	inbound := queue.Subscribe()
	detached := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay loop stopping")
			return
		case ev, ok := <-inbound:
			if !ok {
				r.logger.Info("event queue closed, relay loop stopping")
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				r.logger.Warn("shutdown while waiting for a relay slot, event dropped", "channel", ev.Channel)
				return
			}
			r.inflight.Add(1)
			go func(ev domain.InboundEvent) {
				defer r.inflight.Done()
				defer func() { <-sem }()
				r.safeHandle(detached, ev)
			}(ev)
		}
	}
}

// Drain reports every event left in a closed queue as skipped with reason
// shutdown and returns how many there were. Call it after Run has returned
// and the queue is closed.
func (r *Relay) Drain(queue domain.EventQueue) int {
	n := 0
	for ev := range queue.Subscribe() {
		n++
		r.report(domain.RelayResult{
			ID:      r.newID(),
			Status:  domain.StatusSkipped,
			Reason:  string(SkipShutdown),
			Channel: ev.Channel,
		})
	}
	if n > 0 {
		r.logger.Warn("queued events dropped at shutdown", "count", n)
	}
	return n
}

// Wait blocks until in-flight relays finish or ctx ends.
func (r *Relay) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight relays: %w", ctx.Err())
	}
}

// safeHandle keeps a panic in one event from taking down the loop.
func (r *Relay) safeHandle(ctx context.Context, ev domain.InboundEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.report(domain.RelayResult{
				ID:      r.newID(),
				Status:  domain.StatusFailed,
				Reason:  FailPanic,
				Channel: ev.Channel,
				Err:     fmt.Errorf("relay panic: %v", p),
			})
		}
	}()
	r.Handle(ctx, ev)
}

// Handle runs the full pipeline for one event and reports the result.
// Delivery is attempted at most once.
func (r *Relay) Handle(ctx context.Context, ev domain.InboundEvent) domain.RelayResult {
	start := time.Now()
	res := domain.RelayResult{ID: r.newID(), Channel: ev.Channel}

	r.logger.Debug("event received",
		"relay_id", res.ID,
		"channel", ev.Channel,
		"user", ev.User,
		"subtype", ev.SubType,
		"bot_id", ev.BotID,
	)

	text, reason, ok := r.filter.Accept(ev)
	if !ok {
		res.Status = domain.StatusSkipped
		res.Reason = string(reason)
		res.Elapsed = time.Since(start)
		r.report(res)
		return res
	}
	res.ChatID, _ = r.mapping.Lookup(ev.Channel)

	ident := r.resolver.Resolve(ctx, ev)
	res.Sender = ident.Label
	body := r.formatter.Format(ident.Label, text)

	err := r.deliver(ctx, res.ChatID, body)
	res.Elapsed = time.Since(start)
	switch {
	case err == nil:
		res.Status = domain.StatusDelivered
	case errors.Is(err, context.DeadlineExceeded):
		res.Status = domain.StatusFailed
		res.Reason = FailTimeout
		res.Err = err
	default:
		res.Status = domain.StatusFailed
		res.Reason = FailDelivery
		res.Err = err
	}
	r.report(res)
	return res
}

func (r *Relay) deliver(ctx context.Context, chatID, body string) error {
	ctx, cancel := context.WithTimeout(ctx, r.deliveryTimeout)
	defer cancel()
	return r.sender.Send(ctx, chatID, body)
}

// report writes the operator-visible line and publishes the result.
// Content never appears here, only the sender label.
func (r *Relay) report(res domain.RelayResult) {
	switch res.Status {
	case domain.StatusDelivered:
		r.logger.Info("forwarded", "sender", res.Sender, "channel", res.Channel, "chat_id", res.ChatID)
	case domain.StatusFailed:
		r.logger.Error("forward failed",
			"sender", res.Sender,
			"channel", res.Channel,
			"reason", res.Reason,
			"relay_id", res.ID,
			"err", res.Err,
		)
	default:
		r.logger.Debug("event skipped", "channel", res.Channel, "reason", res.Reason, "relay_id", res.ID)
	}

	if r.events != nil {
		r.events.Emit(bus.ResultEvent("relay", res))
	}
}
