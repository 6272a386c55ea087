package relay

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"slackgram/internal/bus"
	"slackgram/internal/domain"
)

const (
	robotMarker          = "🤖 "
	defaultLookupTimeout = 5 * time.Second
	unknownLabel         = "Unknown"
)

// Lookup outcomes published as identity.lookup events.
const (
	LookupOK     = "ok"
	LookupBot    = "bot_account"
	LookupFailed = "failed"
)

// botRule derives a sender name from the event itself. Empty means "no opinion".
type botRule func(ev domain.InboundEvent) string

// botNameRules is the automated-sender fallback chain, in priority order.
// The synthesized "Bot-xxxx" label is applied after the chain.
var botNameRules = []botRule{
	botNameFromUsername,
	botNameFromAttachmentAuthor,
	botNameFromHeaderBlock,
	botNameFromTextPrefix,
}

func botNameFromUsername(ev domain.InboundEvent) string {
	return strings.TrimSpace(ev.Username)
}

func botNameFromAttachmentAuthor(ev domain.InboundEvent) string {
	att, ok := ev.FirstAttachment()
	if !ok {
		return ""
	}
	return strings.TrimSpace(att.AuthorName)
}

func botNameFromHeaderBlock(ev domain.InboundEvent) string {
	for _, b := range ev.Blocks {
		if b.Type != "header" {
			continue
		}
		if name := strings.TrimSpace(b.Text); name != "" {
			return name
		}
	}
	return ""
}

// botNameFromTextPrefix handles integrations posting "Service Name: message".
func botNameFromTextPrefix(ev domain.InboundEvent) string {
	name, _, found := strings.Cut(ev.Text, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(name)
}

// userRule picks a display label from looked-up account metadata.
type userRule func(u domain.UserInfo) string

// userNameRules is the human-sender fallback chain, in priority order.
var userNameRules = []userRule{
	func(u domain.UserInfo) string { return strings.TrimSpace(u.DisplayName) },
	func(u domain.UserInfo) string { return strings.TrimSpace(u.RealName) },
	func(u domain.UserInfo) string { return strings.TrimSpace(u.Handle) },
	func(u domain.UserInfo) string { return u.ID },
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Directory domain.UserDirectory
	Timeout   time.Duration // bound on a single user lookup
	Events    *bus.EventBus // optional, receives identity.lookup events
	Logger    *slog.Logger
}

// Resolver turns the sender of an event into a display label.
type Resolver struct {
	directory domain.UserDirectory
	timeout   time.Duration
	events    *bus.EventBus
	logger    *slog.Logger
}

func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLookupTimeout
	}
	return &Resolver{
		directory: cfg.Directory,
		timeout:   cfg.Timeout,
		events:    cfg.Events,
		logger:    cfg.Logger,
	}
}

// Resolve never fails: lookup problems degrade to a synthesized label.
// The bot ID wins if an event somehow carries both sender fields.
func (r *Resolver) Resolve(ctx context.Context, ev domain.InboundEvent) domain.Identity {
	switch {
	case ev.BotID != "":
		return domain.Identity{Label: resolveBotName(ev), Category: domain.CategoryAutomated}
	case ev.User != "":
		return r.resolveUser(ctx, ev.User)
	default:
		return domain.Identity{Label: unknownLabel, Category: domain.CategoryUnknown}
	}
}

// resolveBotName uses only the event's own fields; integrations are never looked up.
func resolveBotName(ev domain.InboundEvent) string {
	for _, rule := range botNameRules {
		if name := rule(ev); name != "" {
			return robotMarker + name
		}
	}
	if ev.BotID == "" {
		return robotMarker + "Bot"
	}
	return robotMarker + "Bot-" + prefix(ev.BotID, 8)
}

func (r *Resolver) resolveUser(ctx context.Context, userID string) domain.Identity {
	if r.directory == nil {
		return r.lookupFailed(userID, nil)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	info, err := r.directory.LookupUser(lookupCtx, userID)
	if err != nil {
		return r.lookupFailed(userID, err)
	}

	if info.IsBot {
		r.emit(LookupBot)
		name := strings.TrimSpace(info.Handle)
		if name == "" {
			name = "Bot"
		}
		r.logger.Debug("user is a bot account", "user", userID, "name", name)
		return domain.Identity{Label: robotMarker + name, Category: domain.CategoryAutomated}
	}

	r.emit(LookupOK)
	if info.ID == "" {
		info.ID = userID
	}
	for _, rule := range userNameRules {
		if name := rule(info); name != "" {
			return domain.Identity{Label: name, Category: domain.CategoryHuman}
		}
	}
	return domain.Identity{Label: userID, Category: domain.CategoryHuman}
}

func (r *Resolver) lookupFailed(userID string, err error) domain.Identity {
	r.emit(LookupFailed)
	r.logger.Debug("user lookup failed", "user", userID, "err", err)
	return domain.Identity{
		Label:    "User-" + prefix(userID, 8) + "...",
		Category: domain.CategoryUnknown,
	}
}

func (r *Resolver) emit(outcome string) {
	if r.events == nil {
		return
	}
	r.events.Emit(bus.Event{
		Type:    bus.EventIdentityLookup,
		Source:  "resolver",
		Payload: map[string]any{"outcome": outcome},
	})
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
