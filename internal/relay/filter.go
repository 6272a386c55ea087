package relay

import "slackgram/internal/domain"

// SkipReason says why an event was not relayed.
type SkipReason string

const (
	SkipMissingChannel SkipReason = "missing_channel"
	SkipSubtype        SkipReason = "subtype"
	SkipNoSender       SkipReason = "no_sender"
	SkipEmptyText      SkipReason = "empty_text"
	SkipUnmapped       SkipReason = "unmapped_channel"
	SkipShutdown       SkipReason = "shutdown" // still queued when the relay stopped
)

// allowedSubtypes are the message subtypes that carry relayable content.
// Join, leave, topic and other system subtypes are rejected.
var allowedSubtypes = map[string]bool{
	"":            true,
	"message":     true,
	"bot_message": true,
}

// Filter decides whether an event is eligible for relay.
type Filter struct {
	mapping   domain.ChannelMapping
	normalize func(domain.InboundEvent) string
}

// NewFilter creates a filter over the given channel mapping.
func NewFilter(mapping domain.ChannelMapping) *Filter {
	return &Filter{mapping: mapping, normalize: Normalize}
}

// Accept checks ev in a fixed order and stops at the first failing check.
// On success it returns the normalized text so callers do not normalize twice.
// Normalization runs only for events that passed the structural checks.
func (f *Filter) Accept(ev domain.InboundEvent) (string, SkipReason, bool) {
	if ev.Channel == "" {
		return "", SkipMissingChannel, false
	}
	if !allowedSubtypes[ev.SubType] {
		return "", SkipSubtype, false
	}
	if ev.User == "" && ev.BotID == "" {
		return "", SkipNoSender, false
	}

	// only a truly empty result is rejected; whitespace is content
	text := f.normalize(ev)
	if text == "" {
		return "", SkipEmptyText, false
	}

	if _, ok := f.mapping.Lookup(ev.Channel); !ok {
		return "", SkipUnmapped, false
	}
	return text, "", true
}
