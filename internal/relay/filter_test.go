package relay

import (
	"testing"

	"slackgram/internal/domain"
)

func testMapping() domain.ChannelMapping {
	return domain.NewChannelMapping(map[string]string{"C1": "100", "C2": "@news"})
}

// countingFilter records how often normalization runs.
func countingFilter(calls *int) *Filter {
	f := NewFilter(testMapping())
	f.normalize = func(ev domain.InboundEvent) string {
		*calls++
		return Normalize(ev)
	}
	return f
}

func TestFilter_MissingChannel_SkipsNormalization(t *testing.T) {
	var calls int
	f := countingFilter(&calls)

	_, reason, ok := f.Accept(domain.InboundEvent{User: "U1", Text: "hello"})
	if ok || reason != SkipMissingChannel {
		t.Fatalf("got ok=%v reason=%q, want %q", ok, reason, SkipMissingChannel)
	}
	if calls != 0 {
		t.Errorf("normalize called %d times", calls)
	}
}

func TestFilter_DisallowedSubtype(t *testing.T) {
	var calls int
	f := countingFilter(&calls)

	for _, subtype := range []string{"channel_join", "channel_leave", "channel_topic", "message_changed", "message_deleted", "thread_broadcast"} {
		ev := domain.InboundEvent{
			Channel:     "C1",
			User:        "U1",
			SubType:     subtype,
			Text:        "has text",
			Attachments: []domain.Attachment{{Title: "and an attachment"}},
		}
		if _, reason, ok := f.Accept(ev); ok || reason != SkipSubtype {
			t.Errorf("subtype %q: ok=%v reason=%q", subtype, ok, reason)
		}
	}
	if calls != 0 {
		t.Errorf("normalize called %d times for rejected subtypes", calls)
	}
}

func TestFilter_AllowedSubtypes(t *testing.T) {
	f := NewFilter(testMapping())
	cases := []domain.InboundEvent{
		{Channel: "C1", User: "U1", Text: "plain"},
		{Channel: "C1", User: "U1", SubType: "message", Text: "explicit"},
		{Channel: "C1", BotID: "B1", SubType: "bot_message", Text: "bot"},
	}
	for _, ev := range cases {
		if _, reason, ok := f.Accept(ev); !ok {
			t.Errorf("subtype %q rejected: %s", ev.SubType, reason)
		}
	}
}

func TestFilter_BotMessageRequiresSender(t *testing.T) {
	// bot_message is allowed by subtype, not by the presence of a bot ID
	f := NewFilter(testMapping())
	_, reason, ok := f.Accept(domain.InboundEvent{Channel: "C1", SubType: "bot_message", Text: "x"})
	if ok || reason != SkipNoSender {
		t.Errorf("got ok=%v reason=%q, want %q", ok, reason, SkipNoSender)
	}
}

func TestFilter_NoSender(t *testing.T) {
	var calls int
	f := countingFilter(&calls)
	_, reason, ok := f.Accept(domain.InboundEvent{Channel: "C1", Text: "system"})
	if ok || reason != SkipNoSender {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
	if calls != 0 {
		t.Error("normalize should not run without a sender")
	}
}

func TestFilter_EmptyNormalizedText(t *testing.T) {
	f := NewFilter(testMapping())
	for _, ev := range []domain.InboundEvent{
		{Channel: "C1", User: "U1"},
		{Channel: "C1", User: "U1", Attachments: []domain.Attachment{{}}},
		{Channel: "C1", User: "U1", Attachments: []domain.Attachment{{Title: " ", Fallback: "\t"}}},
	} {
		if _, reason, ok := f.Accept(ev); ok || reason != SkipEmptyText {
			t.Errorf("event %+v: ok=%v reason=%q", ev, ok, reason)
		}
	}
}

func TestFilter_WhitespaceTextIsAccepted(t *testing.T) {
	f := NewFilter(testMapping())
	text, reason, ok := f.Accept(domain.InboundEvent{Channel: "C1", User: "U1", Text: "  \n "})
	if !ok {
		t.Fatalf("whitespace-only text rejected with %q", reason)
	}
	if text != "  \n " {
		t.Errorf("text = %q, want it unchanged", text)
	}
}

func TestFilter_AttachmentOnlyIsAccepted(t *testing.T) {
	f := NewFilter(testMapping())
	text, _, ok := f.Accept(domain.InboundEvent{
		Channel:     "C1",
		BotID:       "B1",
		Attachments: []domain.Attachment{{Fallback: "alert"}},
	})
	if !ok {
		t.Fatal("attachment-only message rejected")
	}
	if want := "\n\n" + separator + "\n\nalert"; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestFilter_UnmappedChannel(t *testing.T) {
	f := NewFilter(testMapping())
	_, reason, ok := f.Accept(domain.InboundEvent{Channel: "C9", User: "U1", Text: "hi"})
	if ok || reason != SkipUnmapped {
		t.Errorf("got ok=%v reason=%q, want %q", ok, reason, SkipUnmapped)
	}
}

func TestFilter_EmptyTextCheckedBeforeMapping(t *testing.T) {
	f := NewFilter(testMapping())
	_, reason, _ := f.Accept(domain.InboundEvent{Channel: "C9", User: "U1"})
	if reason != SkipEmptyText {
		t.Errorf("reason = %q, want %q", reason, SkipEmptyText)
	}
}
