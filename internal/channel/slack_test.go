package channel

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"slackgram/internal/domain"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// captureQueue records published events.
type captureQueue struct {
	events []domain.InboundEvent
}

func (q *captureQueue) Publish(ev domain.InboundEvent)        { q.events = append(q.events, ev) }
func (q *captureQueue) Subscribe() <-chan domain.InboundEvent { return nil }
func (q *captureQueue) Close()                                {}

func TestDecodeMessageEvent_UserMessage(t *testing.T) {
	raw := json.RawMessage(`{"type":"message","channel":"C1","user":"U1","text":"hello","ts":"1.2"}`)
	ev, err := decodeMessageEvent(raw)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Channel != "C1" || ev.User != "U1" || ev.Text != "hello" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.BotID != "" || ev.SubType != "" {
		t.Errorf("expected no bot fields, got %+v", ev)
	}
}

func TestDecodeMessageEvent_BotMessage(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "message",
		"subtype": "bot_message",
		"channel": "C2",
		"bot_id": "B1234567890",
		"username": "Pipedream",
		"text": "",
		"attachments": [
			{"title": "Build", "text": "passed", "fallback": "Build passed", "author_name": "CI"}
		],
		"blocks": [
			{"type": "section", "text": {"type": "mrkdwn", "text": "ignored"}},
			{"type": "header", "text": {"type": "plain_text", "text": "Deploy report"}}
		]
	}`)
	ev, err := decodeMessageEvent(raw)
	if err != nil {
		t.Fatal(err)
	}
	if ev.SubType != "bot_message" || ev.BotID != "B1234567890" || ev.Username != "Pipedream" {
		t.Errorf("unexpected bot fields: %+v", ev)
	}
	if len(ev.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(ev.Attachments))
	}
	want := domain.Attachment{Title: "Build", Text: "passed", Fallback: "Build passed", AuthorName: "CI"}
	if ev.Attachments[0] != want {
		t.Errorf("attachment = %+v, want %+v", ev.Attachments[0], want)
	}
	if len(ev.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(ev.Blocks))
	}
	if ev.Blocks[0].Text != "" {
		t.Errorf("non-header block text should be dropped, got %q", ev.Blocks[0].Text)
	}
	if ev.Blocks[1].Type != "header" || ev.Blocks[1].Text != "Deploy report" {
		t.Errorf("header block = %+v", ev.Blocks[1])
	}
}

func TestDecodeMessageEvent_InvalidJSON(t *testing.T) {
	if _, err := decodeMessageEvent(json.RawMessage(`{"channel":`)); err == nil {
		t.Error("expected error for truncated payload")
	}
}

func callbackEvent(innerType, payload string) slackevents.EventsAPIEvent {
	raw := json.RawMessage(payload)
	return slackevents.EventsAPIEvent{
		Type:       slackevents.CallbackEvent,
		InnerEvent: slackevents.EventsAPIInnerEvent{Type: innerType},
		Data:       &slackevents.EventsAPICallbackEvent{InnerEvent: &raw},
	}
}

func TestSlack_HandleEventsAPI_PublishesMessages(t *testing.T) {
	s := NewSlack(SlackConfig{BotToken: "xoxb-test", AppToken: "xapp-test", Logger: testLogger()})
	q := &captureQueue{}

	s.handleEventsAPI(callbackEvent("message", `{"type":"message","channel":"C1","user":"U1","text":"hi"}`), q)

	if len(q.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(q.events))
	}
	if q.events[0].Text != "hi" {
		t.Errorf("text = %q", q.events[0].Text)
	}
}

func TestSlack_HandleEventsAPI_IgnoresAppMention(t *testing.T) {
	s := NewSlack(SlackConfig{BotToken: "xoxb-test", AppToken: "xapp-test", Logger: testLogger()})
	q := &captureQueue{}

	s.handleEventsAPI(callbackEvent("app_mention", `{"type":"app_mention","channel":"C1","user":"U1","text":"<@B> hi"}`), q)

	if len(q.events) != 0 {
		t.Errorf("app_mention should not be relayed, got %d events", len(q.events))
	}
}

func TestSlack_HandleEventsAPI_IgnoresNonCallback(t *testing.T) {
	s := NewSlack(SlackConfig{BotToken: "xoxb-test", AppToken: "xapp-test", Logger: testLogger()})
	q := &captureQueue{}

	ev := callbackEvent("message", `{"type":"message","channel":"C1","user":"U1","text":"hi"}`)
	ev.Type = slackevents.URLVerification
	s.handleEventsAPI(ev, q)

	if len(q.events) != 0 {
		t.Errorf("expected no events, got %d", len(q.events))
	}
}

func TestUserInfoFromSlack(t *testing.T) {
	u := &slack.User{
		ID:       "U1",
		Name:     "alice",
		RealName: "Alice Account",
		IsBot:    false,
		Profile:  slack.UserProfile{DisplayName: "Ali"},
	}
	info := userInfoFromSlack(u)
	want := domain.UserInfo{ID: "U1", Handle: "alice", DisplayName: "Ali", RealName: "Alice Account"}
	if info != want {
		t.Errorf("info = %+v, want %+v", info, want)
	}

	u.Profile.RealName = "Alice Profile"
	u.IsBot = true
	info = userInfoFromSlack(u)
	if info.RealName != "Alice Profile" || !info.IsBot {
		t.Errorf("profile real name should win and IsBot carried: %+v", info)
	}
}

func TestSlack_Name(t *testing.T) {
	s := NewSlack(SlackConfig{Logger: testLogger()})
	if s.Name() != "slack" {
		t.Errorf("Name() = %q", s.Name())
	}
}
