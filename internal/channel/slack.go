package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"slackgram/internal/domain"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// Slack is the event source: it receives channel messages over Socket Mode
// and answers user lookups through the Web API.
type Slack struct {
	botToken string
	appToken string
	debug    bool
	client   *slack.Client
	logger   *slog.Logger
}

// SlackConfig configures the Slack source.
type SlackConfig struct {
	BotToken   string
	AppToken   string
	HTTPClient *http.Client // bounds every Web API call
	Debug      bool         // surface slack-go's own logging
	Logger     *slog.Logger
}

// NewSlack creates a new Slack source. No network calls happen until Start or LookupUser.
func NewSlack(cfg SlackConfig) *Slack {
	opts := []slack.Option{
		slack.OptionAppLevelToken(cfg.AppToken),
		slack.OptionLog(newLibLogger(cfg.Logger, "slack")),
		slack.OptionDebug(cfg.Debug),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, slack.OptionHTTPClient(cfg.HTTPClient))
	}
	return &Slack{
		botToken: cfg.BotToken,
		appToken: cfg.AppToken,
		debug:    cfg.Debug,
		client:   slack.New(cfg.BotToken, opts...),
		logger:   cfg.Logger,
	}
}

func (s *Slack) Name() string { return "slack" }

// Start connects via Socket Mode and publishes message events until ctx ends.
// It returns nil on cancellation and an error when the connection fails for good.
func (s *Slack) Start(ctx context.Context, queue domain.EventQueue) error {
	authResp, err := s.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	s.logger.Info("slack bot connected", "team", authResp.Team, "user", authResp.User, "user_id", authResp.UserID)

	socketClient := socketmode.New(s.client,
		socketmode.OptionDebug(s.debug),
		socketmode.OptionLog(newLibLogger(s.logger, "socketmode")),
	)

	go s.dispatch(ctx, socketClient, queue)

	errCh := make(chan error, 1)
	go func() {
		errCh <- socketClient.RunContext(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("slack disconnecting")
		return nil
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("slack socket mode: %w", err)
	}
}

func (s *Slack) dispatch(ctx context.Context, socketClient *socketmode.Client, queue domain.EventQueue) {
	for {
		var evt socketmode.Event
		select {
		case <-ctx.Done():
			return
		case evt = <-socketClient.Events:
		}

		switch evt.Type {
		case socketmode.EventTypeConnecting:
			s.logger.Debug("slack socket mode connecting")
		case socketmode.EventTypeConnected:
			s.logger.Info("slack socket mode connected")
		case socketmode.EventTypeConnectionError:
			s.logger.Warn("slack socket mode connection error, retrying", "err", evt.Data)
		case socketmode.EventTypeEventsAPI:
			// Ack first: Slack redelivers events that are not acknowledged within 3s.
			if evt.Request != nil {
				socketClient.Ack(*evt.Request)
			}
			eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			s.handleEventsAPI(eventsAPIEvent, queue)
		default:
			// Acknowledge unknown events to prevent Socket Mode disconnection.
			if evt.Request != nil {
				socketClient.Ack(*evt.Request)
			}
		}
	}
}

func (s *Slack) handleEventsAPI(event slackevents.EventsAPIEvent, queue domain.EventQueue) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	s.logger.Debug("slack event", "type", event.InnerEvent.Type)

	// app_mention duplicates the message event for the same post.
	if event.InnerEvent.Type != string(slackevents.Message) {
		return
	}
	cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent)
	if !ok || cb.InnerEvent == nil {
		return
	}
	ev, err := decodeMessageEvent(*cb.InnerEvent)
	if err != nil {
		s.logger.Warn("cannot decode slack message event", "err", err)
		return
	}
	queue.Publish(ev)
}

// LookupUser implements domain.UserDirectory with users.info.
func (s *Slack) LookupUser(ctx context.Context, userID string) (domain.UserInfo, error) {
	user, err := s.client.GetUserInfoContext(ctx, userID)
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("slack users.info %s: %w", userID, err)
	}
	return userInfoFromSlack(user), nil
}

func userInfoFromSlack(u *slack.User) domain.UserInfo {
	realName := u.Profile.RealName
	if realName == "" {
		realName = u.RealName
	}
	return domain.UserInfo{
		ID:          u.ID,
		Handle:      u.Name,
		DisplayName: u.Profile.DisplayName,
		RealName:    realName,
		IsBot:       u.IsBot,
	}
}

// wireMessage is the subset of a Slack message event the relay reads.
type wireMessage struct {
	Type        string           `json:"type"`
	Channel     string           `json:"channel"`
	User        string           `json:"user"`
	BotID       string           `json:"bot_id"`
	Username    string           `json:"username"`
	Text        string           `json:"text"`
	SubType     string           `json:"subtype"`
	Attachments []wireAttachment `json:"attachments"`
	Blocks      []wireBlock      `json:"blocks"`
}

type wireAttachment struct {
	Title      string `json:"title"`
	Text       string `json:"text"`
	Fallback   string `json:"fallback"`
	AuthorName string `json:"author_name"`
}

// wireBlock keeps the text object raw: only header blocks are decoded,
// so unexpected shapes in other block types cannot fail the whole event.
type wireBlock struct {
	Type string          `json:"type"`
	Text json.RawMessage `json:"text"`
}

func decodeMessageEvent(raw json.RawMessage) (domain.InboundEvent, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.InboundEvent{}, err
	}

	ev := domain.InboundEvent{
		Channel:  msg.Channel,
		User:     msg.User,
		BotID:    msg.BotID,
		Username: msg.Username,
		Text:     msg.Text,
		SubType:  msg.SubType,
	}
	for _, a := range msg.Attachments {
		ev.Attachments = append(ev.Attachments, domain.Attachment{
			Title:      a.Title,
			Text:       a.Text,
			Fallback:   a.Fallback,
			AuthorName: a.AuthorName,
		})
	}
	for _, b := range msg.Blocks {
		block := domain.Block{Type: b.Type}
		if b.Type == string(slack.MBTHeader) && len(b.Text) > 0 {
			var text slack.TextBlockObject
			if err := json.Unmarshal(b.Text, &text); err == nil {
				block.Text = text.Text
			}
		}
		ev.Blocks = append(ev.Blocks, block)
	}
	return ev, nil
}
