package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the part of tgbotapi.BotAPI the transport uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers formatted relay messages through the Bot API.
// It implements domain.Sender.
type Telegram struct {
	bot    botAPI
	logger *slog.Logger
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token      string
	HTTPClient *http.Client // its timeout bounds each sendMessage call
	Debug      bool
	Logger     *slog.Logger
}

// NewTelegram connects to the Bot API (getMe) and returns a ready transport.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	client := cfg.HTTPClient
	if client == nil {
		client = SharedHTTPClient(0)
	}
	if err := tgbotapi.SetLogger(newLibLogger(cfg.Logger, "telegram")); err != nil {
		return nil, fmt.Errorf("telegram logger: %w", err)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	bot.Debug = cfg.Debug
	cfg.Logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)
	return &Telegram{bot: bot, logger: cfg.Logger}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Send posts body as an HTML message to chatID. It makes exactly one attempt
// and returns ctx.Err() if ctx ends before the API answers.
func (t *Telegram) Send(ctx context.Context, chatID, body string) error {
	msg, err := newHTMLMessage(chatID, body)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("telegram send to %s: %w", chatID, err)
		}
		return nil
	}
}

// newHTMLMessage builds a sendMessage request. Chat ids are either numeric
// (users, groups, channels) or "@channelusername".
func newHTMLMessage(chatID, body string) (tgbotapi.MessageConfig, error) {
	chatID = strings.TrimSpace(chatID)
	var msg tgbotapi.MessageConfig
	switch {
	case strings.HasPrefix(chatID, "@") && len(chatID) > 1:
		msg = tgbotapi.NewMessageToChannel(chatID, body)
	default:
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return tgbotapi.MessageConfig{}, fmt.Errorf("invalid telegram chat id %q", chatID)
		}
		msg = tgbotapi.NewMessage(id, body)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg, nil
}
