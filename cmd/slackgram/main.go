package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"slackgram/internal/bus"
	"slackgram/internal/channel"
	"slackgram/internal/config"
	"slackgram/internal/domain"
	"slackgram/internal/journal"
	"slackgram/internal/metrics"
	"slackgram/internal/relay"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:           "slackgram",
		Short:         "Relay Slack channel messages to Telegram chats",
		Long:          "slackgram listens to Slack channels over Socket Mode and forwards each new message to its mapped Telegram chat.",
		RunE:          runRelay,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to config.yaml")

	root.AddCommand(runCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(journalCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		logger.Error("slackgram failed", "err", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the relay (default)",
		Long:  "Connects to Slack and Telegram and relays messages until interrupted. Press Ctrl+C to stop.",
		RunE:  runRelay,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "slackgram %s\n", version)
		},
	}
}

// newLogger builds the process logger from the log settings.
// Debug mode wins over the configured level.
func newLogger(cfg config.LogConfig, debug bool) *slog.Logger {
	level := parseLevel(cfg.Level)
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg.Log, cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := bus.NewEventBus(logger)

	m := metrics.New()
	m.Subscribe(events)

	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer store.Close()
		store.Subscribe(events)
		logger.Info("relay journal enabled", "path", cfg.Journal.Path)
	}

	tg, err := channel.NewTelegram(channel.TelegramConfig{
		Token:      cfg.Telegram.BotToken,
		HTTPClient: channel.SharedHTTPClient(cfg.Relay.DeliveryTimeout),
		Debug:      cfg.Debug,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	slackSrc := channel.NewSlack(channel.SlackConfig{
		BotToken:   cfg.Slack.BotToken,
		AppToken:   cfg.Slack.AppToken,
		HTTPClient: channel.SharedHTTPClient(0),
		Debug:      cfg.Debug,
		Logger:     logger,
	})

	mapping := domain.NewChannelMapping(cfg.ChannelMappings)
	queue := bus.New(cfg.Relay.QueueSize, logger)

	r := relay.New(relay.Config{
		Mapping:          mapping,
		Directory:        slackSrc,
		Sender:           tg,
		Events:           events,
		Logger:           logger,
		LookupTimeout:    cfg.Relay.LookupTimeout,
		DeliveryTimeout:  cfg.Relay.DeliveryTimeout,
		MaxMessageLength: cfg.Telegram.MaxMessageLength,
		Concurrency:      cfg.Relay.MaxConcurrent,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return slackSrc.Start(gctx, queue)
	})
	g.Go(func() error {
		r.Run(gctx, queue)
		return nil
	})
	if cfg.Metrics.Listen != "" {
		srv := metrics.NewServer(m, metrics.ServerConfig{
			Listen: cfg.Metrics.Listen,
			Path:   cfg.Metrics.Path,
			Logger: logger,
		})
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	logger.Info("started", "channels", mapping.Len(), "version", version)

	runErr := g.Wait()
	if runErr != nil {
		logger.Error("relay stopped", "err", runErr)
	}
	logger.Info("shutting down, waiting for in-flight relays", "timeout", cfg.Relay.ShutdownTimeout)
	queue.Close()
	r.Drain(queue)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Relay.ShutdownTimeout)
	defer cancel()
	if err := r.Wait(shutdownCtx); err != nil {
		logger.Warn("shutdown timed out, abandoning in-flight relays", "err", err)
		return errors.Join(runErr, err)
	}

	logger.Info("shutdown complete")
	return runErr
}
