package config

import "time"

func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			MaxMessageLength: 4096,
		},
		ChannelMappings: map[string]string{},
		Relay: RelayConfig{
			LookupTimeout:   5 * time.Second,
			DeliveryTimeout: 15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxConcurrent:   5,
			QueueSize:       100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}
