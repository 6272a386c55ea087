package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for slackgram.
type Config struct {
	Slack           SlackConfig       `yaml:"slack"`
	Telegram        TelegramConfig    `yaml:"telegram"`
	ChannelMappings map[string]string `yaml:"channel_mappings"`
	Relay           RelayConfig       `yaml:"relay"`
	Log             LogConfig         `yaml:"log"`
	Metrics         MetricsConfig     `yaml:"metrics"`
	Journal         JournalConfig     `yaml:"journal"`
	Debug           bool              `yaml:"debug"`
}

type SlackConfig struct {
	AppToken string `yaml:"app_token"` // xapp-..., required for Socket Mode
	BotToken string `yaml:"bot_token"` // xoxb-...
}

type TelegramConfig struct {
	BotToken         string `yaml:"bot_token"`
	MaxMessageLength int    `yaml:"max_message_length"`
}

// RelayConfig tunes the relay pipeline.
type RelayConfig struct {
	LookupTimeout   time.Duration `yaml:"lookup_timeout"`   // bound on users.info
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"` // bound on sendMessage
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // grace period for in-flight relays
	MaxConcurrent   int           `yaml:"max_concurrent"`
	QueueSize       int           `yaml:"queue_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// MetricsConfig configures the Prometheus endpoint. Empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// JournalConfig configures the SQLite relay journal. Empty Path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "config.yaml"

// DotEnvFile is read from the config file's directory before expansion.
const DotEnvFile = ".env"

// Load reads, expands and validates the config file at path.
// Variables from a .env file next to it are added to the environment first;
// variables already set are left alone.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), DotEnvFile)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadDotEnv applies envPath if it exists. godotenv.Load never overrides.
func loadDotEnv(envPath string) error {
	if _, err := os.Stat(envPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot stat %s: %w", envPath, err)
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("cannot load %s: %w", envPath, err)
	}
	return nil
}

// Parse decodes YAML config data on top of Defaults.
// Environment variables are substituted in every scalar value, so a
// variable holding YAML syntax cannot change the document structure.
func Parse(data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	cfg := Defaults()
	if root.Kind == 0 {
		// empty document
		return cfg, nil
	}
	expandNode(&root)
	if err := root.Decode(cfg); err != nil {
		return nil, err
	}

	cfg.Journal.Path = ExpandPath(cfg.Journal.Path)
	if debugFromEnv() {
		cfg.Debug = true
	}
	return cfg, nil
}

func expandNode(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		expanded := ExpandEnvVars(n.Value)
		if expanded != n.Value {
			n.Value = expanded
			// keep expanded values as plain strings; the target field type decides
			n.Tag = ""
			n.Style = 0
		}
		return
	}
	for _, c := range n.Content {
		expandNode(c)
	}
}

// debugFromEnv reports whether APP_DEBUG enables debug mode.
func debugFromEnv() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_DEBUG"))) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Slack.AppToken == "" || envVarPattern.MatchString(cfg.Slack.AppToken) {
		errs = append(errs, "slack.app_token is required")
	} else if !strings.HasPrefix(cfg.Slack.AppToken, "xapp-") {
		errs = append(errs, "slack.app_token must be an app-level token (xapp-...)")
	}
	if cfg.Slack.BotToken == "" || envVarPattern.MatchString(cfg.Slack.BotToken) {
		errs = append(errs, "slack.bot_token is required")
	}
	if cfg.Telegram.BotToken == "" || envVarPattern.MatchString(cfg.Telegram.BotToken) {
		errs = append(errs, "telegram.bot_token is required")
	}
	if cfg.Telegram.MaxMessageLength < 64 || cfg.Telegram.MaxMessageLength > 4096 {
		errs = append(errs, "telegram.max_message_length must be between 64 and 4096")
	}

	if len(cfg.ChannelMappings) == 0 {
		errs = append(errs, "channel_mappings must contain at least one channel")
	}
	for src, dst := range cfg.ChannelMappings {
		if strings.TrimSpace(src) == "" {
			errs = append(errs, "channel_mappings: empty Slack channel ID")
		}
		if strings.TrimSpace(dst) == "" {
			errs = append(errs, fmt.Sprintf("channel_mappings.%s: empty Telegram chat ID", src))
		}
	}

	if cfg.Relay.LookupTimeout <= 0 {
		errs = append(errs, "relay.lookup_timeout must be > 0")
	}
	if cfg.Relay.DeliveryTimeout <= 0 {
		errs = append(errs, "relay.delivery_timeout must be > 0")
	}
	if cfg.Relay.ShutdownTimeout <= 0 {
		errs = append(errs, "relay.shutdown_timeout must be > 0")
	}
	if cfg.Relay.MaxConcurrent < 1 || cfg.Relay.MaxConcurrent > 100 {
		errs = append(errs, "relay.max_concurrent must be between 1 and 100")
	}
	if cfg.Relay.QueueSize < 1 {
		errs = append(errs, "relay.queue_size must be >= 1")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "log.level must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Format {
	case "text", "json":
		// valid
	default:
		errs = append(errs, "log.format must be one of: text, json")
	}
	if cfg.Metrics.Listen != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
