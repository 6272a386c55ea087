package config

// Sanitize returns a copy of the config with sensitive values masked.
func Sanitize(cfg *Config) *Config {
	c := *cfg
	c.ChannelMappings = make(map[string]string, len(cfg.ChannelMappings))
	for k, v := range cfg.ChannelMappings {
		c.ChannelMappings[k] = v
	}

	c.Slack.AppToken = maskString(c.Slack.AppToken)
	c.Slack.BotToken = maskString(c.Slack.BotToken)
	c.Telegram.BotToken = maskString(c.Telegram.BotToken)
	return &c
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
