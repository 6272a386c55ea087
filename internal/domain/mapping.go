package domain

// ChannelMapping pairs Slack channel IDs with Telegram chat IDs.
// It is built once at startup and never modified, so it is safe for concurrent reads.
type ChannelMapping struct {
	routes map[string]string
}

// NewChannelMapping copies m into a read-only mapping.
func NewChannelMapping(m map[string]string) ChannelMapping {
	routes := make(map[string]string, len(m))
	for src, dst := range m {
		routes[src] = dst
	}
	return ChannelMapping{routes: routes}
}

// Lookup returns the destination chat for a Slack channel.
func (m ChannelMapping) Lookup(channel string) (string, bool) {
	chatID, ok := m.routes[channel]
	if !ok || chatID == "" {
		return "", false
	}
	return chatID, true
}

// Len returns the number of mapped channels.
func (m ChannelMapping) Len() int { return len(m.routes) }
