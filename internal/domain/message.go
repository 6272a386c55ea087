package domain

// InboundEvent is one message notification received from Slack.
type InboundEvent struct {
	Channel     string
	User        string // human sender, empty for integrations
	BotID       string // automated sender, empty for people
	Username    string // display name set by integrations (bot_message)
	Text        string
	SubType     string
	Attachments []Attachment
	Blocks      []Block
}

// Attachment is a legacy Slack message attachment, reduced to the fields the relay renders.
type Attachment struct {
	Title      string
	Text       string
	Fallback   string
	AuthorName string
}

// Block is a structured layout block. Only Type and its plain text are kept.
type Block struct {
	Type string
	Text string
}

// FirstAttachment returns the first attachment, if any.
func (e InboundEvent) FirstAttachment() (Attachment, bool) {
	if len(e.Attachments) == 0 {
		return Attachment{}, false
	}
	return e.Attachments[0], true
}
