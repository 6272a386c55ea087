package relay

import (
	"strings"

	"slackgram/internal/domain"
)

const pinMarker = "📌 "

// separator divides the message body from each rendered attachment.
var separator = strings.Repeat("─", 30)

// Normalize flattens the message text and its attachments into one text block.
// An event without renderable attachments yields its raw text unchanged.
func Normalize(ev domain.InboundEvent) string {
	var sb strings.Builder
	sb.WriteString(ev.Text)
	for _, att := range ev.Attachments {
		rendered := renderAttachment(att)
		if rendered == "" {
			continue
		}
		sb.WriteString("\n\n")
		sb.WriteString(separator)
		sb.WriteString("\n\n")
		sb.WriteString(rendered)
	}
	return sb.String()
}

// renderAttachment renders title and body, or the fallback text when both are empty.
func renderAttachment(att domain.Attachment) string {
	title := strings.TrimSpace(att.Title)
	text := strings.TrimSpace(att.Text)

	var parts []string
	if title != "" {
		parts = append(parts, pinMarker+title)
	}
	if text != "" {
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return strings.TrimSpace(att.Fallback)
	}
	return strings.Join(parts, "\n")
}
