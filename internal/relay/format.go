package relay

import (
	"html"
	"strings"
	"unicode/utf16"
)

const (
	// DefaultMaxMessageLength is Telegram's sendMessage limit.
	DefaultMaxMessageLength = 4096
	continuationMarker      = "..."
)

// Formatter renders a sender label and message text as Telegram HTML.
// Lengths are measured in UTF-16 code units, the unit of Telegram's limit.
type Formatter struct {
	maxLen int
}

func NewFormatter(maxLen int) *Formatter {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	return &Formatter{maxLen: maxLen}
}

// Format escapes label and text and joins them as "<b>label</b>:\ntext".
// An empty label renders the text alone. Over-long output is cut inside the
// text region only and ends with a continuation marker.
func (f *Formatter) Format(label, text string) string {
	var header string
	if label != "" {
		header = "<b>" + html.EscapeString(label) + "</b>:\n"
	}
	body := html.EscapeString(text)

	if textLen(header)+textLen(body) <= f.maxLen {
		return header + body
	}

	markerLen := textLen(continuationMarker)
	budget := f.maxLen - textLen(header) - markerLen
	if budget <= 0 {
		// the label alone does not fit, keep the text instead
		header = ""
		if textLen(body) <= f.maxLen {
			return body
		}
		budget = f.maxLen - markerLen
	}
	return header + cutEscaped(body, budget) + continuationMarker
}

// textLen returns the length of s in UTF-16 code units.
func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += runeLen(r)
	}
	return n
}

// runeLen is utf16.RuneLen with invalid runes counted as U+FFFD.
func runeLen(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// cutEscaped returns the longest prefix of s that fits in n UTF-16 units
// without splitting a character or an HTML entity.
func cutEscaped(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	end := len(s)
	for i, r := range s {
		if count+runeLen(r) > n {
			end = i
			break
		}
		count += runeLen(r)
	}
	cut := s[:end]

	// an entity cut in half would be rejected by Telegram's HTML parser
	if amp := strings.LastIndexByte(cut, '&'); amp >= 0 && !strings.Contains(cut[amp:], ";") {
		cut = cut[:amp]
	}
	return cut
}
