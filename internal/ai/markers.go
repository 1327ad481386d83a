package ai

import (
	"regexp"
	"strings"
)

// The model signals escalation and quick replies with in-band markers in its
// free-form text. There are no escaping rules for literal brackets, so a
// marker-shaped substring in legitimate content is indistinguishable from a
// real marker; this is a known limitation of the protocol.
var (
	escalatePattern     = regexp.MustCompile(`\[ESCALATE:\s*([^\]]+)\]`)
	quickRepliesPattern = regexp.MustCompile(`\[QUICK_REPLIES:\s*([^\]]+)\]`)
)

// markerState accumulates control markers detected while a response streams.
type markerState struct {
	shouldEscalate   bool
	escalationReason string
	suggestedReplies []string
}

// scan inspects the full accumulated response text for markers. Called after
// every delta so a marker split across chunks is still caught once complete.
func (m *markerState) scan(full string) {
	if match := escalatePattern.FindStringSubmatch(full); match != nil {
		m.shouldEscalate = true
		m.escalationReason = strings.TrimSpace(match[1])
	}
	if match := quickRepliesPattern.FindStringSubmatch(full); match != nil {
		m.suggestedReplies = splitQuickReplies(match[1])
	}
}

// splitQuickReplies parses the pipe-delimited option list. Empty options and
// options of 50+ characters are discarded.
func splitQuickReplies(raw string) []string {
	var replies []string
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part == "" || len(part) >= 50 {
			continue
		}
		replies = append(replies, part)
	}
	return replies
}
