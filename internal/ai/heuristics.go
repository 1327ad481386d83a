package ai

import (
	"fmt"
	"strings"

	"connectchat/internal/domain"
)

// Keyword lists for the local sentiment heuristic. Matching is literal
// substring matching over the concatenated lowercase user text.
var (
	negativeIndicators = []string{
		"frustrated", "angry", "upset", "terrible", "awful",
		"hate", "horrible", "worst", "unacceptable", "ridiculous",
	}
	positiveIndicators = []string{
		"thanks", "thank you", "great", "awesome", "perfect",
		"excellent", "wonderful", "appreciate", "helpful", "good",
	}
)

const noMessagesSummary = "New conversation, no messages exchanged yet."

// LocalSummary builds a best-effort summary from the message history when
// the remote summarize call is unavailable.
func LocalSummary(convCtx domain.ConversationContext) string {
	var userMessages []domain.ConversationMessage
	for _, m := range convCtx.Messages {
		if m.Role == domain.ConvRoleUser {
			userMessages = append(userMessages, m)
		}
	}
	if len(userMessages) == 0 {
		return noMessagesSummary
	}

	recent := userMessages
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	topics := make([]string, 0, len(recent))
	for _, m := range recent {
		content := m.Content
		if len(content) > 50 {
			content = content[:50] + "..."
		}
		topics = append(topics, content)
	}

	return fmt.Sprintf("Customer had %d messages. Recent topics: %s",
		len(userMessages), strings.Join(topics, "; "))
}

// LocalSentiment classifies sentiment from fixed keyword lists when the
// remote sentiment call is unavailable. More than two negative matches reads
// as frustrated; otherwise the dominant polarity wins.
func LocalSentiment(convCtx domain.ConversationContext) domain.SentimentResult {
	var parts []string
	for _, m := range convCtx.Messages {
		if m.Role == domain.ConvRoleUser {
			parts = append(parts, strings.ToLower(m.Content))
		}
	}
	userText := strings.Join(parts, " ")

	negativeCount := 0
	for _, kw := range negativeIndicators {
		if strings.Contains(userText, kw) {
			negativeCount++
		}
	}
	positiveCount := 0
	for _, kw := range positiveIndicators {
		if strings.Contains(userText, kw) {
			positiveCount++
		}
	}

	var sentiment string
	var confidence float64
	switch {
	case negativeCount > 2:
		sentiment, confidence = domain.SentimentFrustrated, 0.8
	case negativeCount > positiveCount:
		sentiment, confidence = domain.SentimentNegative, 0.6
	case positiveCount > negativeCount:
		sentiment, confidence = domain.SentimentPositive, 0.6
	default:
		sentiment, confidence = domain.SentimentNeutral, 0.5
	}

	var indicators []string
	for _, kw := range append(append([]string{}, negativeIndicators...), positiveIndicators...) {
		if strings.Contains(userText, kw) {
			indicators = append(indicators, kw)
		}
	}

	return domain.SentimentResult{
		Sentiment:  sentiment,
		Confidence: confidence,
		Indicators: indicators,
	}
}
