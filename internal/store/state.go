package store

import "connectchat/internal/domain"

// MaxMessages caps the message list. Oldest messages are evicted first.
const MaxMessages = 200

// ChatState is the single source of truth for one conversation. It is only
// ever modified by the reducer; everything else sees immutable snapshots.
type ChatState struct {
	Messages         []domain.Message
	ChatMode         domain.ChatMode
	ConnectionState  domain.ConnectionState
	CurrentUser      *domain.User
	AgentUser        *domain.User
	VirtualAgentUser domain.User
	IsAgentTyping    bool
	Error            string
	ChatSession      *domain.ChatSession

	// AI is currently processing/streaming a response.
	IsAIProcessing bool
	// Buffer for streaming AI response text. Non-empty only while
	// IsAIProcessing is true.
	AIStreamBuffer string
	// Suggested quick replies from the AI.
	SuggestedReplies []string
	// Escalation confirmation prompt is pending.
	ShowEscalationPrompt bool
	EscalationReason     string
	// Current AI provider (claude/openai).
	CurrentAIProvider string
}

// NewChatState returns the initial state for a fresh conversation.
func NewChatState() ChatState {
	return ChatState{
		ChatMode:        domain.ModeVirtualAgent,
		ConnectionState: domain.StateDisconnected,
		VirtualAgentUser: domain.User{
			Name: "Virtual Assistant",
			Role: domain.RoleVirtualAgent,
		},
		CurrentAIProvider: domain.ProviderClaude,
	}
}

// appendCapped returns a new slice with msg appended and the oldest entries
// evicted past MaxMessages. The input slice is never mutated so snapshots
// handed to subscribers stay stable.
func appendCapped(messages []domain.Message, msg domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(messages)+1)
	out = append(out, messages...)
	out = append(out, msg)
	if len(out) > MaxMessages {
		out = out[len(out)-MaxMessages:]
	}
	return out
}
