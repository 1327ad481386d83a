package store

import "connectchat/internal/domain"

// Action is a discrete state mutation request. The set is closed: only types
// in this file implement it, and the reducer matches all of them.
type Action interface {
	isAction()
}

// --- Message actions ---

type SendMessage struct{ Message domain.Message }

type ReceiveMessage struct{ Message domain.Message }

// ClearMessages drops history, keeping the newest KeepCount entries (or all
// of nothing when KeepCount is zero).
type ClearMessages struct{ KeepCount int }

// --- Identity actions ---

type SetCurrentUser struct{ User domain.User }

type SetAgentUser struct{ User domain.User }

// --- Connection actions ---

type SetConnectionState struct{ State domain.ConnectionState }

type SetChatMode struct{ Mode domain.ChatMode }

type SetChatSession struct{ Session domain.ChatSession }

// --- Typing ---

type SetAgentTyping struct{ IsTyping bool }

// --- Errors ---

type SetError struct{ Error string }

type ClearError struct{}

// --- Handover lifecycle ---

type InitiateHandover struct{}

type HandoverComplete struct{}

type EndChat struct{}

// --- AI agent actions ---

// AIProcessingStarted marks the start of a streaming AI turn and resets the
// stream buffer and suggested replies.
type AIProcessingStarted struct{}

// AIStreamDelta appends a streamed text delta to the buffer.
type AIStreamDelta struct{ Delta string }

// AIResponseComplete finalizes the buffered response into an assistant
// message (marker patterns stripped) and publishes stream metadata.
// MessageID and TimeMs are supplied by the dispatcher so the reducer stays
// deterministic under replay.
type AIResponseComplete struct {
	SuggestedReplies []string
	ShouldEscalate   bool
	EscalationReason string
	MessageID        string
	TimeMs           int64
}

type AIError struct{ Error string }

// ShowEscalationPrompt raises the escalation confirmation prompt.
type ShowEscalationPrompt struct{ Reason string }

// EscalationResponse records the user's answer to the escalation prompt.
// Confirmation moves the chat into CONNECTING_TO_AGENT; decline only clears
// the prompt.
type EscalationResponse struct{ Confirmed bool }

type ClearAIBuffer struct{}

type SetQuickReplies struct{ Replies []string }

// AIProviderChanged records a provider switch (fallback triggered).
type AIProviderChanged struct{ Provider string }

func (SendMessage) isAction()          {}
func (ReceiveMessage) isAction()       {}
func (ClearMessages) isAction()        {}
func (SetCurrentUser) isAction()       {}
func (SetAgentUser) isAction()         {}
func (SetConnectionState) isAction()   {}
func (SetChatMode) isAction()          {}
func (SetChatSession) isAction()       {}
func (SetAgentTyping) isAction()       {}
func (SetError) isAction()             {}
func (ClearError) isAction()           {}
func (InitiateHandover) isAction()     {}
func (HandoverComplete) isAction()     {}
func (EndChat) isAction()              {}
func (AIProcessingStarted) isAction()  {}
func (AIStreamDelta) isAction()        {}
func (AIResponseComplete) isAction()   {}
func (AIError) isAction()              {}
func (ShowEscalationPrompt) isAction() {}
func (EscalationResponse) isAction()   {}
func (ClearAIBuffer) isAction()        {}
func (SetQuickReplies) isAction()      {}
func (AIProviderChanged) isAction()    {}
