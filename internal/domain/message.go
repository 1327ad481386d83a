package domain

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRole identifies who authored a message.
type ParticipantRole string

const (
	RoleCustomer     ParticipantRole = "customer"
	RoleVirtualAgent ParticipantRole = "virtual_agent"
	RoleHumanAgent   ParticipantRole = "human_agent"
	RoleSystem       ParticipantRole = "system"
)

// ChatMode determines who the customer is currently talking to.
type ChatMode string

const (
	ModeVirtualAgent      ChatMode = "VIRTUAL_AGENT"
	ModeConnectingToAgent ChatMode = "CONNECTING_TO_AGENT"
	ModeHumanAgent        ChatMode = "HUMAN_AGENT"
	ModeEnded             ChatMode = "ENDED"
)

// User is a participant in the chat (customer, agent, or virtual agent).
type User struct {
	Name    string
	Role    ParticipantRole
	Picture string
}

// Message is a single chat message. Messages are immutable once created.
type Message struct {
	ID     string
	User   User
	Text   string
	TimeMs int64
}

// NewMessage creates a message stamped with the current time and a fresh ID.
func NewMessage(user User, text string) Message {
	return Message{
		ID:     uuid.NewString(),
		User:   user,
		Text:   text,
		TimeMs: time.Now().UnixMilli(),
	}
}

// Conversation roles used when building provider-facing context.
const (
	ConvRoleUser      = "user"
	ConvRoleAssistant = "assistant"
	ConvRoleSystem    = "system"
)

// ConversationMessage is one entry of the context window sent to an AI provider.
type ConversationMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ConversationContext is the full conversation history plus session metadata
// handed to the AI client for a chat turn.
type ConversationContext struct {
	Messages     []ConversationMessage `json:"messages"`
	SessionID    string                `json:"sessionId"`
	CustomerID   string                `json:"customerId,omitempty"`
	CustomerName string                `json:"customerName,omitempty"`
	Metadata     map[string]string     `json:"metadata,omitempty"`
}
