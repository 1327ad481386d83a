package domain

import "context"

// ConnectionState tracks the contact-center connection lifecycle.
type ConnectionState string

const (
	StateDisconnected    ConnectionState = "DISCONNECTED"
	StateConnecting      ConnectionState = "CONNECTING"
	StateConnected       ConnectionState = "CONNECTED"
	StateWaitingForAgent ConnectionState = "WAITING_FOR_AGENT"
	StateAgentConnected  ConnectionState = "AGENT_CONNECTED"
	StateError           ConnectionState = "ERROR"
)

// ChatSession holds the credentials for a live contact-center session.
// Owned by the Connect client; exposed read-only elsewhere.
type ChatSession struct {
	ContactID        string
	ParticipantToken string
	ConnectionToken  string
	WebsocketURL     string
}

// TranscriptEntry is one line of the virtual-agent transcript passed along
// at handover. Role is "customer" or "virtual_agent".
type TranscriptEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// HandoverContext carries the virtual-agent conversation to the human agent.
// Built once at escalation time and consumed by the auth call.
type HandoverContext struct {
	CustomerID   string            `json:"customerId"`
	CustomerName string            `json:"customerName"`
	Intent       string            `json:"intent"`
	Summary      string            `json:"summary"`
	Transcript   []TranscriptEntry `json:"transcript"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ConnectEvent is a closed set of events produced by the Connect client's
// frame classifier. Consumers should switch over all variants.
type ConnectEvent interface {
	connectEvent()
}

// MessageReceived carries a chat message from another participant.
type MessageReceived struct {
	ID              string
	Content         string
	ContentType     string
	ParticipantRole string
	DisplayName     string
	Timestamp       string
}

// ParticipantJoined signals a participant joining the contact.
type ParticipantJoined struct {
	ParticipantID   string
	ParticipantRole string
	DisplayName     string
}

// ParticipantLeft signals a participant leaving the contact.
type ParticipantLeft struct {
	ParticipantID   string
	ParticipantRole string
	DisplayName     string
}

// TypingIndicator signals another participant is typing.
type TypingIndicator struct {
	ParticipantRole string
	DisplayName     string
}

// ChatEnded signals the contact was ended remotely.
type ChatEnded struct{}

// ErrorEvent carries a connection or protocol error.
type ErrorEvent struct {
	Message string
	Cause   error
}

// Connected signals the streaming connection is established.
type Connected struct{}

// Disconnected signals the streaming connection is gone.
type Disconnected struct{}

func (MessageReceived) connectEvent()   {}
func (ParticipantJoined) connectEvent() {}
func (ParticipantLeft) connectEvent()   {}
func (TypingIndicator) connectEvent()   {}
func (ChatEnded) connectEvent()         {}
func (ErrorEvent) connectEvent()        {}
func (Connected) connectEvent()         {}
func (Disconnected) connectEvent()      {}

// TranscriptItem is one entry returned by the transcript-fetch endpoint.
type TranscriptItem struct {
	ID              string `json:"Id"`
	Content         string `json:"Content,omitempty"`
	ContentType     string `json:"ContentType"`
	ParticipantID   string `json:"ParticipantId,omitempty"`
	ParticipantRole string `json:"ParticipantRole,omitempty"`
	DisplayName     string `json:"DisplayName,omitempty"`
	AbsoluteTime    string `json:"AbsoluteTime"`
}

// ConnectChat is the interface the orchestration layer uses for the live
// handover session.
type ConnectChat interface {
	// StartHandover authenticates with the handover context, connects, and
	// injects the prior transcript. Fails the whole call on any step error.
	StartHandover(ctx context.Context, authAPIURL string, hctx HandoverContext) (*ChatSession, error)

	// ConnectWithToken exchanges a participant token for a live connection.
	ConnectWithToken(ctx context.Context, participantToken, region string) (*ChatSession, error)

	SendMessage(ctx context.Context, content, contentType string) error
	SendTypingIndicator(ctx context.Context) error
	GetTranscript(ctx context.Context, maxResults int) ([]TranscriptItem, error)

	// Disconnect tears the session down. Every cleanup step is best-effort.
	Disconnect(ctx context.Context) error

	Events() <-chan ConnectEvent
	State() ConnectionState
	Session() *ChatSession
	IsConnected() bool
}
