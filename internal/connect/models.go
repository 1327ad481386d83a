package connect

import (
	"encoding/json"

	"connectchat/internal/domain"
)

// Contact-center content types carried in events and transcript items.
const (
	ContentTypeText     = "text/plain"
	ContentTypeMarkdown = "text/markdown"
	contentTypeTyping   = "application/vnd.amazonaws.connect.event.typing"
)

// --- Auth API ---

type startChatRequest struct {
	ParticipantDetails participantDetails `json:"ParticipantDetails"`
	Attributes         map[string]string  `json:"Attributes,omitempty"`
}

type participantDetails struct {
	DisplayName string `json:"DisplayName"`
}

type startChatResponse struct {
	Data startChatData `json:"data"`
}

type startChatData struct {
	StartChatResult startChatResult `json:"startChatResult"`
}

type startChatResult struct {
	ContactID        string `json:"ContactId"`
	ParticipantID    string `json:"ParticipantId"`
	ParticipantToken string `json:"ParticipantToken"`
}

// --- Participant API ---

type createConnectionRequest struct {
	Type []string `json:"Type"`
}

type createConnectionResponse struct {
	ConnectionCredentials *connectionCredentials `json:"ConnectionCredentials,omitempty"`
	Websocket             *websocketInfo         `json:"Websocket,omitempty"`
}

type connectionCredentials struct {
	ConnectionToken string `json:"ConnectionToken"`
	Expiry          string `json:"Expiry,omitempty"`
}

type websocketInfo struct {
	URL              string `json:"Url"`
	ConnectionExpiry string `json:"ConnectionExpiry,omitempty"`
}

type sendMessageRequest struct {
	ConnectionToken string `json:"ConnectionToken"`
	Content         string `json:"Content"`
	ContentType     string `json:"ContentType"`
}

type sendEventRequest struct {
	ContentType string `json:"ContentType"`
}

type getTranscriptRequest struct {
	MaxResults int    `json:"MaxResults"`
	SortOrder  string `json:"SortOrder"`
	NextToken  string `json:"NextToken,omitempty"`
}

type getTranscriptResponse struct {
	Transcript []domain.TranscriptItem `json:"Transcript"`
	NextToken  string                  `json:"NextToken,omitempty"`
}

// --- Streaming protocol frames ---

// wsEnvelope is the outer frame on the streaming transport. For the
// "aws/chat" topic the content is a JSON-encoded string holding the inner
// message; other topics carry objects, so content stays raw until the topic
// is known.
type wsEnvelope struct {
	Topic   string          `json:"topic"`
	Content json.RawMessage `json:"content,omitempty"`
}

// wsMessage is the inner contact-center message (capitalized field names).
type wsMessage struct {
	Type            string `json:"Type,omitempty"`
	ContentType     string `json:"ContentType,omitempty"`
	ID              string `json:"Id,omitempty"`
	Content         string `json:"Content,omitempty"`
	ParticipantID   string `json:"ParticipantId,omitempty"`
	ParticipantRole string `json:"ParticipantRole,omitempty"`
	DisplayName     string `json:"DisplayName,omitempty"`
	AbsoluteTime    string `json:"AbsoluteTime,omitempty"`
}

// Control frames sent on the streaming transport.
const (
	subscribeFrame = `{"topic":"aws/subscribe","content":{"topics":["aws/chat"]}}`
	heartbeatFrame = `{"topic":"aws/heartbeat","content":{"eventType":"heartbeat"}}`
)
