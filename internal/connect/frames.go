package connect

import (
	"encoding/json"
	"strings"

	"connectchat/internal/domain"
)

// handleFrame unwraps one inbound text frame. Unrecognized or malformed
// frames are dropped with a log line; frame handling never fails the
// connection.
func (c *Client) handleFrame(data []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	switch env.Topic {
	case "aws/chat":
		// Content is a JSON-encoded string wrapping the inner message.
		var inner string
		if err := json.Unmarshal(env.Content, &inner); err != nil {
			c.logger.Warn("dropping chat frame with non-string content", "error", err)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal([]byte(inner), &msg); err != nil {
			c.logger.Warn("dropping undecodable chat message", "error", err)
			return
		}
		c.handleChatMessage(msg)

	case "aws/subscribe":
		c.logger.Debug("subscribe acknowledged")

	case "aws/heartbeat":
		// Heartbeat response; connection is alive.

	default:
		c.logger.Debug("ignoring frame with unknown topic", "topic", env.Topic)
	}
}

// handleChatMessage classifies an inner message by content type and emits
// the corresponding event. An AGENT join moves the connection to
// AGENT_CONNECTED; a chat-ended message forces DISCONNECTED.
func (c *Client) handleChatMessage(msg wsMessage) {
	contentType := msg.ContentType

	switch {
	case strings.Contains(contentType, "participant.joined"):
		c.emit(domain.ParticipantJoined{
			ParticipantID:   msg.ParticipantID,
			ParticipantRole: msg.ParticipantRole,
			DisplayName:     msg.DisplayName,
		})
		if msg.ParticipantRole == "AGENT" {
			c.setState(domain.StateAgentConnected)
		}

	case strings.Contains(contentType, "participant.left"):
		c.emit(domain.ParticipantLeft{
			ParticipantID:   msg.ParticipantID,
			ParticipantRole: msg.ParticipantRole,
			DisplayName:     msg.DisplayName,
		})

	case strings.Contains(contentType, "typing"):
		c.emit(domain.TypingIndicator{
			ParticipantRole: msg.ParticipantRole,
			DisplayName:     msg.DisplayName,
		})

	case strings.Contains(contentType, "chat.ended"):
		c.emit(domain.ChatEnded{})
		c.setState(domain.StateDisconnected)

	case msg.Type == "MESSAGE" || contentType == ContentTypeText || contentType == ContentTypeMarkdown:
		if contentType == "" {
			contentType = ContentTypeText
		}
		c.emit(domain.MessageReceived{
			ID:              msg.ID,
			Content:         msg.Content,
			ContentType:     contentType,
			ParticipantRole: msg.ParticipantRole,
			DisplayName:     msg.DisplayName,
			Timestamp:       msg.AbsoluteTime,
		})

	default:
		c.logger.Debug("unhandled chat message",
			"type", msg.Type,
			"contentType", contentType,
		)
	}
}
