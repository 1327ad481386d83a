package store

import (
	"connectchat/internal/domain"
)

// Reduce computes the next state from the current state and an action. It is
// pure: no side effects, deterministic, safe to replay.
func Reduce(state ChatState, action Action) ChatState {
	switch a := action.(type) {
	case SendMessage:
		state.Messages = appendCapped(state.Messages, a.Message)

	case ReceiveMessage:
		state.Messages = appendCapped(state.Messages, a.Message)
		state.IsAgentTyping = false

	case ClearMessages:
		if a.KeepCount > 0 && a.KeepCount < len(state.Messages) {
			kept := state.Messages[len(state.Messages)-a.KeepCount:]
			state.Messages = append([]domain.Message(nil), kept...)
		} else if a.KeepCount <= 0 {
			state.Messages = nil
		}

	case SetCurrentUser:
		u := a.User
		state.CurrentUser = &u

	case SetAgentUser:
		u := a.User
		state.AgentUser = &u

	case SetConnectionState:
		state.ConnectionState = a.State

	case SetChatMode:
		state.ChatMode = a.Mode

	case SetChatSession:
		s := a.Session
		state.ChatSession = &s

	case SetAgentTyping:
		state.IsAgentTyping = a.IsTyping

	case SetError:
		state.Error = a.Error

	case ClearError:
		state.Error = ""

	case InitiateHandover:
		state.ChatMode = domain.ModeConnectingToAgent
		state.ConnectionState = domain.StateConnecting

	case HandoverComplete:
		state.ChatMode = domain.ModeHumanAgent
		state.ConnectionState = domain.StateAgentConnected

	case EndChat:
		state.ChatMode = domain.ModeEnded
		state.ConnectionState = domain.StateDisconnected

	case AIProcessingStarted:
		state.IsAIProcessing = true
		state.AIStreamBuffer = ""
		state.SuggestedReplies = nil
		state.Error = ""

	case AIStreamDelta:
		state.AIStreamBuffer += a.Delta

	case AIResponseComplete:
		msg := domain.Message{
			ID:     a.MessageID,
			User:   state.VirtualAgentUser,
			Text:   domain.StripControlMarkers(state.AIStreamBuffer),
			TimeMs: a.TimeMs,
		}
		state.Messages = appendCapped(state.Messages, msg)
		state.IsAIProcessing = false
		state.AIStreamBuffer = ""
		state.SuggestedReplies = a.SuggestedReplies
		state.ShowEscalationPrompt = a.ShouldEscalate
		state.EscalationReason = a.EscalationReason

	case AIError:
		state.IsAIProcessing = false
		state.Error = a.Error
		state.AIStreamBuffer = ""

	case ShowEscalationPrompt:
		state.ShowEscalationPrompt = true
		state.EscalationReason = a.Reason

	case EscalationResponse:
		if a.Confirmed {
			state.ShowEscalationPrompt = false
			state.ChatMode = domain.ModeConnectingToAgent
			state.ConnectionState = domain.StateConnecting
		} else {
			state.ShowEscalationPrompt = false
			state.EscalationReason = ""
		}

	case ClearAIBuffer:
		state.AIStreamBuffer = ""

	case SetQuickReplies:
		state.SuggestedReplies = a.Replies

	case AIProviderChanged:
		state.CurrentAIProvider = a.Provider
	}

	return state
}
