package store

import (
	"reflect"
	"strconv"
	"testing"

	"connectchat/internal/domain"
)

func customerMsg(id, text string) domain.Message {
	return domain.Message{
		ID:     id,
		User:   domain.User{Name: "Alice", Role: domain.RoleCustomer},
		Text:   text,
		TimeMs: 1000,
	}
}

func TestReduce_SendAndReceiveMessages(t *testing.T) {
	state := NewChatState()
	state = Reduce(state, SendMessage{Message: customerMsg("m1", "hello")})
	state = Reduce(state, ReceiveMessage{Message: domain.Message{
		ID: "m2", User: state.VirtualAgentUser, Text: "hi", TimeMs: 2000,
	}})

	if len(state.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(state.Messages))
	}
	if state.Messages[0].ID != "m1" || state.Messages[1].ID != "m2" {
		t.Fatalf("messages out of order: %v", state.Messages)
	}
}

func TestReduce_ReceiveMessageClearsTyping(t *testing.T) {
	state := NewChatState()
	state = Reduce(state, SetAgentTyping{IsTyping: true})
	if !state.IsAgentTyping {
		t.Fatal("expected typing set")
	}
	state = Reduce(state, ReceiveMessage{Message: customerMsg("m1", "here")})
	if state.IsAgentTyping {
		t.Fatal("typing should clear when a message arrives")
	}
}

func TestReduce_MessageListCapped(t *testing.T) {
	state := NewChatState()
	for i := 0; i < MaxMessages+25; i++ {
		state = Reduce(state, SendMessage{Message: customerMsg(strconv.Itoa(i), "x")})
	}
	if len(state.Messages) != MaxMessages {
		t.Fatalf("expected %d messages, got %d", MaxMessages, len(state.Messages))
	}
	// Oldest evicted first: the first surviving message is number 25.
	if state.Messages[0].ID != strconv.Itoa(25) {
		t.Fatalf("expected oldest surviving message %q, got %q", strconv.Itoa(25), state.Messages[0].ID)
	}
}

func TestReduce_AIStreamingLifecycle(t *testing.T) {
	state := NewChatState()
	state = Reduce(state, AIProcessingStarted{})
	if !state.IsAIProcessing || state.AIStreamBuffer != "" {
		t.Fatalf("bad processing start state: %+v", state)
	}

	state = Reduce(state, AIStreamDelta{Delta: "Sure, "})
	state = Reduce(state, AIStreamDelta{Delta: "I can help."})
	if state.AIStreamBuffer != "Sure, I can help." {
		t.Fatalf("buffer = %q", state.AIStreamBuffer)
	}

	state = Reduce(state, AIResponseComplete{
		SuggestedReplies: []string{"Yes", "No"},
		MessageID:        "ai-1",
		TimeMs:           5000,
	})
	if state.IsAIProcessing {
		t.Fatal("processing should end on completion")
	}
	if state.AIStreamBuffer != "" {
		t.Fatal("buffer should reset on completion")
	}
	last := state.Messages[len(state.Messages)-1]
	if last.ID != "ai-1" || last.Text != "Sure, I can help." || last.TimeMs != 5000 {
		t.Fatalf("unexpected finalized message: %+v", last)
	}
	if last.User.Role != domain.RoleVirtualAgent {
		t.Fatalf("finalized message role = %q", last.User.Role)
	}
	if !reflect.DeepEqual(state.SuggestedReplies, []string{"Yes", "No"}) {
		t.Fatalf("suggested replies = %v", state.SuggestedReplies)
	}
}

func TestReduce_CompletionStripsControlMarkers(t *testing.T) {
	state := NewChatState()
	state = Reduce(state, AIProcessingStarted{})
	state = Reduce(state, AIStreamDelta{
		Delta: "Let me connect you. [ESCALATE: refund request] [QUICK_REPLIES: Yes | No]",
	})
	state = Reduce(state, AIResponseComplete{
		ShouldEscalate:   true,
		EscalationReason: "refund request",
		MessageID:        "ai-1",
		TimeMs:           1,
	})

	last := state.Messages[len(state.Messages)-1]
	if last.Text != "Let me connect you." {
		t.Fatalf("markers not stripped: %q", last.Text)
	}
	if !state.ShowEscalationPrompt || state.EscalationReason != "refund request" {
		t.Fatalf("escalation not raised: %+v", state)
	}
}

func TestReduce_AIErrorEndsProcessing(t *testing.T) {
	state := NewChatState()
	state = Reduce(state, AIProcessingStarted{})
	state = Reduce(state, AIStreamDelta{Delta: "partial"})
	state = Reduce(state, AIError{Error: "AI service unavailable"})

	if state.IsAIProcessing {
		t.Fatal("processing should end on error")
	}
	if state.AIStreamBuffer != "" {
		t.Fatal("buffer should reset on error")
	}
	if state.Error != "AI service unavailable" {
		t.Fatalf("error = %q", state.Error)
	}
	if len(state.Messages) != 0 {
		t.Fatalf("no message should be finalized on error, got %d", len(state.Messages))
	}
}

func TestReduce_EscalationResponse(t *testing.T) {
	state := NewChatState()
	state = Reduce(state, ShowEscalationPrompt{Reason: "billing dispute"})

	confirmed := Reduce(state, EscalationResponse{Confirmed: true})
	if confirmed.ShowEscalationPrompt {
		t.Fatal("prompt should clear on confirm")
	}
	if confirmed.ChatMode != domain.ModeConnectingToAgent {
		t.Fatalf("mode = %q", confirmed.ChatMode)
	}
	if confirmed.ConnectionState != domain.StateConnecting {
		t.Fatalf("connection state = %q", confirmed.ConnectionState)
	}

	declined := Reduce(state, EscalationResponse{Confirmed: false})
	if declined.ShowEscalationPrompt || declined.EscalationReason != "" {
		t.Fatalf("decline should only clear the prompt: %+v", declined)
	}
	if declined.ChatMode != domain.ModeVirtualAgent {
		t.Fatalf("decline must not change mode, got %q", declined.ChatMode)
	}
}

func TestReduce_HandoverLifecycle(t *testing.T) {
	state := NewChatState()
	state = Reduce(state, InitiateHandover{})
	if state.ChatMode != domain.ModeConnectingToAgent || state.ConnectionState != domain.StateConnecting {
		t.Fatalf("after initiate: %+v", state)
	}
	state = Reduce(state, HandoverComplete{})
	if state.ChatMode != domain.ModeHumanAgent || state.ConnectionState != domain.StateAgentConnected {
		t.Fatalf("after complete: %+v", state)
	}
	state = Reduce(state, EndChat{})
	if state.ChatMode != domain.ModeEnded || state.ConnectionState != domain.StateDisconnected {
		t.Fatalf("after end: %+v", state)
	}
}

func TestReduce_DeterministicReplay(t *testing.T) {
	actions := []Action{
		SetCurrentUser{User: domain.User{Name: "Alice", Role: domain.RoleCustomer}},
		SendMessage{Message: customerMsg("m1", "I want a refund")},
		AIProcessingStarted{},
		AIStreamDelta{Delta: "I understand. [ESCALATE: refund]"},
		AIResponseComplete{ShouldEscalate: true, EscalationReason: "refund", MessageID: "ai-1", TimeMs: 42},
		EscalationResponse{Confirmed: true},
		SetAgentUser{User: domain.User{Name: "Bob", Role: domain.RoleHumanAgent}},
		HandoverComplete{},
	}

	run := func() ChatState {
		state := NewChatState()
		for _, a := range actions {
			state = Reduce(state, a)
		}
		return state
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replay diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestReduce_ClearMessagesKeepCount(t *testing.T) {
	state := NewChatState()
	for i := 0; i < 10; i++ {
		state = Reduce(state, SendMessage{Message: customerMsg(strconv.Itoa(i), "x")})
	}

	kept := Reduce(state, ClearMessages{KeepCount: 3})
	if len(kept.Messages) != 3 || kept.Messages[0].ID != "7" {
		t.Fatalf("keep 3: %v", kept.Messages)
	}

	cleared := Reduce(state, ClearMessages{})
	if len(cleared.Messages) != 0 {
		t.Fatalf("expected empty, got %d", len(cleared.Messages))
	}
}
