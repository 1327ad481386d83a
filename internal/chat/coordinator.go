// Package chat orchestrates one conversation: routing customer input to the
// virtual agent or the human agent, pumping Connect events into the store,
// and driving the escalation handover.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"connectchat/internal/domain"
	"connectchat/internal/store"
)

const (
	welcomeText   = "Hello! I'm your virtual assistant. How can I help you today?"
	defaultIntent = "General Inquiry"

	typingClearDelay = 3 * time.Second
)

// Config configures a conversation coordinator.
type Config struct {
	AuthAPIURL   string
	Region       string
	CustomerID   string
	CustomerName string
	Logger       *slog.Logger
}

// Coordinator connects the store, the AI agent, and the Connect client.
// All its methods are safe for concurrent use; state changes go through the
// store's action queue.
type Coordinator struct {
	store   *store.Store
	agent   domain.AIAgent
	connect domain.ConnectChat
	cfg     Config
	logger  *slog.Logger

	typingTimer *resettableTimer
}

// New creates a coordinator. The store, agent, and connect client must be
// non-nil; the coordinator owns none of them.
func New(s *store.Store, agent domain.AIAgent, connect domain.ConnectChat, cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Coordinator{
		store:   s,
		agent:   agent,
		connect: connect,
		cfg:     cfg,
		logger:  cfg.Logger,
	}
	c.typingTimer = newResettableTimer(typingClearDelay, func() {
		s.Send(store.SetAgentTyping{IsTyping: false})
	})
	return c
}

// Start seeds the conversation (current user identity plus the welcome
// message) and begins pumping Connect events. It blocks until ctx is
// cancelled; run it in its own goroutine.
func (c *Coordinator) Start(ctx context.Context) {
	c.store.Send(store.SetCurrentUser{User: domain.User{
		Name: c.cfg.CustomerName,
		Role: domain.RoleCustomer,
	}})
	c.store.Send(store.ReceiveMessage{Message: domain.NewMessage(
		c.store.State().VirtualAgentUser, welcomeText,
	)})

	c.pumpEvents(ctx)
}

// pumpEvents translates Connect events into store actions until ctx ends.
func (c *Coordinator) pumpEvents(ctx context.Context) {
	events := c.connect.Events()
	for {
		select {
		case <-ctx.Done():
			c.typingTimer.stop()
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(event)
		}
	}
}

func (c *Coordinator) handleEvent(event domain.ConnectEvent) {
	switch e := event.(type) {
	case domain.MessageReceived:
		if e.ParticipantRole == "CUSTOMER" {
			// Echo of our own message; already in state.
			return
		}
		agent := c.agentUser(e.DisplayName)
		c.store.Send(store.ReceiveMessage{Message: domain.NewMessage(agent, e.Content)})
		c.store.Send(store.SetAgentTyping{IsTyping: false})

	case domain.ParticipantJoined:
		if e.ParticipantRole != "AGENT" {
			return
		}
		c.logger.Info("agent joined", "name", e.DisplayName)
		agent := c.agentUser(e.DisplayName)
		c.store.Send(store.SetAgentUser{User: agent})
		c.store.Send(store.HandoverComplete{})
		c.systemMessage(fmt.Sprintf("%s has joined the chat", agent.Name))

	case domain.ParticipantLeft:
		if e.ParticipantRole != "AGENT" {
			return
		}
		name := e.DisplayName
		if name == "" {
			name = "Agent"
		}
		c.systemMessage(fmt.Sprintf("%s has left the chat", name))

	case domain.TypingIndicator:
		if e.ParticipantRole == "CUSTOMER" {
			return
		}
		c.store.Send(store.SetAgentTyping{IsTyping: true})
		c.typingTimer.reset()

	case domain.ChatEnded:
		c.store.Send(store.EndChat{})
		c.systemMessage("Chat has ended")

	case domain.ErrorEvent:
		c.store.Send(store.SetError{Error: e.Message})

	case domain.Connected:
		c.store.Send(store.SetConnectionState{State: c.connect.State()})
		if session := c.connect.Session(); session != nil {
			c.store.Send(store.SetChatSession{Session: *session})
		}

	case domain.Disconnected:
		c.store.Send(store.SetConnectionState{State: domain.StateDisconnected})
	}
}

func (c *Coordinator) agentUser(displayName string) domain.User {
	if displayName == "" {
		displayName = "Agent"
	}
	return domain.User{Name: displayName, Role: domain.RoleHumanAgent}
}

func (c *Coordinator) systemMessage(text string) {
	c.store.Send(store.ReceiveMessage{Message: domain.NewMessage(
		domain.User{Name: "System", Role: domain.RoleSystem}, text,
	)})
}

// SubmitMessage routes a customer message by the current chat mode. The
// message lands in state immediately; delivery to the AI or the agent
// happens asynchronously.
func (c *Coordinator) SubmitMessage(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("empty message")
	}
	state := c.store.State()

	user := domain.User{Name: c.cfg.CustomerName, Role: domain.RoleCustomer}
	if state.CurrentUser != nil {
		user = *state.CurrentUser
	}
	msg := domain.NewMessage(user, text)

	switch state.ChatMode {
	case domain.ModeVirtualAgent:
		c.store.Send(store.SendMessage{Message: msg})
		go c.processWithAI(ctx, text)
		return nil

	case domain.ModeHumanAgent:
		c.store.Send(store.SendMessage{Message: msg})
		go func() {
			if err := c.connect.SendMessage(ctx, text, ""); err != nil {
				c.logger.Warn("message delivery failed", "error", err)
				c.store.Send(store.SetError{Error: "Message could not be delivered. Please try again."})
			}
		}()
		return nil

	case domain.ModeConnectingToAgent:
		return fmt.Errorf("cannot send while connecting to an agent")

	default:
		return fmt.Errorf("chat has ended")
	}
}

// processWithAI runs one streaming AI turn, translating chunks into actions.
func (c *Coordinator) processWithAI(ctx context.Context, text string) {
	c.store.Send(store.AIProcessingStarted{})

	convCtx := c.conversationContext()
	for chunk := range c.agent.ProcessMessageStream(ctx, text, convCtx) {
		if chunk.Provider != "" && chunk.Provider != c.store.State().CurrentAIProvider {
			c.store.Send(store.AIProviderChanged{Provider: chunk.Provider})
		}
		if chunk.Delta != "" {
			c.store.Send(store.AIStreamDelta{Delta: chunk.Delta})
		}
		if !chunk.Done {
			if chunk.Error != "" {
				// Transient notice (fallback switch); surface without
				// ending the turn.
				c.store.Send(store.SetError{Error: chunk.Error})
			}
			continue
		}

		if chunk.Error != "" {
			c.store.Send(store.AIError{Error: chunk.Error})
			return
		}
		c.store.Send(store.AIResponseComplete{
			SuggestedReplies: chunk.SuggestedReplies,
			ShouldEscalate:   chunk.ShouldEscalate,
			EscalationReason: chunk.EscalationReason,
			MessageID:        uuid.NewString(),
			TimeMs:           time.Now().UnixMilli(),
		})
		return
	}
}

// conversationContext builds the provider-facing history from state. System
// messages are excluded; agent messages of either kind map to assistant.
func (c *Coordinator) conversationContext() domain.ConversationContext {
	state := c.store.State()

	messages := make([]domain.ConversationMessage, 0, len(state.Messages))
	for _, m := range state.Messages {
		var role string
		switch m.User.Role {
		case domain.RoleCustomer:
			role = domain.ConvRoleUser
		case domain.RoleVirtualAgent, domain.RoleHumanAgent:
			role = domain.ConvRoleAssistant
		default:
			continue
		}
		messages = append(messages, domain.ConversationMessage{
			Role:      role,
			Content:   m.Text,
			Timestamp: m.TimeMs,
		})
	}

	sessionID := ""
	if state.ChatSession != nil {
		sessionID = state.ChatSession.ContactID
	}

	return domain.ConversationContext{
		Messages:     messages,
		SessionID:    sessionID,
		CustomerID:   c.cfg.CustomerID,
		CustomerName: c.cfg.CustomerName,
	}
}

// RespondToEscalation records the customer's answer to the escalation
// prompt. A confirmation starts the handover; a decline just clears the
// prompt.
func (c *Coordinator) RespondToEscalation(ctx context.Context, confirmed bool) {
	reason := c.store.State().EscalationReason
	c.store.Send(store.EscalationResponse{Confirmed: confirmed})
	if !confirmed {
		return
	}
	go c.runHandover(ctx, reason)
}

// RequestHandover starts the handover without a prior AI escalation (the
// customer asked for an agent directly).
func (c *Coordinator) RequestHandover(ctx context.Context) {
	c.store.Send(store.InitiateHandover{})
	go c.runHandover(ctx, defaultIntent)
}

// runHandover assembles the handover context and connects to the contact
// center. A failure returns the chat to the virtual agent so the customer
// is never stranded.
func (c *Coordinator) runHandover(ctx context.Context, intent string) {
	if intent == "" {
		intent = defaultIntent
	}
	c.logger.Info("starting agent handover", "intent", intent)
	c.systemMessage("Connecting you with an agent...")

	convCtx := c.conversationContext()
	summary := c.agent.GenerateSummary(ctx, convCtx)
	sentiment := c.agent.AnalyzeSentiment(ctx, convCtx)

	hctx := domain.HandoverContext{
		CustomerID:   c.cfg.CustomerID,
		CustomerName: c.cfg.CustomerName,
		Intent:       intent,
		Summary:      summary,
		Transcript:   c.transcriptEntries(),
		Metadata: map[string]string{
			"sentiment":           sentiment.Sentiment,
			"sentimentConfidence": fmt.Sprintf("%.2f", sentiment.Confidence),
		},
	}

	if _, err := c.connect.StartHandover(ctx, c.cfg.AuthAPIURL, hctx); err != nil {
		c.logger.Warn("handover failed", "error", err)
		// Mirror the client's ERROR state, then settle on DISCONNECTED once
		// the chat is back with the virtual agent.
		c.store.Send(store.SetConnectionState{State: c.connect.State()})
		c.store.Send(store.SetError{Error: "Could not connect to an agent. Please try again later."})
		c.store.Send(store.SetChatMode{Mode: domain.ModeVirtualAgent})
		c.store.Send(store.SetConnectionState{State: domain.StateDisconnected})
		return
	}
}

// transcriptEntries converts the stored history into handover transcript
// lines. Only customer and virtual-agent messages are carried over.
func (c *Coordinator) transcriptEntries() []domain.TranscriptEntry {
	state := c.store.State()
	entries := make([]domain.TranscriptEntry, 0, len(state.Messages))
	for _, m := range state.Messages {
		switch m.User.Role {
		case domain.RoleCustomer, domain.RoleVirtualAgent:
			entries = append(entries, domain.TranscriptEntry{
				Role:      string(m.User.Role),
				Content:   m.Text,
				Timestamp: m.TimeMs,
			})
		}
	}
	return entries
}

// NotifyTyping forwards a local typing signal to the agent when one is
// connected. Errors are logged, not surfaced.
func (c *Coordinator) NotifyTyping(ctx context.Context) {
	if c.store.State().ChatMode != domain.ModeHumanAgent {
		return
	}
	if err := c.connect.SendTypingIndicator(ctx); err != nil {
		c.logger.Debug("typing indicator failed", "error", err)
	}
}

// EndChat disconnects any live session and marks the conversation ended.
func (c *Coordinator) EndChat(ctx context.Context) {
	if c.connect.IsConnected() {
		if err := c.connect.Disconnect(ctx); err != nil {
			c.logger.Warn("disconnect failed", "error", err)
		}
	}
	c.store.Send(store.EndChat{})
}
