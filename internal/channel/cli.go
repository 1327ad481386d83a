// Package channel contains the interactive terminal surface. It renders
// store snapshots and feeds customer input to the conversation coordinator.
package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"connectchat/internal/chat"
	"connectchat/internal/domain"
	"connectchat/internal/store"
)

// CLI is an interactive terminal chat surface.
type CLI struct {
	store       *store.Store
	coordinator *chat.Coordinator
	logger      *slog.Logger
	in          io.Reader
	out         io.Writer

	mu            sync.Mutex
	rendered      map[string]bool
	streamedBytes int
	typingShown   bool
	promptShown   bool
	lastError     string
}

type CLIConfig struct {
	Store       *store.Store
	Coordinator *chat.Coordinator
	Logger      *slog.Logger
	In          io.Reader
	Out         io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CLI{
		store:       cfg.Store,
		coordinator: cfg.Coordinator,
		logger:      cfg.Logger,
		in:          cfg.In,
		out:         cfg.Out,
		rendered:    make(map[string]bool),
	}
}

// Start runs the REPL and blocks until the context ends, the chat ends, or
// the user quits.
func (c *CLI) Start(ctx context.Context) error {
	snapshots := c.store.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-snapshots:
				if !ok {
					return
				}
				c.render(state)
			}
		}
	}()

	fmt.Fprintln(c.out, "Customer service chat. Type a message and press Enter.")
	fmt.Fprintln(c.out, "Commands: /agent (talk to a human), /end, /quit")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/q":
			c.logger.Info("user requested quit")
			c.coordinator.EndChat(ctx)
			return nil

		case line == "/end":
			c.coordinator.EndChat(ctx)

		case line == "/agent":
			c.coordinator.RequestHandover(ctx)

		case c.handleEscalationAnswer(ctx, line):
			// Answer consumed by the escalation prompt.

		default:
			if reply, ok := c.quickReply(line); ok {
				line = reply
			}
			if err := c.coordinator.SubmitMessage(ctx, line); err != nil {
				fmt.Fprintf(c.out, "! %s\n", err)
			}
		}

		if c.store.State().ChatMode == domain.ModeEnded {
			return nil
		}
	}
}

// handleEscalationAnswer consumes a yes/no line while the escalation prompt
// is pending.
func (c *CLI) handleEscalationAnswer(ctx context.Context, line string) bool {
	if !c.store.State().ShowEscalationPrompt {
		return false
	}
	switch strings.ToLower(line) {
	case "yes", "y":
		c.coordinator.RespondToEscalation(ctx, true)
	case "no", "n":
		c.coordinator.RespondToEscalation(ctx, false)
		fmt.Fprintln(c.out, "Okay, continuing with the virtual assistant.")
	default:
		fmt.Fprintln(c.out, "Please answer yes or no.")
	}
	return true
}

// quickReply resolves a numeric selection against the current suggestions.
func (c *CLI) quickReply(line string) (string, bool) {
	n, err := strconv.Atoi(line)
	if err != nil {
		return "", false
	}
	replies := c.store.State().SuggestedReplies
	if n < 1 || n > len(replies) {
		return "", false
	}
	return replies[n-1], true
}

// render prints everything that changed since the last snapshot.
func (c *CLI) render(state store.ChatState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.renderStream(state)

	for _, msg := range state.Messages {
		if c.rendered[msg.ID] {
			continue
		}
		c.rendered[msg.ID] = true
		if msg.User.Role == domain.RoleCustomer {
			continue
		}
		fmt.Fprintf(c.out, "\n[%s] %s\n", msg.User.Name, msg.Text)
	}

	if state.IsAgentTyping && !c.typingShown {
		fmt.Fprintln(c.out, "... agent is typing")
	}
	c.typingShown = state.IsAgentTyping

	if state.Error != "" && state.Error != c.lastError {
		fmt.Fprintf(c.out, "! %s\n", state.Error)
	}
	c.lastError = state.Error

	if len(state.SuggestedReplies) > 0 && !state.IsAIProcessing {
		for i, reply := range state.SuggestedReplies {
			fmt.Fprintf(c.out, "  %d) %s\n", i+1, reply)
		}
	}

	if state.ShowEscalationPrompt && !c.promptShown {
		fmt.Fprintf(c.out, "\nWould you like to speak with a human agent? (%s) [yes/no]\n",
			state.EscalationReason)
	}
	c.promptShown = state.ShowEscalationPrompt
}

// renderStream prints the growing AI response incrementally. The finalized
// message is marked rendered so the message loop does not print it twice.
func (c *CLI) renderStream(state store.ChatState) {
	if !state.IsAIProcessing {
		if c.streamedBytes > 0 {
			for i := len(state.Messages) - 1; i >= 0; i-- {
				if state.Messages[i].User.Role == domain.RoleVirtualAgent {
					c.rendered[state.Messages[i].ID] = true
					break
				}
			}
			fmt.Fprintln(c.out)
			c.streamedBytes = 0
		}
		return
	}
	if len(state.AIStreamBuffer) > c.streamedBytes {
		if c.streamedBytes == 0 {
			fmt.Fprintf(c.out, "\n[%s] ", state.VirtualAgentUser.Name)
		}
		fmt.Fprint(c.out, state.AIStreamBuffer[c.streamedBytes:])
		c.streamedBytes = len(state.AIStreamBuffer)
	}
}
