// Package store owns the conversation state. All mutations funnel through a
// single consumer goroutine applying a pure reducer, so concurrent producers
// (UI input, AI stream chunks, Connect events, timers) never race on state.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sendTimeout = 10 * time.Second

// Store serializes actions onto ChatState and fans snapshots out to
// subscribers.
type Store struct {
	actions chan Action
	logger  *slog.Logger

	mu          sync.RWMutex
	state       ChatState
	subscribers []chan ChatState

	lifecycle sync.RWMutex
	closed    bool

	done chan struct{}
}

// New creates a store and starts its consumer loop. The loop stops when ctx
// is cancelled or Close is called.
func New(ctx context.Context, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		actions: make(chan Action, 256),
		logger:  logger,
		state:   NewChatState(),
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *Store) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case action, ok := <-s.actions:
			if !ok {
				return
			}
			s.apply(action)
		}
	}
}

func (s *Store) apply(action Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	snapshot := s.state
	subs := make([]chan ChatState, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		// Drop-and-replace: a slow subscriber skips intermediate snapshots
		// instead of stalling the consumer loop.
		select {
		case sub <- snapshot:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- snapshot:
			default:
			}
		}
	}
}

// Send enqueues an action for processing. Actions are applied strictly in
// submission order. Blocks up to 10 seconds if the queue is full instead of
// dropping.
func (s *Store) Send(action Action) {
	s.lifecycle.RLock()
	defer s.lifecycle.RUnlock()
	if s.closed {
		s.logger.Warn("action sent to closed store")
		return
	}

	select {
	case s.actions <- action:
	default:
		s.logger.Warn("action queue full, waiting...")
		timer := time.NewTimer(sendTimeout)
		defer timer.Stop()
		select {
		case s.actions <- action:
		case <-timer.C:
			s.logger.Error("action dropped: queue full for 10s")
		case <-s.done:
		}
	}
}

// State returns the latest state snapshot.
func (s *Store) State() ChatState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a channel receiving state snapshots after every applied
// action. Slow consumers observe the most recent snapshot, not every
// intermediate one.
func (s *Store) Subscribe() <-chan ChatState {
	ch := make(chan ChatState, 1)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

// Close stops the consumer loop and waits for it to drain.
func (s *Store) Close() {
	s.lifecycle.Lock()
	if s.closed {
		s.lifecycle.Unlock()
		return
	}
	s.closed = true
	close(s.actions)
	s.lifecycle.Unlock()
	<-s.done
}
