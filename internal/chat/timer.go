package chat

import (
	"sync"
	"time"
)

// resettableTimer fires fn once after the delay unless reset again first.
// Used to auto-clear the agent typing indicator.
type resettableTimer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

func newResettableTimer(delay time.Duration, fn func()) *resettableTimer {
	return &resettableTimer{delay: delay, fn: fn}
}

func (t *resettableTimer) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, t.fn)
}

func (t *resettableTimer) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
