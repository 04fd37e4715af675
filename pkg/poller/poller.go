// Package poller runs a function immediately and then on a fixed interval until stopped.
package poller

import (
	"context"
	"sync"
	"time"
)

// Tick is called on every run. first is true only for the run that follows Start or Reset.
type Tick func(ctx context.Context, first bool)

// Task is a restartable periodic job. At most one timer loop is alive at a time.
type Task struct {
	interval time.Duration
	fn       Tick

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a stopped task.
func New(interval time.Duration, fn Tick) *Task {
	return &Task{interval: interval, fn: fn}
}

// Start launches the loop. It is a no-op if the task is already running.
func (t *Task) Start(parent context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.startLocked(parent)
}

// Stop cancels the loop and waits for it to exit. The context passed to the in-flight
// tick is cancelled too.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.running = false
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Reset stops any running loop and starts a fresh one, so the next run happens now
// and the interval restarts from it.
func (t *Task) Reset(parent context.Context) {
	t.Stop()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		t.startLocked(parent)
	}
}

// Running reports whether the loop is active.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Task) startLocked(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	t.cancel, t.done, t.running = cancel, done, true

	go func() {
		defer close(done)
		t.fn(ctx, true)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.fn(ctx, false)
			}
		}
	}()
}
