package agent

import (
	"context"
	"sync"
	"time"
)

// runContexts tracks a cancelable context per in-flight run.
type runContexts struct {
	mu     sync.Mutex
	cancel map[string]context.CancelFunc
}

func newRunContexts() *runContexts {
	return &runContexts{cancel: make(map[string]context.CancelFunc)}
}

// start derives a context with the given timeout and registers it under id.
func (r *runContexts) start(parent context.Context, id string, timeout time.Duration) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	r.mu.Lock()
	r.cancel[id] = cancel
	r.mu.Unlock()
	return ctx
}

// stop cancels and forgets the run. It reports whether the run was in flight.
func (r *runContexts) stop(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cancel[id]
	if ok {
		c()
		delete(r.cancel, id)
	}
	return ok
}
