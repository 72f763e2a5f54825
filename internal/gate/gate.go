// Package gate provides named exclusive scopes. All operations that mutate the
// pending-request set (running the matcher, cancelling a request) funnel
// through the same scope so they serialize rather than interleave.
package gate

import (
	"sync"
	"time"

	"github.com/example/ride-pooling/internal/observability"
)

// Scope under which matching and cancellation serialize.
const MatchingScope = "matching"

type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

func (r *Registry) lock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[name]
	if !ok {
		l = &sync.Mutex{}
		r.locks[name] = l
	}
	return l
}

// Do runs fn while holding the named scope exclusively, blocking until the
// scope is free. The scope is released even if fn panics.
func (r *Registry) Do(name string, fn func() error) error {
	l := r.lock(name)
	start := time.Now()
	l.Lock()
	observability.GateWaitSeconds.Observe(time.Since(start).Seconds())
	defer l.Unlock()
	return fn()
}
