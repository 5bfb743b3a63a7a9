package bus

import (
	"context"
	"fmt"
	"sync"
)

// Handler is a stage's entry point. Handlers contain their own failures and
// return an error only for programmer mistakes the dispatcher should surface.
type Handler func(ctx context.Context, env Envelope) error

// Router maps stage names to handlers. It is an explicit instance passed to
// every stage at construction time, so tests can compose isolated pipelines.
type Router struct {
	mu     sync.RWMutex
	stages map[StageName]Handler
}

func NewRouter() *Router {
	return &Router{stages: make(map[StageName]Handler)}
}

// Register binds a stage name to exactly one handler. Registering the same
// name twice is a wiring bug and fails hard rather than silently shadowing
// the earlier binding.
func (r *Router) Register(name StageName, h Handler) error {
	if name == "" {
		return fmt.Errorf("empty stage name")
	}
	if h == nil {
		return fmt.Errorf("nil handler for stage %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stages[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStage, name)
	}
	r.stages[name] = h
	return nil
}

// Resolve returns the handler bound to name.
func (r *Router) Resolve(name StageName) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.stages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReceiver, name)
	}
	return h, nil
}
