package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"docqa/internal/bus"
)

// Status reports how far a trace has progressed.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Outcome is the terminal result slot for one trace id: exactly one of
// Result or Failure is set once the chain completes. Slots are created on
// first write, readable any number of times, and never evicted; their
// lifetime is the process lifetime.
type Outcome struct {
	Result  *bus.FinalResultPayload
	Failure *bus.FailurePayload
}

// Presentation is the boundary stage. It absorbs terminal envelopes into a
// per-trace-id correlation store and exposes the synchronous entry points
// the UI calls. Because dispatch is a blocking call chain, the outcome is in
// the store by the time a Begin call returns; Poll exists for callers that
// want the polling protocol anyway.
type Presentation struct {
	base

	mu       sync.RWMutex
	outcomes map[string]Outcome
}

func NewPresentation(d *bus.Dispatcher) *Presentation {
	return &Presentation{
		base:     base{name: bus.StagePresentation, bus: d},
		outcomes: make(map[string]Outcome),
	}
}

func (a *Presentation) Handle(ctx context.Context, env bus.Envelope) error {
	switch p := env.Payload.(type) {
	case bus.FinalResultPayload:
		a.store(env.TraceID, Outcome{Result: &p})
		slog.InfoContext(ctx, "final result stored", "trace_id", env.TraceID, "sources", len(p.SourceInfo))
	case bus.FailurePayload:
		a.store(env.TraceID, Outcome{Failure: &p})
		slog.InfoContext(ctx, "failure stored", "trace_id", env.TraceID, "error", p.Error)
	default:
		a.drop(ctx, env)
	}
	return nil
}

func (a *Presentation) store(traceID string, o Outcome) {
	a.mu.Lock()
	a.outcomes[traceID] = o
	a.mu.Unlock()
}

// BeginUpload starts a document ingestion action under a freshly minted
// trace id and returns it. The returned error covers wiring bugs only;
// pipeline failures land in the correlation store.
func (a *Presentation) BeginUpload(ctx context.Context, fileName string, data []byte) (string, error) {
	traceID := uuid.New().String()
	err := a.emit(ctx, bus.StageIngestion, bus.DocumentUploadedPayload{
		FileName:  fileName,
		FileBytes: data,
	}, traceID)
	if err != nil {
		return "", err
	}
	return traceID, nil
}

// BeginQuery starts a question-answering action under a freshly minted trace
// id and returns it.
func (a *Presentation) BeginQuery(ctx context.Context, query string) (string, error) {
	traceID := uuid.New().String()
	err := a.emit(ctx, bus.StageGeneration, bus.UserQueryPayload{Query: query}, traceID)
	if err != nil {
		return "", err
	}
	return traceID, nil
}

// Poll reads the outcome slot for a trace id.
func (a *Presentation) Poll(traceID string) (Outcome, Status) {
	a.mu.RLock()
	o, ok := a.outcomes[traceID]
	a.mu.RUnlock()

	switch {
	case !ok:
		return Outcome{}, StatusPending
	case o.Failure != nil:
		return o, StatusFailed
	default:
		return o, StatusDone
	}
}
