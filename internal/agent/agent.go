// Package agent contains the pipeline stages. Each stage registers one
// handler on the router, reacts to the message kinds it knows, and reaches
// the rest of the pipeline only through envelopes.
package agent

import (
	"context"
	"log/slog"

	"docqa/internal/bus"
)

// Stage is the contract every pipeline stage implements. Handle must contain
// its own failures: anything going wrong inside a stage becomes a Failure
// envelope addressed to the inbound sender, never an error crossing the
// stage boundary.
type Stage interface {
	Name() bus.StageName
	Handle(ctx context.Context, env bus.Envelope) error
}

// Mount registers each stage's handler under its name. Duplicate names fail
// hard, per router policy.
func Mount(r *bus.Router, stages ...Stage) error {
	for _, s := range stages {
		if err := r.Register(s.Name(), s.Handle); err != nil {
			return err
		}
	}
	return nil
}

// base carries the pieces every stage shares: its name and the dispatcher it
// emits follow-ups through.
type base struct {
	name bus.StageName
	bus  *bus.Dispatcher
}

func (b base) Name() bus.StageName { return b.name }

// emit publishes a follow-up envelope carrying the given trace id.
func (b base) emit(ctx context.Context, receiver bus.StageName, payload bus.Payload, traceID string) error {
	return b.bus.Publish(ctx, bus.NewEnvelope(b.name, receiver, payload, traceID))
}

// fail converts a stage-local error into exactly one Failure envelope
// addressed back to the inbound sender, carrying the original envelope for
// diagnostics. Publish errors here are wiring bugs and propagate.
func (b base) fail(ctx context.Context, in bus.Envelope, cause error) error {
	slog.ErrorContext(ctx, "stage failed", "stage", b.name, "kind", in.Kind, "trace_id", in.TraceID, "error", cause)
	return b.emit(ctx, in.Sender, bus.FailurePayload{
		Error:    cause.Error(),
		Original: in,
	}, in.TraceID)
}

// drop logs an unrecognized kind and discards it. Not an error: stages stay
// forward compatible with kinds they do not handle.
func (b base) drop(ctx context.Context, in bus.Envelope) {
	slog.WarnContext(ctx, "unhandled message kind", "stage", b.name, "kind", in.Kind, "trace_id", in.TraceID)
}
