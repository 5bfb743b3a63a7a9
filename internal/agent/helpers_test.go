package agent_test

import (
	"context"
	"testing"

	"docqa/internal/bus"
)

// recorder is a stand-in stage that records every envelope delivered to it.
type recorder struct {
	name bus.StageName
	got  []bus.Envelope
}

func newRecorder(name bus.StageName) *recorder { return &recorder{name: name} }

func (r *recorder) Name() bus.StageName { return r.name }

func (r *recorder) Handle(ctx context.Context, env bus.Envelope) error {
	r.got = append(r.got, env)
	return nil
}

func newPipeline(t *testing.T) (*bus.Router, *bus.Dispatcher) {
	t.Helper()
	router := bus.NewRouter()
	return router, bus.NewDispatcher(router)
}
