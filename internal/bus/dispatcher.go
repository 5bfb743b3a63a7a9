package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// AuditTap mirrors published envelopes to an external sink, e.g. an NSQ
// topic. Taps are observational: a tap error never affects delivery.
type AuditTap interface {
	Publish(topic string, body []byte) error
}

// Dispatcher delivers envelopes to their receivers. Delivery is a direct,
// depth-first call chain: Publish does not return until the receiver's
// handler, and everything it transitively published, has completed. The
// internal record is an audit log only; nothing drains it for delivery.
type Dispatcher struct {
	router *Router

	mu    sync.Mutex
	audit []Envelope

	tap      AuditTap
	tapTopic string
}

func NewDispatcher(router *Router) *Dispatcher {
	return &Dispatcher{router: router}
}

// WithAuditTap mirrors every published envelope, JSON-encoded, to the given
// tap topic. Fire and forget.
func (d *Dispatcher) WithAuditTap(tap AuditTap, topic string) *Dispatcher {
	d.tap = tap
	d.tapTopic = topic
	return d
}

// Publish records the envelope and invokes the receiver's handler
// synchronously. The only errors it returns are wiring errors (unknown
// receiver) and programmer errors escaping a handler; stage-level failures
// travel as Failure envelopes instead.
func (d *Dispatcher) Publish(ctx context.Context, env Envelope) error {
	d.mu.Lock()
	d.audit = append(d.audit, env)
	d.mu.Unlock()

	if d.tap != nil {
		if body, err := json.Marshal(env); err == nil {
			if err := d.tap.Publish(d.tapTopic, body); err != nil {
				slog.WarnContext(ctx, "audit tap publish failed", "topic", d.tapTopic, "error", err)
			}
		}
	}

	h, err := d.router.Resolve(env.Receiver)
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "dispatching envelope",
		"sender", env.Sender, "receiver", env.Receiver, "kind", env.Kind, "trace_id", env.TraceID)

	return h(ctx, env)
}

// Audit returns a copy of every envelope published so far, in publish order.
func (d *Dispatcher) Audit() []Envelope {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Envelope, len(d.audit))
	copy(out, d.audit)
	return out
}
