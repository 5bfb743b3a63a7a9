package agent

import (
	"context"
	"fmt"
	"log/slog"

	"docqa/internal/bus"
)

// Hit is one nearest-neighbor result from the vector index: raw chunk data
// plus the locator value, before the kind-to-locator mapping is applied.
type Hit struct {
	Text           string
	SourceDocument string
	DocKind        bus.DocumentKind
	LocatorValue   int
	Score          float32
}

// VectorIndex is the semantic-search collaborator. Query is best effort:
// fewer than topK hits when the index holds fewer items, empty when it is
// empty.
type VectorIndex interface {
	Index(ctx context.Context, chunks []bus.Chunk) error
	Query(ctx context.Context, query string, topK int) ([]Hit, error)
}

// Retrieval owns the vector index. It absorbs ingested chunks and answers
// retrieval requests with scored, locator-mapped context.
type Retrieval struct {
	base
	index VectorIndex
}

func NewRetrieval(d *bus.Dispatcher, index VectorIndex) *Retrieval {
	return &Retrieval{base: base{name: bus.StageRetrieval, bus: d}, index: index}
}

func (a *Retrieval) Handle(ctx context.Context, env bus.Envelope) error {
	switch env.Kind {
	case bus.KindDocumentIngested:
		return a.indexChunks(ctx, env)
	case bus.KindRetrievalRequested:
		return a.retrieve(ctx, env)
	default:
		a.drop(ctx, env)
		return nil
	}
}

// indexChunks is terminal: indexing is a fire-and-forget side effect with no
// follow-up envelope.
func (a *Retrieval) indexChunks(ctx context.Context, env bus.Envelope) error {
	p, ok := env.Payload.(bus.DocumentIngestedPayload)
	if !ok {
		return a.fail(ctx, env, fmt.Errorf("%w: expected document ingested payload", bus.ErrMalformedPayload))
	}

	slog.InfoContext(ctx, "indexing chunks", "file", p.FileName, "chunks", len(p.Chunks))

	if err := a.index.Index(ctx, p.Chunks); err != nil {
		return a.fail(ctx, env, fmt.Errorf("%w: %v", bus.ErrCollaboratorUnavailable, err))
	}
	return nil
}

func (a *Retrieval) retrieve(ctx context.Context, env bus.Envelope) error {
	p, ok := env.Payload.(bus.RetrievalRequestedPayload)
	if !ok {
		return a.fail(ctx, env, fmt.Errorf("%w: expected retrieval request payload", bus.ErrMalformedPayload))
	}
	if p.Query == "" {
		return a.fail(ctx, env, fmt.Errorf("%w: missing query", bus.ErrMalformedPayload))
	}

	slog.InfoContext(ctx, "retrieving context", "query", p.Query, "top_k", p.TopK)

	hits, err := a.index.Query(ctx, p.Query, p.TopK)
	if err != nil {
		return a.fail(ctx, env, fmt.Errorf("%w: %v", bus.ErrCollaboratorUnavailable, err))
	}

	retrieved := make([]bus.RetrievedContext, 0, len(hits))
	for _, h := range hits {
		loc, err := bus.LocatorFor(h.DocKind)
		if err != nil {
			return a.fail(ctx, env, err)
		}
		retrieved = append(retrieved, bus.RetrievedContext{
			Text:           h.Text,
			SourceDocument: h.SourceDocument,
			Locator:        bus.Locator{Kind: loc, Value: h.LocatorValue},
			Score:          h.Score,
		})
	}

	return a.emit(ctx, bus.StageGeneration, bus.RetrievalCompletedPayload{
		Context:      retrieved,
		Query:        p.Query,
		TotalResults: len(retrieved),
	}, env.TraceID)
}
