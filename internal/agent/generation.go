package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa/internal/bus"
)

// fallbackSnippetChars bounds each extractive-fallback snippet; fallbackTopN
// bounds how many context items the fallback cites.
const (
	fallbackSnippetChars = 200
	fallbackTopN         = 3
)

const noContextAnswer = "I couldn't find relevant information in the uploaded documents to answer your question."

// Generator is the answer-model collaborator. It may fail (network, quota);
// the stage falls back to a deterministic extractive answer instead of
// propagating the error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generation forwards user queries to retrieval and turns retrieved context
// into a final answer. A nil generator is allowed and routes every answer
// through the fallback.
type Generation struct {
	base
	generator Generator
	topK      int
}

func NewGeneration(d *bus.Dispatcher, generator Generator, topK int) *Generation {
	return &Generation{base: base{name: bus.StageGeneration, bus: d}, generator: generator, topK: topK}
}

func (a *Generation) Handle(ctx context.Context, env bus.Envelope) error {
	switch env.Kind {
	case bus.KindUserQuery:
		return a.requestRetrieval(ctx, env)
	case bus.KindRetrievalCompleted:
		return a.respond(ctx, env)
	case bus.KindFailure:
		return a.forwardFailure(ctx, env)
	default:
		a.drop(ctx, env)
		return nil
	}
}

// forwardFailure re-addresses a failure raised downstream while serving a
// query. Retrieval reports to its sender, which is this stage; without the
// hop to presentation the trace would stay pending forever.
func (a *Generation) forwardFailure(ctx context.Context, env bus.Envelope) error {
	p, ok := env.Payload.(bus.FailurePayload)
	if !ok {
		a.drop(ctx, env)
		return nil
	}
	return a.emit(ctx, bus.StagePresentation, p, env.TraceID)
}

// requestRetrieval is the first hop of a question: the trace id minted at
// the entry point rides along unchanged.
func (a *Generation) requestRetrieval(ctx context.Context, env bus.Envelope) error {
	p, ok := env.Payload.(bus.UserQueryPayload)
	if !ok {
		return a.fail(ctx, env, fmt.Errorf("%w: expected user query payload", bus.ErrMalformedPayload))
	}
	if p.Query == "" {
		return a.fail(ctx, env, fmt.Errorf("%w: missing query", bus.ErrMalformedPayload))
	}

	return a.emit(ctx, bus.StageRetrieval, bus.RetrievalRequestedPayload{
		Query: p.Query,
		TopK:  a.topK,
	}, env.TraceID)
}

func (a *Generation) respond(ctx context.Context, env bus.Envelope) error {
	p, ok := env.Payload.(bus.RetrievalCompletedPayload)
	if !ok {
		return a.fail(ctx, env, fmt.Errorf("%w: expected retrieval completed payload", bus.ErrMalformedPayload))
	}

	answer := a.answer(ctx, p.Query, p.Context)

	sourceInfo := make([]bus.SourceRef, 0, len(p.Context))
	for _, c := range p.Context {
		sourceInfo = append(sourceInfo, bus.SourceRef{
			Document: c.SourceDocument,
			Locator:  c.Locator,
		})
	}

	return a.emit(ctx, bus.StagePresentation, bus.FinalResultPayload{
		Answer:     answer,
		SourceInfo: sourceInfo,
		Query:      p.Query,
	}, env.TraceID)
}

func (a *Generation) answer(ctx context.Context, query string, items []bus.RetrievedContext) string {
	if a.generator == nil {
		return Fallback(query, items)
	}
	answer, err := a.generator.Generate(ctx, BuildPrompt(query, items))
	if err != nil {
		slog.WarnContext(ctx, "generator unavailable, using extractive fallback", "error", err)
		return Fallback(query, items)
	}
	return answer
}

// BuildPrompt concatenates each context item's source label and text into a
// grounded question-answering prompt.
func BuildPrompt(query string, items []bus.RetrievedContext) string {
	var b strings.Builder
	b.WriteString("Based on the following context from uploaded documents, answer the user's question.\n")
	b.WriteString("Be accurate, concise, and cite the sources when possible.\n\nContext:\n")
	for i, c := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Source: %s\n%s", c.SourceDocument, c.Text)
	}
	fmt.Fprintf(&b, "\n\nQuestion: %s\n\nAnswer:", query)
	return b.String()
}

// Fallback builds a deterministic extractive answer from the top context
// items. Same query and context always produce byte-identical output, so the
// pipeline stays testable with no model behind it.
func Fallback(query string, items []bus.RetrievedContext) string {
	if len(items) == 0 {
		return noContextAnswer
	}

	snippets := make([]string, 0, fallbackTopN)
	for _, c := range items {
		if len(snippets) == fallbackTopN {
			break
		}
		text := c.Text
		// The budget counts characters, not bytes; slicing bytes could cut
		// a multibyte rune in half.
		if runes := []rune(text); len(runes) > fallbackSnippetChars {
			text = string(runes[:fallbackSnippetChars]) + "..."
		}
		snippets = append(snippets, fmt.Sprintf("From %s: %s", c.SourceDocument, text))
	}

	return "Based on the uploaded documents, here are the most relevant passages:\n\n" +
		strings.Join(snippets, "\n\n")
}
