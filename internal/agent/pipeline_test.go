package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"docqa/internal/agent"
	"docqa/internal/bus"
)

// fullPipeline mounts all four stages on one dispatcher.
func fullPipeline(t *testing.T, parser agent.Parser, index agent.VectorIndex, gen agent.Generator) (*agent.Presentation, *bus.Dispatcher) {
	t.Helper()
	router, dispatcher := newPipeline(t)
	presentation := agent.NewPresentation(dispatcher)
	require.NoError(t, agent.Mount(router,
		agent.NewIngestion(dispatcher, parser),
		agent.NewRetrieval(dispatcher, index),
		agent.NewGeneration(dispatcher, gen, 5),
		presentation,
	))
	return presentation, dispatcher
}

func TestPipeline_QueryEndToEnd(t *testing.T) {
	index := new(MockIndex)
	index.On("Query", mock.Anything, "revenue?", 5).Return([]agent.Hit{
		{Text: "Revenue was 10M.", SourceDocument: "report.pdf", DocKind: bus.DocPDF, LocatorValue: 2, Score: 0.9},
	}, nil)

	presentation, _ := fullPipeline(t, new(MockParser), index, nil)

	traceID, err := presentation.BeginQuery(context.Background(), "revenue?")
	require.NoError(t, err)

	// Dispatch is a blocking call chain, so the outcome is already stored.
	outcome, status := presentation.Poll(traceID)
	assert.Equal(t, agent.StatusDone, status)
	require.NotNil(t, outcome.Result)
	assert.Contains(t, outcome.Result.Answer, "Revenue was 10M.")
	require.Len(t, outcome.Result.SourceInfo, 1)
	assert.Equal(t, "report.pdf", outcome.Result.SourceInfo[0].Document)
	assert.Equal(t, bus.Locator{Kind: bus.LocatorPage, Value: 2}, outcome.Result.SourceInfo[0].Locator)
}

func TestPipeline_FailureIsContained(t *testing.T) {
	parser := new(MockParser)
	parser.On("Parse", mock.Anything, mock.Anything).Return(nil, bus.ErrParseFailure)

	index := new(MockIndex)
	index.On("Query", mock.Anything, mock.Anything, mock.Anything).Return([]agent.Hit{}, nil)

	presentation, dispatcher := fullPipeline(t, parser, index, nil)

	// The broken upload yields exactly one failure outcome, no panic, no
	// error escaping the entry point.
	traceID, err := presentation.BeginUpload(context.Background(), "broken.pdf", []byte{0x00})
	require.NoError(t, err)

	outcome, status := presentation.Poll(traceID)
	assert.Equal(t, agent.StatusFailed, status)
	require.NotNil(t, outcome.Failure)
	assert.Contains(t, outcome.Failure.Error, "parse failure")

	failures := 0
	for _, env := range dispatcher.Audit() {
		if env.Kind == bus.KindFailure {
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	// The pipeline stays usable after a failure.
	queryTrace, err := presentation.BeginQuery(context.Background(), "still alive?")
	require.NoError(t, err)
	_, status = presentation.Poll(queryTrace)
	assert.Equal(t, agent.StatusDone, status)
}

func TestPipeline_RetrievalFailureTerminatesQuery(t *testing.T) {
	index := new(MockIndex)
	index.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	presentation, dispatcher := fullPipeline(t, new(MockParser), index, nil)

	traceID, err := presentation.BeginQuery(context.Background(), "q")
	require.NoError(t, err)

	// Retrieval failed against its sender (generation), which forwarded it
	// on; the trace must not be left pending.
	outcome, status := presentation.Poll(traceID)
	assert.Equal(t, agent.StatusFailed, status)
	require.NotNil(t, outcome.Failure)
	assert.Contains(t, outcome.Failure.Error, "collaborator unavailable")

	audit := dispatcher.Audit()
	last := audit[len(audit)-1]
	assert.Equal(t, bus.KindFailure, last.Kind)
	assert.Equal(t, bus.StagePresentation, last.Receiver)
}

func TestPipeline_TraceIDStableAcrossChain(t *testing.T) {
	index := new(MockIndex)
	index.On("Query", mock.Anything, mock.Anything, mock.Anything).Return([]agent.Hit{}, nil)

	presentation, dispatcher := fullPipeline(t, new(MockParser), index, nil)

	traceID, err := presentation.BeginQuery(context.Background(), "q")
	require.NoError(t, err)

	audit := dispatcher.Audit()
	require.NotEmpty(t, audit)
	for _, env := range audit {
		assert.Equal(t, traceID, env.TraceID)
	}

	// user.query -> retrieval.requested -> retrieval.completed -> final.result
	kinds := make([]bus.MessageKind, 0, len(audit))
	for _, env := range audit {
		kinds = append(kinds, env.Kind)
	}
	assert.Equal(t, []bus.MessageKind{
		bus.KindUserQuery,
		bus.KindRetrievalRequested,
		bus.KindRetrievalCompleted,
		bus.KindFinalResult,
	}, kinds)
}
