package agent

import (
	"context"
	"fmt"
	"log/slog"

	"docqa/internal/bus"
)

// Parser extracts ordered chunks from a raw document. Implementations fail
// with bus.ErrUnsupportedFormat for unknown extensions and
// bus.ErrParseFailure for malformed content.
type Parser interface {
	Parse(data []byte, fileName string) ([]bus.Chunk, error)
}

// Ingestion turns uploaded documents into chunks and hands them to the
// retrieval stage for indexing.
type Ingestion struct {
	base
	parser Parser
}

func NewIngestion(d *bus.Dispatcher, parser Parser) *Ingestion {
	return &Ingestion{base: base{name: bus.StageIngestion, bus: d}, parser: parser}
}

func (a *Ingestion) Handle(ctx context.Context, env bus.Envelope) error {
	switch env.Kind {
	case bus.KindDocumentUploaded:
		return a.ingest(ctx, env)
	default:
		a.drop(ctx, env)
		return nil
	}
}

func (a *Ingestion) ingest(ctx context.Context, env bus.Envelope) error {
	p, ok := env.Payload.(bus.DocumentUploadedPayload)
	if !ok {
		return a.fail(ctx, env, fmt.Errorf("%w: expected document upload payload", bus.ErrMalformedPayload))
	}
	if p.FileName == "" || len(p.FileBytes) == 0 {
		return a.fail(ctx, env, fmt.Errorf("%w: missing file_name or file_bytes", bus.ErrMalformedPayload))
	}

	slog.InfoContext(ctx, "ingesting document", "file", p.FileName, "size", len(p.FileBytes))

	chunks, err := a.parser.Parse(p.FileBytes, p.FileName)
	if err != nil {
		return a.fail(ctx, env, err)
	}

	slog.InfoContext(ctx, "document parsed", "file", p.FileName, "chunks", len(chunks))

	return a.emit(ctx, bus.StageRetrieval, bus.DocumentIngestedPayload{
		Chunks:      chunks,
		FileName:    p.FileName,
		TotalChunks: len(chunks),
	}, env.TraceID)
}
