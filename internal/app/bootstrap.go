package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"docqa/internal/adapter/gemini"
	wstore "docqa/internal/adapter/weaviate"
	"docqa/internal/agent"
	"docqa/internal/bus"
	"docqa/internal/config"
	"docqa/internal/index"
)

// Dependencies are the external collaborators the pipeline runs against.
type Dependencies struct {
	Index     agent.VectorIndex
	Generator agent.Generator
	AuditTap  bus.AuditTap
}

// Bootstrap connects the configured external collaborators. Everything is
// optional: with no Gemini key answers come from the extractive fallback and
// embeddings from the local hash embedder; with no Weaviate host the index
// lives in memory; with no NSQ host there is no audit tap.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}

	var embedder index.Embedder = index.NewHashEmbedder()
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("gemini client error: %w", err)
		}
		embedder = gemini.NewEmbedder(client, cfg.EmbeddingModel)
		deps.Generator = gemini.NewGenerator(client, cfg.GenerationModel)
	} else {
		slog.Warn("no Gemini API key configured, using local embeddings and extractive answers")
	}

	if cfg.WeaviateHost != "" {
		wClient, err := weaviate.NewClient(weaviate.Config{
			Host:   cfg.WeaviateHost,
			Scheme: cfg.WeaviateScheme,
		})
		if err != nil {
			return nil, fmt.Errorf("weaviate client error: %w", err)
		}
		store := wstore.NewStore(wClient, embedder)
		if err := ensureSchemaWithRetry(ctx, store, 10, 2*time.Second); err != nil {
			return nil, fmt.Errorf("weaviate schema error: %w", err)
		}
		deps.Index = store
	} else {
		deps.Index = index.NewMemory(embedder)
	}

	if cfg.NSQDHost != "" {
		producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		deps.AuditTap = producer
	}

	return deps, nil
}

func ensureSchemaWithRetry(ctx context.Context, store *wstore.Store, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = store.EnsureSchema(ctx); err == nil {
			return nil
		}
		slog.Warn("failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
