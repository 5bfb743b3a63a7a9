// Package weaviate backs the vector-index collaborator with a Weaviate
// instance, for deployments where the in-memory index is not enough.
package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"docqa/internal/agent"
	"docqa/internal/bus"
)

const className = "DocumentChunk"

// Embedder supplies the vectors stored alongside chunks; Weaviate runs with
// no vectorizer module.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Store struct {
	client   *weaviate.Client
	embedder Embedder
}

func NewStore(client *weaviate.Client, embedder Embedder) *Store {
	return &Store{client: client, embedder: embedder}
}

// EnsureSchema creates the DocumentChunk class if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      className,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "sourceDocument", DataType: []string{"text"}},
			{Name: "docKind", DataType: []string{"text"}},
			{Name: "locatorValue", DataType: []string{"int"}},
		},
	}
	return s.client.Schema().ClassCreator().WithClass(class).Do(ctx)
}

func (s *Store) Index(ctx context.Context, chunks []bus.Chunk) error {
	for _, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("embed chunk: %w", err)
		}
		_, err = s.client.Data().Creator().
			WithClassName(className).
			WithProperties(map[string]interface{}{
				"content":        c.Text,
				"sourceDocument": c.SourceDocument,
				"docKind":        string(c.DocKind),
				"locatorValue":   c.Locator.Value,
			}).
			WithVector(vec).
			Do(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, query string, topK int) ([]agent.Hit, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "sourceDocument"},
		{Name: "docKind"},
		{Name: "locatorValue"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(nearVector).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	return parseHits(res.Data), nil
}

// parseHits walks the loosely-typed GraphQL response into Hits, skipping
// anything that does not have the expected shape.
func parseHits(data map[string]models.JSONObject) []agent.Hit {
	var hits []agent.Hit

	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return hits
	}
	objs, ok := get[className].([]interface{})
	if !ok {
		return hits
	}

	for _, o := range objs {
		props, ok := o.(map[string]interface{})
		if !ok {
			continue
		}
		var h agent.Hit
		if content, ok := props["content"].(string); ok {
			h.Text = content
		}
		if src, ok := props["sourceDocument"].(string); ok {
			h.SourceDocument = src
		}
		if kind, ok := props["docKind"].(string); ok {
			h.DocKind = bus.DocumentKind(kind)
		}
		if loc, ok := props["locatorValue"].(float64); ok {
			h.LocatorValue = int(loc)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				h.Score = float32(certainty)
			}
		}
		hits = append(hits, h)
	}
	return hits
}
