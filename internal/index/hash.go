package index

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// hashDims is the dimensionality of the bag-of-words embedding.
const hashDims = 256

// HashEmbedder is a deterministic local embedder: lowercased tokens hashed
// into a fixed-size term-frequency vector. No model, no network; token
// overlap approximates similarity. It backs the in-memory index when no API
// key is configured and keeps tests reproducible.
type HashEmbedder struct{}

func NewHashEmbedder() *HashEmbedder { return &HashEmbedder{} }

func (HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, hashDims)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%hashDims]++
	}
	return vec, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
