package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// Gemini collaborators. An empty API key disables the model adapters:
	// answers come from the extractive fallback and the in-memory index
	// embeds locally.
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"gemini-1.5-flash-latest"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`

	// Retrieval
	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"5"`

	// Optional Weaviate backend; empty host means in-memory index.
	WeaviateHost   string `envconfig:"WEAVIATE_HOST"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	// Optional NSQ audit tap; empty host means no tap.
	NSQDHost   string `envconfig:"NSQD_HOST"`
	AuditTopic string `envconfig:"AUDIT_TOPIC" default:"pipeline.audit"`

	// Server
	ServerPort      int   `envconfig:"SERVER_PORT" default:"8081"`
	MaxUploadSizeMB int64 `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
}

func Load() (*Config, error) {
	// Env vars may come from the shell instead; a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("%w: RETRIEVAL_TOP_K must be positive", ErrInvalid)
	}
	if c.ServerPort <= 0 {
		return fmt.Errorf("%w: SERVER_PORT must be positive", ErrInvalid)
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("%w: MAX_UPLOAD_SIZE_MB must be positive", ErrInvalid)
	}
	return nil
}
