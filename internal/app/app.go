// Package app composes the pipeline: bus, stages, collaborators and the
// HTTP surface.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"docqa/features/chat"
	"docqa/internal/agent"
	"docqa/internal/bus"
	"docqa/internal/config"
	"docqa/internal/middleware"
	"docqa/internal/parser"
)

type App struct {
	Handler      http.Handler
	Presentation *agent.Presentation
	Dispatcher   *bus.Dispatcher

	port int
}

// New wires an isolated pipeline instance. Index is required; Generator and
// AuditTap may be nil (extractive fallback, no tap).
func New(cfg *config.Config, deps *Dependencies) (*App, error) {
	if deps == nil || deps.Index == nil {
		return nil, fmt.Errorf("app: vector index is required")
	}

	router := bus.NewRouter()
	dispatcher := bus.NewDispatcher(router)
	if deps.AuditTap != nil {
		dispatcher.WithAuditTap(deps.AuditTap, cfg.AuditTopic)
	}

	presentation := agent.NewPresentation(dispatcher)
	err := agent.Mount(router,
		agent.NewIngestion(dispatcher, parser.New()),
		agent.NewRetrieval(dispatcher, deps.Index),
		agent.NewGeneration(dispatcher, deps.Generator, cfg.RetrievalTopK),
		presentation,
	)
	if err != nil {
		return nil, err
	}

	chatHandler := chat.NewHandler(presentation, cfg.MaxUploadSizeMB)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(chatHandler.Upload)))
	mux.Handle("POST /chat", middleware.CorrelationID(enableCORS(chatHandler.Ask)))
	mux.Handle("GET /chat/{traceId}", middleware.CorrelationID(enableCORS(chatHandler.Poll)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:      mux,
		Presentation: presentation,
		Dispatcher:   dispatcher,
		port:         cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
