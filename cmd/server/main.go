// File: cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-muro/internal/config"
	"github.com/iyunix/go-muro/internal/handlers"
	"github.com/iyunix/go-muro/internal/middleware"
	"github.com/iyunix/go-muro/internal/ratelimit"
	"github.com/iyunix/go-muro/internal/render"
	"github.com/iyunix/go-muro/internal/repository"
	"github.com/iyunix/go-muro/internal/repository/conversation"
	"github.com/iyunix/go-muro/internal/repository/message"
	"github.com/iyunix/go-muro/internal/services"
	"github.com/iyunix/go-muro/internal/services/ai"
	"github.com/iyunix/go-muro/internal/services/chat"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: configuration error: %v", err)
	}
	logger := services.NewLogger("muro")

	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}
	defer repository.Close(db)
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}

	// --- Repositories ---
	clock := repository.NewClock()
	conversationRepo := conversation.NewConversationRepository(db, clock, logger)
	messageRepo := message.NewMessageRepository(db, clock, logger)

	// --- Services ---
	counter, err := ai.NewTokenCounter()
	if err != nil {
		log.Fatalf("FATAL: Failed to load tokenizer: %v", err)
	}
	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenAIAPIKey
	aiConfig.BaseURL = cfg.OpenAIBaseURL
	aiConfig.Model = cfg.OpenAIModel
	aiConfig.MaxTokens = cfg.OpenAIMaxTokens
	aiConfig.ContextMaxTokens = cfg.ContextMaxTokens
	provider, err := ai.NewOpenAIProvider(aiConfig, counter)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize AI provider: %v", err)
	}

	chatConfig := chat.DefaultConfig()
	chatConfig.Mode = chat.GenerationMode(cfg.GenerationMode)
	chatConfig.StreamDelay = cfg.StreamDelay
	streaming, err := chat.NewStreamingService(chatConfig, conversationRepo, messageRepo, provider, logger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize streaming service: %v", err)
	}

	recoverCtx, cancelRecover := context.WithTimeout(context.Background(), 10*time.Second)
	if n, err := streaming.RecoverAbandoned(recoverCtx); err != nil {
		logger.Error("failed to recover abandoned turns", "error", err)
	} else if n > 0 {
		logger.Warn("marked abandoned turns as failed", "count", n)
	}
	cancelRecover()

	conversationService := services.NewConversationService(conversationRepo, messageRepo, logger)

	limiter := ratelimit.NewMemoryRateLimiter(&ratelimit.Config{
		WindowSize:    cfg.RateLimitWindow,
		MaxAttempts:   cfg.RateLimitTurns,
		CleanupPeriod: 5 * time.Minute,
	})
	defer limiter.Close()

	// --- Router Setup ---
	r := mux.NewRouter()
	r.Use(middleware.RecoverPanic(logger))
	r.Use(middleware.LoggingMiddleware(logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})

	handlers.RegisterRoutes(r,
		handlers.NewConversationHandler(conversationService, render.NewRenderer(), logger),
		handlers.NewStreamHandler(streaming, logger),
		middleware.RateLimitMiddleware(limiter, "turns", logger),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           middleware.CORS(cfg.CORSOrigin)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server starting",
		"port", cfg.ServerPort,
		"database", cfg.DatabasePath,
		"model", cfg.OpenAIModel,
		"mode", cfg.GenerationMode)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped")
}
