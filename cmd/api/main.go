// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-concierge/internal/config"
	"github.com/capitalize-ai/event-concierge/internal/handler"
	"github.com/capitalize-ai/event-concierge/internal/intent"
	"github.com/capitalize-ai/event-concierge/internal/llm"
	natsclient "github.com/capitalize-ai/event-concierge/internal/nats"
	"github.com/capitalize-ai/event-concierge/internal/nlu"
	"github.com/capitalize-ai/event-concierge/internal/reply"
	"github.com/capitalize-ai/event-concierge/internal/service"
	"github.com/capitalize-ai/event-concierge/internal/store"
	"github.com/capitalize-ai/event-concierge/internal/suggest"
	"github.com/capitalize-ai/event-concierge/pkg/logger"
	"github.com/capitalize-ai/event-concierge/pkg/tracing"
)

// conversationBackend is what both store drivers provide.
type conversationBackend interface {
	store.ConversationStore
	store.Catalog
	store.CatalogWriter
}

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewWithFile(cfg.LogLevel, logger.FileOptions{Path: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info("starting API server",
		zap.String("store", cfg.StoreDriver),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.Bool("nats", cfg.NATSEnabled),
	)

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "event-concierge", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	backend, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	if cfg.SeedCatalog {
		seeded, err := store.Seed(ctx, backend, time.Now())
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		log.Info("catalog seed checked", zap.Bool("seeded", seeded))
	}

	// The journal stays a nil interface unless NATS is enabled.
	var (
		journal    service.Journal
		replayer   service.EventReplayer
		natsHealth handler.ConnChecker
	)
	if cfg.NATSEnabled {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		journal, replayer, natsHealth = streamManager, streamManager, natsClient
	}

	remote, generator := newNLU(cfg, log)

	resolver := intent.NewResolver(remote, intent.NewExtractor(), log)
	retriever := suggest.NewRetriever(backend, cfg.EventQueryLimit, log).WithQueryTimeout(cfg.CatalogTimeout)
	synthesizer := reply.NewSynthesizer(generator, log)

	orchestrator := service.NewOrchestrator(backend, resolver, retriever, synthesizer, journal,
		service.OrchestratorConfig{GreetingShortCircuit: cfg.GreetingShortCircuit}, log)
	conversations := service.NewConversationService(backend, journal, replayer, log)

	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:         cfg.JWTSecret,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, handler.Handlers{
		Health:        handler.NewHealthHandler(backend, natsHealth),
		Conversations: handler.NewConversationHandler(conversations, log),
		Messages:      handler.NewMessageHandler(orchestrator, log),
		Stream:        handler.NewStreamHandler(orchestrator, log),
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func openStore(cfg *config.Config) (conversationBackend, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return store.NewMemory(), nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		s, err := store.NewSQLite(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	}
}

// newNLU builds the remote extractor and reply generator. Both are nil
// when no provider is configured, which sends every message down the
// rule-based and template paths.
func newNLU(cfg *config.Config, log *logger.Logger) (intent.RemoteExtractor, reply.Generator) {
	if cfg.LLMProvider == config.ProviderNone {
		return nil, nil
	}

	apiKey := cfg.OpenAIAPIKey
	if cfg.LLMProvider == config.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}

	llmClient, err := llm.NewClient(llm.Provider(cfg.LLMProvider), llm.Options{
		APIKey:  apiKey,
		BaseURL: cfg.LLMBaseURL,
	})
	if err != nil {
		log.Warn("LLM client unavailable, using rule-based fallbacks", zap.Error(err))
		return nil, nil
	}

	client, err := nlu.NewClient(llmClient, nlu.Config{
		ExtractModel: cfg.NLUModel,
		ReplyModel:   cfg.ReplyModel,
		Timeout:      cfg.NLUTimeout,
		ReplyTimeout: cfg.ReplyTimeout,
	}, log)
	if err != nil {
		log.Warn("NLU client unavailable, using rule-based fallbacks", zap.Error(err))
		return nil, nil
	}
	return client, client
}
