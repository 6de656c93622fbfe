package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaenox/jobpost-bot/internal/bot"
	"github.com/xaenox/jobpost-bot/internal/classifier"
	"github.com/xaenox/jobpost-bot/internal/conversation"
	"github.com/xaenox/jobpost-bot/internal/dispatch"
	"github.com/xaenox/jobpost-bot/internal/jobdesc"
	"github.com/xaenox/jobpost-bot/internal/knowledge"
	"github.com/xaenox/jobpost-bot/internal/llm"
	"github.com/xaenox/jobpost-bot/internal/metrics"
	"github.com/xaenox/jobpost-bot/internal/poster"
	"github.com/xaenox/jobpost-bot/internal/storage"
	"github.com/xaenox/jobpost-bot/pkg/config"
	"github.com/xaenox/jobpost-bot/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	// Initialize logger
	log, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		Development: cfg.Log.Development,
	})
	if err != nil {
		zap.NewExample().Fatal("Failed to create logger", zap.Error(err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	company, err := knowledge.Load(cfg.Knowledge.Dir, log)
	if err != nil {
		log.Fatal("Failed to load company knowledge", zap.Error(err), zap.String("dir", cfg.Knowledge.Dir))
	}

	completer := newCompleter(cfg, log)

	// Initialize storage
	conversations, err := newConversationStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize conversation storage", zap.Error(err))
	}
	defer conversations.Close()

	drafts, err := newDraftStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize draft storage", zap.Error(err))
	}
	defer drafts.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	linkedin := poster.NewLinkedInPoster(poster.LinkedInOptions{
		AccessToken: cfg.LinkedIn.AccessToken,
		AuthorURN:   cfg.LinkedIn.PersonURN,
		APIURL:      cfg.LinkedIn.APIURL,
		Timeout:     cfg.LinkedIn.Timeout,
	}, log)

	dispatcher := dispatch.New(
		classifier.NewLLMClassifier(completer, company, log),
		jobdesc.NewLLMGenerator(completer, company, log),
		linkedin,
		drafts,
		recorder,
		log,
	)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, drafts, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	engine := conversation.NewEngine(conversations, dispatcher, b, recorder, log)

	log.Info("Bot started",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("model", completer.Model()),
		zap.String("drafts", cfg.Drafts.Backend),
		zap.String("conversations", cfg.Conversations.Backend))

	// Start the bot
	if err := b.Start(ctx, engine); err != nil {
		log.Fatal("Bot error", zap.Error(err))
	}
	log.Info("Bot stopped")
}

func newCompleter(cfg *config.Config, log *zap.Logger) llm.Completer {
	if cfg.LLM.Provider == "gemini" {
		log.Info("Using Gemini", zap.String("model", cfg.Gemini.Model))
		return llm.NewGeminiClient(llm.GeminiOptions{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			MaxTokens:   cfg.Gemini.MaxTokens,
			Temperature: cfg.Gemini.Temperature,
		})
	}

	log.Info("Using OpenAI", zap.String("model", cfg.OpenAI.Model))
	return llm.NewOpenAIClient(llm.OpenAIOptions{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
	})
}

func newConversationStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.ConversationStore, error) {
	c := cfg.Conversations
	if c.Backend == "redis" {
		log.Info("Using Redis conversation storage")
		return storage.NewRedisStorage(ctx, cfg.Redis.URL, c.IdleTimeout, c.CompletedTTL)
	}

	log.Info("Using in-memory conversation storage")
	return storage.NewMemoryStorage(c.IdleTimeout, c.CompletedTTL), nil
}

func newDraftStore(cfg *config.Config, log *zap.Logger) (storage.DraftStore, error) {
	switch cfg.Drafts.Backend {
	case "postgres":
		log.Info("Using PostgreSQL draft storage")
		db := cfg.Database
		return storage.NewPostgresDraftStore(storage.DatabaseConfig{
			Host:     db.Host,
			Port:     db.Port,
			User:     db.User,
			Password: db.Password,
			DBName:   db.DBName,
			SSLMode:  db.SSLMode,
		}, log)
	case "sqlite":
		log.Info("Using SQLite draft storage", zap.String("path", cfg.Drafts.SQLitePath))
		return storage.NewSQLiteDraftStore(cfg.Drafts.SQLitePath, log)
	default:
		log.Info("Using file draft storage", zap.String("path", cfg.Drafts.FilePath))
		return storage.NewFileDraftStore(cfg.Drafts.FilePath), nil
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err), zap.String("addr", addr))
		}
	}()
	log.Info("Serving metrics", zap.String("addr", addr))
	return srv
}
