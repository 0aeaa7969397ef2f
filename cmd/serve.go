package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/voiceline/voiceline/internal/appointment"
	"github.com/voiceline/voiceline/internal/callcontext"
	"github.com/voiceline/voiceline/internal/config"
	"github.com/voiceline/voiceline/internal/db"
	"github.com/voiceline/voiceline/internal/dialogue"
	"github.com/voiceline/voiceline/internal/events"
	"github.com/voiceline/voiceline/internal/knowledge"
	"github.com/voiceline/voiceline/internal/script"
	"github.com/voiceline/voiceline/internal/server"
	"github.com/voiceline/voiceline/internal/telephony"
	"github.com/voiceline/voiceline/internal/userconfig"
	"github.com/voiceline/voiceline/internal/webhook"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the voiceline webhook server",
	Long:  `Starts the HTTP server that answers telephony webhooks, drives call conversations, and serves the management API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Credentials commonly live in .env during development.
		_ = godotenv.Load()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dbPath := filepath.Join(cfg.DataDir, "voiceline.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		knowledgeStore, err := knowledge.NewStore(embedder)
		if err != nil {
			return fmt.Errorf("creating knowledge store: %w", err)
		}
		if err := knowledgeStore.Load(context.Background(), cfg.DataDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load knowledge store from %s: %v\n", cfg.DataDir, err)
		}

		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		cache, err := buildCache(cfg)
		if err != nil {
			return err
		}

		publisher, err := buildPublisher(cfg)
		if err != nil {
			return err
		}
		defer publisher.Close()

		calls := callcontext.NewManager(callcontext.NewStore(database), cache)
		scripts := script.NewStore(database)
		appointments := appointment.NewStore(database)
		users := userconfig.NewStore(database)

		engine := dialogue.NewEngine(calls, provider, knowledgeStore, scripts, publisher, dialogue.Options{
			Model:          cfg.Model,
			MaxReplyTokens: cfg.MaxReplyTokens,
			KnowledgeTopK:  cfg.KnowledgeTopK,
		})
		finalizer := dialogue.NewFinalizer(calls, appointments, publisher)

		srv := server.New(server.Config{Port: servePort, AllowAll: true})
		r := srv.Router()

		hooks := webhook.NewHandler(engine, finalizer, userconfig.NewResolver(users),
			cfg.Telephony.PublicURL, cfg.Telephony.ValidateSignatures)
		hooks.RegisterRoutes(r)

		callsAPI := webhook.NewCallsAPI(calls, users, telephony.NewClient(cfg.Telephony.BaseURL), cfg.Telephony.PublicURL)
		callsAPI.RegisterRoutes(r)

		script.RegisterRoutes(r, scripts)
		userconfig.RegisterRoutes(r, users)
		appointment.RegisterRoutes(r, appointments)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Abandoned calls (provider never sent a terminal status) expire out
		// of the memory cache on a timer.
		if mc, ok := cache.(*callcontext.MemoryCache); ok {
			go sweepLoop(ctx, mc)
		}

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "voiceline v%s starting on port %d\n", Version, servePort)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  Provider: %s (%s)\n", cfg.Provider, cfg.Model)
		fmt.Fprintf(os.Stderr, "  Knowledge chunks: %d\n", knowledgeStore.Count())

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func buildCache(cfg *config.Config) (callcontext.Cache, error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	switch cfg.Cache.Driver {
	case config.CacheRedis:
		cache, err := callcontext.NewRedisCache(cfg.Cache.RedisAddr, ttl)
		if err != nil {
			return nil, fmt.Errorf("creating redis cache: %w", err)
		}
		return cache, nil
	default:
		return callcontext.NewMemoryCache(ttl, cfg.Cache.MaxEntries), nil
	}
}

func buildPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.Events.AMQPURL == "" {
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	return pub, nil
}

func sweepLoop(ctx context.Context, cache *callcontext.MemoryCache) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.Sweep()
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}
