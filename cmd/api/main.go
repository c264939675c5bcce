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

	"github.com/joho/godotenv"

	"github.com/hearthlight/backend/internal/assets"
	"github.com/hearthlight/backend/internal/config"
	"github.com/hearthlight/backend/internal/generate"
	"github.com/hearthlight/backend/internal/handler"
	generateHandler "github.com/hearthlight/backend/internal/handler/generate"
	"github.com/hearthlight/backend/internal/narrative"
	"github.com/hearthlight/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	chronicleStore, err := store.New(cfg.Storage.DBPath())
	if err != nil {
		log.Fatalf("failed to open chronicle store: %v", err)
	}
	defer chronicleStore.Close()

	pool := assets.NewPool(cfg.Storage.AssetDir, "/assets/pool")

	// Prose is the one required artifact; the other clients are optional
	// and the service degrades gracefully without their credentials.
	var proseClient *generate.ProseClient
	if cfg.Prose.Enabled() {
		chatModel, err := cfg.Prose.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize prose model: %v", err)
			log.Println("continuing without remote prose generation")
		} else {
			proseClient = generate.NewProseClient(chatModel)
			log.Println("prose model initialized")
		}
	} else {
		log.Println("prose model credentials not configured, relying on local pool only")
	}

	var mediaClient *generate.MediaClient
	if cfg.Media.Enabled() {
		mediaClient = generate.NewMediaClient(generate.MediaConfig{
			BaseURL:      cfg.Media.BaseURL,
			APIToken:     cfg.Media.APIToken,
			ModelVersion: cfg.Media.ModelVersion,
			Width:        cfg.Media.Width,
			Height:       cfg.Media.Height,
			Steps:        cfg.Media.Steps,
			Guidance:     cfg.Media.Guidance,
			PollInterval: cfg.Media.PollInterval,
			MaxAttempts:  cfg.Media.MaxAttempts,
		}, narrative.NegativeImagePrompt)
		log.Println("media backend initialized")
	} else {
		log.Println("media backend credentials not configured, skipping image and animation generation")
	}

	var speechClient *generate.SpeechClient
	if cfg.Speech.Enabled {
		speechClient = generate.NewSpeechClient(generate.SpeechConfig{
			Endpoint:    cfg.Speech.Endpoint,
			AppID:       cfg.Speech.AppID,
			AccessToken: cfg.Speech.AccessToken,
			Voice:       cfg.Speech.Voice,
			Speed:       cfg.Speech.Speed,
			Volume:      cfg.Speech.Volume,
		}, cfg.Storage.MediaDir, "/media")
		log.Println("speech backend initialized")
	} else {
		log.Println("speech backend credentials not configured, skipping narration")
	}

	// Typed nils must not reach the orchestrator's nil checks.
	var proseC, mediaC, speechC generate.Client
	if proseClient != nil {
		proseC = proseClient
	}
	if mediaClient != nil {
		mediaC = mediaClient
	}
	if speechClient != nil {
		speechC = speechClient
	}

	orchestrator := generate.NewOrchestrator(pool, proseC, mediaC, mediaC, speechC)
	genHandler := generateHandler.New(orchestrator, proseC, mediaC, pool)

	router := handler.NewRouter(chronicleStore, genHandler, handler.StaticDirs{
		AssetPool:     cfg.Storage.AssetDir,
		Media:         cfg.Storage.MediaDir,
		PublicBaseURL: cfg.Server.PublicBaseURL,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Hearthlight backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
