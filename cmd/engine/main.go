package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dileep-u-k/toolforge/internal/catalog"
	"github.com/dileep-u-k/toolforge/internal/engine"
	"github.com/dileep-u-k/toolforge/internal/history"
	"github.com/dileep-u-k/toolforge/internal/llm"
	"github.com/dileep-u-k/toolforge/internal/stats"
)

// main is the composition root: it loads configuration, initializes all
// services, injects dependencies, and starts the server.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	buildInfo := GetBuildInfo()
	log.Printf("🚀 Starting ToolForge Engine | Version: %s | Commit: %s", buildInfo.Version, buildInfo.GitCommit)

	// 1. LOAD CONFIGURATION
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("❌ FATAL: Configuration Error: %v", err)
	}
	log.Println("✅ Configuration loaded.")

	// 2. INITIALIZE SERVICES
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ FATAL: Could not connect to Redis: %v", err)
	}

	store, err := catalog.NewFileStore(cfg.ToolsDir)
	if err != nil {
		log.Fatalf("❌ FATAL: Could not load tool catalog: %v", err)
	}

	generator, err := initializeGenerator(cfg)
	if err != nil {
		log.Fatalf("❌ FATAL: %v", err)
	}

	recorder := stats.NewRecorder(rdb)
	historyStore := history.NewStore(rdb)
	eng := engine.New(store, generator)

	handler := NewEngineHandler(store, eng, historyStore, recorder)
	log.Println("✅ All services initialized.")

	// 3. START BACKGROUND PROCESSES
	go startHealthProbe(cfg.Provider, generator, recorder)

	// 4. SETUP AND RUN THE WEB SERVER
	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	v1 := router.Group("/api/v1")
	{
		v1.GET("/tools", handler.HandleListTools)
		v1.GET("/tools/:slug", handler.HandleGetTool)
		v1.POST("/tools/:slug/execute", handler.HandleExecute)
		v1.POST("/tools/:slug/save", handler.HandleSave)
		v1.GET("/tools/:slug/saved", handler.HandleListSaved)
		v1.POST("/tools/:slug/saved/:id/rate", handler.HandleRate)
		v1.GET("/tools/:slug/stats", handler.HandleStats)
	}

	srv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.Port), Handler: router}
	runServerWithGracefulShutdown(srv)
}

// initializeGenerator creates the generation client for the configured
// provider.
func initializeGenerator(cfg *AppConfig) (llm.Generator, error) {
	switch cfg.Provider {
	case "gemini":
		gen, err := llm.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini generator: %w", err)
		}
		log.Printf("✅ Gemini generator initialized (model: %s).", cfg.GeminiModel)
		return gen, nil
	case "openai":
		gen, err := llm.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIAPIURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai generator: %w", err)
		}
		log.Printf("✅ OpenAI generator initialized (model: %s).", cfg.OpenAIModel)
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}

// startHealthProbe runs a background goroutine that proactively checks
// the generation provider and records its status.
func startHealthProbe(provider string, generator llm.Generator, recorder *stats.Recorder) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	log.Println("🩺 Generator health probe started.")

	runCheck := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err := generator.Generate(ctx, "", "Reply with the single word: ok", 0)
		cancel()

		isHealthy := err == nil
		recorder.RecordProviderHealth(context.Background(), provider, isHealthy)
		log.Printf("Health check for provider %s: Healthy = %v", provider, isHealthy)
	}

	go runCheck()
	for range ticker.C {
		runCheck()
	}
}

// runServerWithGracefulShutdown handles the server lifecycle.
func runServerWithGracefulShutdown(srv *http.Server) {
	go func() {
		log.Printf("👂 Engine is listening on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Listen error: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server shutdown failed:", err)
	}

	log.Println("👋 Server exited gracefully.")
}
