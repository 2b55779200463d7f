package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the engine service, loaded from
// the environment (and a .env file during local development).
type AppConfig struct {
	Port    string
	GinMode string

	// ToolsDir is the directory of YAML tool configuration records.
	ToolsDir string

	RedisAddr string

	// Provider selects the generation backend: "gemini" or "openai".
	Provider string

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIAPIURL string
}

const (
	defaultPort        = "8080"
	defaultToolsDir    = "./data/tools"
	defaultProvider    = "gemini"
	defaultGeminiModel = "gemini-1.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

// LoadConfig loads all configuration from a .env file and environment
// variables. In release mode configuration is expected to come directly
// from the environment (e.g. via Docker Compose), so the .env lookup is
// skipped.
func LoadConfig() (*AppConfig, error) {
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("WARNING: No .env file found for local development.")
		}
	}

	cfg := &AppConfig{
		Port:         getEnv("PORT", defaultPort),
		GinMode:      os.Getenv("GIN_MODE"),
		ToolsDir:     getEnv("TOOLS_DIR", defaultToolsDir),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		Provider:     getEnv("GENERATOR_PROVIDER", defaultProvider),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", defaultGeminiModel),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getEnv("OPENAI_MODEL", defaultOpenAIModel),
		OpenAIAPIURL: os.Getenv("OPENAI_API_URL"),
	}

	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR environment variable is not set")
	}

	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY must be set for the gemini provider")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY must be set for the openai provider")
		}
	default:
		return nil, fmt.Errorf("unknown GENERATOR_PROVIDER %q (want gemini or openai)", cfg.Provider)
	}

	return cfg, nil
}

// getEnv reads an env var or returns a default.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
