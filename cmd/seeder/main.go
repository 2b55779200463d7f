// Package main implements the offline tool-idea synthesis job. It reads a
// list of topics, asks the generation service to design a complete tool
// configuration for each one, and writes the results into the catalog
// directory as YAML records. The engine service only ever reads that
// directory; this job is the sole writer.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dileep-u-k/toolforge/internal/catalog"
	"github.com/dileep-u-k/toolforge/internal/llm"
)

const (
	defaultTopicsFile = "./data/topics.txt"
	defaultToolsDir   = "./data/tools"
	maxRetries        = 3
	initialRetryDelay = 2 * time.Second
	maxWorkers        = 4
)

// synthesisSystemPrompt instructs the model to design one tool record.
const synthesisSystemPrompt = "You design small single-purpose generative tools. Given a topic, " +
	"produce the configuration for one such tool as a single JSON object with exactly these keys: " +
	`"slug" (kebab-case identifier), "title", "description", "inputLabel", "outputLabel", ` +
	`"systemPrompt" (the tool's full base instructions, at least three sentences), ` +
	`"temperature" (0.0-1.0), "capabilities" (subset of ["text-input","presets","structured-output","clarify-first","saved-history"]), ` +
	`"presets" (optional, up to three of {"label","prompt","hint"}), ` +
	`"defaultOutputFormat" and "jsonSchemaHint" (only with structured-output), ` +
	`"clarifyPrompt" and "finalizePrompt" (only with clarify-first). ` +
	"Output the JSON object and nothing else."

// Config holds the seeder's settings.
type Config struct {
	TopicsFile   string
	ToolsDir     string
	GeminiAPIKey string
	GeminiModel  string
}

func loadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found. Relying on environment variables.")
	}
	cfg := &Config{
		TopicsFile:   getEnv("TOPICS_FILE", defaultTopicsFile),
		ToolsDir:     getEnv("TOOLS_DIR", defaultToolsDir),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set")
	}
	return cfg, nil
}

// getEnv reads an env var or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Seeder synthesizes tool configurations from topics.
type Seeder struct {
	config    *Config
	generator llm.Generator
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("❌ Configuration Error: %v", err)
	}

	generator, err := llm.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("❌ Failed to create generator: %v", err)
	}

	seeder := &Seeder{config: cfg, generator: generator}
	if err := seeder.Run(); err != nil {
		log.Fatalf("❌ Seeding process failed: %v", err)
	}
}

// Run reads the topic list and fans it out over a bounded worker pool.
func (s *Seeder) Run() error {
	log.Println("🚀 Starting tool-idea synthesis...")
	topics, err := s.readTopics()
	if err != nil {
		return fmt.Errorf("failed to read topics: %w", err)
	}
	if len(topics) == 0 {
		log.Println("No topics found, nothing to do.")
		return nil
	}
	log.Printf("Found %d topics.", len(topics))

	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for topic := range jobs {
				if err := s.synthesizeTopic(topic); err != nil {
					log.Printf("❌ Error synthesizing tool for topic %q: %v", topic, err)
				}
			}
		}()
	}
	for _, topic := range topics {
		jobs <- topic
	}
	close(jobs)
	wg.Wait()

	log.Println("✅ Tool-idea synthesis complete.")
	return nil
}

// readTopics loads one topic per line, skipping blanks and # comments.
func (s *Seeder) readTopics() ([]string, error) {
	content, err := os.ReadFile(s.config.TopicsFile)
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topics = append(topics, line)
	}
	return topics, nil
}

// synthesizeTopic asks the model for one tool configuration and writes it
// to the catalog directory, skipping slugs that already exist.
func (s *Seeder) synthesizeTopic(topic string) error {
	log.Printf("💡 Synthesizing tool for topic: %q", topic)

	cfg, err := s.generateConfig(topic)
	if err != nil {
		return err
	}

	normalized := catalog.Normalize(*cfg)
	if normalized.Slug == "" || normalized.SystemPrompt == "" {
		return fmt.Errorf("synthesized config for %q is missing slug or system prompt", topic)
	}

	path := filepath.Join(s.config.ToolsDir, normalized.Slug+".yaml")
	if _, err := os.Stat(path); err == nil {
		log.Printf("Tool %q already exists, skipping.", normalized.Slug)
		return nil
	}

	raw, err := yaml.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to marshal tool %q: %w", normalized.Slug, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write tool file %q: %w", path, err)
	}
	log.Printf("✅ Wrote %s", path)
	return nil
}

// generateConfig calls the model with retries and exponential backoff
// until the response parses as a tool configuration.
func (s *Seeder) generateConfig(topic string) (*catalog.ToolConfig, error) {
	delay := initialRetryDelay
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		raw, err := s.generator.Generate(ctx, synthesisSystemPrompt, topic, 0.7)
		cancel()
		if err != nil {
			lastErr = err
		} else {
			var cfg catalog.ToolConfig
			cleaned := stripFence(raw)
			if err := json.Unmarshal([]byte(cleaned), &cfg); err != nil {
				lastErr = fmt.Errorf("response did not parse as a tool config: %w", err)
			} else {
				return &cfg, nil
			}
		}

		log.Printf("Attempt %d/%d for topic %q failed: %v", attempt, maxRetries, topic, lastErr)
		if attempt < maxRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return nil, lastErr
}

// stripFence removes a markdown code fence wrapping the whole response.
func stripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
