package factory

import (
	"fmt"
	"time"

	"ai-therapist-be/pkg/llm"
	"ai-therapist-be/pkg/llm/groq"
	"ai-therapist-be/pkg/llm/ollama"
)

type ProviderConfig struct {
	Provider      string // "groq" or "ollama"
	Model         string
	GroqAPIKey    string
	GroqBaseURL   string
	OllamaBaseURL string
	Timeout       time.Duration
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("groq provider requires an API key")
		}
		return groq.NewGroqProvider(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.Model, cfg.Timeout), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
