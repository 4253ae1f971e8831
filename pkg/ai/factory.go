package ai

import (
	"fmt"

	"worksync-backend/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	GeminiAPIKey string
	GeminiModel  string

	// Ollama settings are read through Settings so they can change at runtime
	Settings *Settings
}

// NewCompleter creates a Completer based on the config.
// "auto" chains Gemini and Ollama when a Gemini key is set, otherwise Ollama alone.
func NewCompleter(cfg Config) (Completer, error) {
	ollama := NewOllamaServiceWithGetters(cfg.Settings.OllamaBaseURL, cfg.Settings.OllamaModel)

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel), nil

	case ProviderOllama:
		return ollama, nil

	case ProviderAuto, "":
		if cfg.GeminiAPIKey != "" {
			return NewFallbackService(gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel), ollama), nil
		}
		return ollama, nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
