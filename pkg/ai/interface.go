package ai

import "context"

// Completer sends one prompt to a text-completion model and returns the raw
// text it produced. Implement this interface to add new AI providers.
type Completer interface {
	// Complete runs prompt. With jsonOutput set the provider is asked to
	// answer with a single JSON document.
	Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error)
	Name() string
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
