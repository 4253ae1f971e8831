package ai

import "sync"

// Settings holds the Ollama settings that can be changed while running
type Settings struct {
	mu      sync.RWMutex
	baseURL string
	model   string
}

func NewSettings(baseURL, model string) *Settings {
	return &Settings{baseURL: baseURL, model: model}
}

func (s *Settings) OllamaBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

func (s *Settings) OllamaModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Update replaces the base URL, and the model when one is given
func (s *Settings) Update(baseURL, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = baseURL
	if model != "" {
		s.model = model
	}
}
