package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaService implements Completer using an Ollama server
type OllamaService struct {
	getBaseURL func() string // Dynamic getter for BaseURL
	getModel   func() string // Dynamic getter for Model
	client     *http.Client
}

// NewOllamaService creates a new Ollama service with fixed settings
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return NewOllamaServiceWithGetters(
		func() string { return baseURL },
		func() string { return model },
	)
}

// NewOllamaServiceWithGetters creates an Ollama service whose server and model
// can change at runtime
func NewOllamaServiceWithGetters(getBaseURL, getModel func() string) *OllamaService {
	return &OllamaService{
		getBaseURL: getBaseURL,
		getModel:   getModel,
		client:     &http.Client{Timeout: 2 * time.Minute},
	}
}

func (o *OllamaService) Name() string { return string(ProviderOllama) }

// Complete implements Completer
func (o *OllamaService) Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	url := strings.TrimRight(o.getBaseURL(), "/") + "/api/generate"

	payload := map[string]interface{}{
		"model":  o.getModel(),
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.2,
		},
	}
	if jsonOutput {
		payload["format"] = "json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Response, nil
}

// Ping checks that an Ollama server answers at baseURL
func Ping(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}
