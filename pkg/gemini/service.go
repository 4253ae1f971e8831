package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiService struct {
	ApiKey  string
	Model   string
	BaseURL string
	client  *http.Client
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiService{
		ApiKey:  apiKey,
		Model:   model,
		BaseURL: defaultBaseURL,
		client:  &http.Client{Timeout: time.Minute},
	}
}

func (g *GeminiService) Name() string { return "gemini" }

// Complete sends prompt to generateContent and returns the first candidate's text
func (g *GeminiService) Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.BaseURL, g.Model, g.ApiKey)

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	if jsonOutput {
		payload["generationConfig"] = map[string]interface{}{
			"responseMimeType": "application/json",
			"temperature":      0.2,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
