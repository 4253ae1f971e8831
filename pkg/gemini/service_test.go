package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompleteSendsJSONMimeType(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") || r.URL.Query().Get("key") != "k" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"ok\":true}"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiService("k", "test-model")
	g.BaseURL = srv.URL

	out, err := g.Complete(context.Background(), "hello", true)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("unexpected output %q", out)
	}
	cfg, _ := got["generationConfig"].(map[string]interface{})
	if cfg["responseMimeType"] != "application/json" {
		t.Fatalf("expected JSON mime type, got %v", got)
	}
}

func TestCompleteReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	g := NewGeminiService("k", "")
	g.BaseURL = srv.URL
	_, err := g.Complete(context.Background(), "hello", false)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}
