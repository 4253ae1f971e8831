package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"worksync-backend/pkg/ai"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SettingsHandler exposes the AI settings that can change while running
type SettingsHandler struct {
	settings *ai.Settings
}

func NewSettingsHandler(settings *ai.Settings) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// UpdateOllamaSettingsRequest represents the request body for updating Ollama settings
type UpdateOllamaSettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url" binding:"required,url"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

// GetOllamaSettings returns current Ollama configuration
// GET /api/settings/ollama
func (h *SettingsHandler) GetOllamaSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ollama_base_url": h.settings.OllamaBaseURL(),
		"ollama_model":    h.settings.OllamaModel(),
	})
}

// UpdateOllamaSettings updates Ollama configuration at runtime
// PUT /api/settings/ollama
func (h *SettingsHandler) UpdateOllamaSettings(c *gin.Context) {
	var req UpdateOllamaSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.settings.Update(req.OllamaBaseURL, req.OllamaModel)
	log.Printf("[Settings] Ollama set to %s (model %s)", req.OllamaBaseURL, h.settings.OllamaModel())

	c.JSON(http.StatusOK, gin.H{
		"message":         "Ollama settings updated successfully",
		"ollama_base_url": h.settings.OllamaBaseURL(),
		"ollama_model":    h.settings.OllamaModel(),
	})
}

// TestOllamaConnection tests if the Ollama server is reachable
// POST /api/settings/ollama/test
func (h *SettingsHandler) TestOllamaConnection(c *gin.Context) {
	var req struct {
		OllamaBaseURL string `json:"ollama_base_url"`
	}
	// No body means test the current config
	_ = c.ShouldBindJSON(&req)
	if req.OllamaBaseURL == "" {
		req.OllamaBaseURL = h.settings.OllamaBaseURL()
	}
	if _, err := url.ParseRequestURI(req.OllamaBaseURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ollama_base_url"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := ai.Ping(ctx, req.OllamaBaseURL); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":       true,
		"ollama_base_url": req.OllamaBaseURL,
	})
}
