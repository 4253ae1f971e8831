package delivery

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"worksync-backend/internal/flow"
	"worksync-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// FlowHandler exposes the AI flows over HTTP
type FlowHandler struct {
	registry *flow.Registry
}

func NewFlowHandler(registry *flow.Registry) *FlowHandler {
	return &FlowHandler{registry: registry}
}

// ListFlows returns the available flows
// GET /api/flows
func (h *FlowHandler) ListFlows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"flows": h.registry.List()})
}

// InvokeFlow runs one flow on the request body
// POST /api/flows/:name
func (h *FlowHandler) InvokeFlow(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	out, err := h.registry.Invoke(c.Request.Context(), c.Param("name"), json.RawMessage(body))
	if err != nil {
		if errors.Is(err, flow.ErrMalformedOutput) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": apperror.KindOf(err)})
			return
		}
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flow": c.Param("name"), "output": out})
}
