package delivery

import (
	"net/http"

	"worksync-backend/internal/preference"
	"worksync-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type PreferenceHandler struct {
	store preference.Store
}

func NewPreferenceHandler(store preference.Store) *PreferenceHandler {
	return &PreferenceHandler{store: store}
}

// GetPreferences returns every preference of the user
// GET /api/preferences
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.store.Get(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

// UpdatePreferences merges the given keys
// PUT /api/preferences
func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperror.KindInvalid})
		return
	}
	userID := c.GetString("userID")
	if err := h.store.Set(c.Request.Context(), userID, values); err != nil {
		apperror.Respond(c, err)
		return
	}
	h.GetPreferences(c)
}
