package delivery

import (
	"net/http"

	"worksync-backend/internal/reminder/usecase"
	"worksync-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// ReminderHandler handles reminder HTTP requests
type ReminderHandler struct {
	reminderUsecase usecase.ReminderUsecase
}

func NewReminderHandler(reminderUsecase usecase.ReminderUsecase) *ReminderHandler {
	return &ReminderHandler{reminderUsecase: reminderUsecase}
}

// GET /api/reminders
func (h *ReminderHandler) List(c *gin.Context) {
	reminders, err := h.reminderUsecase.List(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders, "total": len(reminders)})
}

// GET /api/reminders/:id
func (h *ReminderHandler) Get(c *gin.Context) {
	reminder, err := h.reminderUsecase.Get(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

// POST /api/reminders
func (h *ReminderHandler) Create(c *gin.Context) {
	var req usecase.ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperror.KindInvalid})
		return
	}
	reminder, err := h.reminderUsecase.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

// PUT /api/reminders/:id
func (h *ReminderHandler) Update(c *gin.Context) {
	var req usecase.ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperror.KindInvalid})
		return
	}
	reminder, err := h.reminderUsecase.Update(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

// DELETE /api/reminders/:id
func (h *ReminderHandler) Delete(c *gin.Context) {
	if err := h.reminderUsecase.Delete(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reminder deleted"})
}
