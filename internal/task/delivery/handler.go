package delivery

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"worksync-backend/internal/board"
	"worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/store"
	"worksync-backend/internal/task/usecase"
	"worksync-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskUsecase usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{
		taskUsecase: taskUsecase,
	}
}

// StatusRequest is the body of a status change
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TranscriptRequest carries a meeting transcript
type TranscriptRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

// GetTasks returns all tasks the authenticated user is a member of
// GET /api/tasks
func (h *TaskHandler) GetTasks(c *gin.Context) {
	tasks, err := h.taskUsecase.ListTasks(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// GetBoard returns the board projection
// GET /api/board?q=deploy&status=todo,review&tag=ops&focus=true&fuzzy=true
func (h *TaskHandler) GetBoard(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	b, err := h.taskUsecase.Board(c.Request.Context(), c.GetString("userID"), filter)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GetInbox returns assignments waiting for the user
// GET /api/tasks/inbox
func (h *TaskHandler) GetInbox(c *gin.Context) {
	tasks, err := h.taskUsecase.Inbox(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// GetTaskByID returns a specific task
// GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	task, err := h.taskUsecase.GetTaskByID(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTask creates a new task
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req usecase.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperror.KindInvalid})
		return
	}
	task, res, err := h.taskUsecase.CreateTask(c.Request.Context(), c.GetString("userID"), req)
	h.accepted(c, http.StatusCreated, task, res, err)
}

// UpdateTask updates an existing task
// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req usecase.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperror.KindInvalid})
		return
	}
	task, res, err := h.taskUsecase.UpdateTask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	h.accepted(c, http.StatusOK, task, res, err)
}

// UpdateStatus moves a task to another column
// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperror.KindInvalid})
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		apperror.Respond(c, apperror.Invalid("task.status", err.Error()))
		return
	}
	res, err := h.taskUsecase.UpdateStatus(c.Request.Context(), c.GetString("userID"), c.Param("id"), status)
	h.accepted(c, http.StatusOK, gin.H{"id": c.Param("id"), "status": status}, res, err)
}

// DeleteTask deletes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	res, err := h.taskUsecase.DeleteTask(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	h.accepted(c, http.StatusOK, gin.H{"id": c.Param("id")}, res, err)
}

// AssignTask hands a task to another user
// POST /api/tasks/:id/assign
func (h *TaskHandler) AssignTask(c *gin.Context) {
	var req usecase.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperror.KindInvalid})
		return
	}
	task, res, err := h.taskUsecase.AssignTask(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	h.accepted(c, http.StatusOK, task, res, err)
}

// AcceptTask accepts a pending assignment
// POST /api/tasks/:id/accept
func (h *TaskHandler) AcceptTask(c *gin.Context) {
	task, res, err := h.taskUsecase.AcceptTask(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	h.accepted(c, http.StatusOK, task, res, err)
}

// DeclineTask declines a pending assignment
// POST /api/tasks/:id/decline
func (h *TaskHandler) DeclineTask(c *gin.Context) {
	task, res, err := h.taskUsecase.DeclineTask(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	h.accepted(c, http.StatusOK, task, res, err)
}

// Drop applies a drag-and-drop event
// POST /api/board/drop
func (h *TaskHandler) Drop(c *gin.Context) {
	var ev board.DropEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperror.KindInvalid})
		return
	}
	action, res, err := h.taskUsecase.Drop(c.Request.Context(), c.GetString("userID"), ev)
	if err == nil && res == nil {
		c.JSON(http.StatusOK, action)
		return
	}
	h.accepted(c, http.StatusOK, action, res, err)
}

// Escalate runs the due date escalation for the current session
// POST /api/tasks/escalate
func (h *TaskHandler) Escalate(c *gin.Context) {
	report, err := h.taskUsecase.Escalate(c.Request.Context(), c.GetString("userID"), c.GetString("sessionID"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExtractFromTranscript creates tasks from the action items of a transcript
// POST /api/tasks/extract
func (h *TaskHandler) ExtractFromTranscript(c *gin.Context) {
	var req TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperror.KindInvalid})
		return
	}
	tasks, err := h.taskUsecase.ExtractActionItems(c.Request.Context(), c.GetString("userID"), req.Transcript)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"tasks": tasks, "total": len(tasks)})
}

// accepted answers a write. Without ?wait=true the write is left running and
// 202 is returned; its failure reaches the user as a toast.
func (h *TaskHandler) accepted(c *gin.Context, done int, body interface{}, res store.Result, err error) {
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	if c.Query("wait") != "true" {
		c.JSON(http.StatusAccepted, body)
		return
	}
	if err := res.Wait(c.Request.Context()); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		apperror.Respond(c, err)
		return
	}
	c.JSON(done, body)
}

func parseFilter(c *gin.Context) (board.Filter, error) {
	filter := board.Filter{
		Search:            c.Query("q"),
		Tags:              splitList(c.QueryArray("tag")),
		FocusHighPriority: c.Query("focus") == "true",
		Fuzzy:             c.Query("fuzzy") == "true",
	}
	for _, raw := range splitList(c.QueryArray("status")) {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return filter, apperror.Invalid("task.board", err.Error())
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	return filter, nil
}

// splitList accepts both repeated parameters and comma separated values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
