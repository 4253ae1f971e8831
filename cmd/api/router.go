package api

import (
	"net/http"
	"time"

	"worksync-backend/internal/auth/delivery"
	"worksync-backend/pkg/metrics"
	"worksync-backend/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	authUsecase := h.deps.AuthUsecase
	authHandler := delivery.NewAuthHandler(authUsecase)
	requireAuth := delivery.AuthMiddleware(authUsecase)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
		})

		// SSE endpoint
		api.GET("/events", requireAuth, h.streamEvents)

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", requireAuth, authHandler.Me)
			auth.POST("/logout", authHandler.Logout)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", h.taskHandler.GetTasks)
			tasks.POST("", h.taskHandler.CreateTask)
			tasks.GET("/inbox", h.taskHandler.GetInbox)
			tasks.POST("/escalate", h.taskHandler.Escalate)
			tasks.GET("/:id", h.taskHandler.GetTaskByID)
			tasks.PUT("/:id", h.taskHandler.UpdateTask)
			tasks.DELETE("/:id", h.taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", h.taskHandler.UpdateStatus)
			tasks.POST("/:id/assign", h.taskHandler.AssignTask)
			tasks.POST("/:id/accept", h.taskHandler.AcceptTask)
			tasks.POST("/:id/decline", h.taskHandler.DeclineTask)
		}

		board := api.Group("/board")
		board.Use(requireAuth)
		{
			board.GET("", h.taskHandler.GetBoard)
			board.POST("/drop", h.taskHandler.Drop)
		}

		reminders := api.Group("/reminders")
		reminders.Use(requireAuth)
		{
			reminders.GET("", h.reminderHandler.List)
			reminders.POST("", h.reminderHandler.Create)
			reminders.GET("/:id", h.reminderHandler.Get)
			reminders.PUT("/:id", h.reminderHandler.Update)
			reminders.DELETE("/:id", h.reminderHandler.Delete)
		}

		prefs := api.Group("/preferences")
		prefs.Use(requireAuth)
		{
			prefs.GET("", h.prefHandler.GetPreferences)
			prefs.PUT("", h.prefHandler.UpdatePreferences)
		}

		// AI routes are rate limited per user
		if h.flowHandler != nil {
			limit := ratelimit.Middleware(h.deps.FlowLimiter, func(c *gin.Context) string {
				return c.GetString("userID")
			})
			api.POST("/tasks/extract", requireAuth, limit, h.taskHandler.ExtractFromTranscript)

			flows := api.Group("/flows")
			flows.Use(requireAuth)
			{
				flows.GET("", h.flowHandler.ListFlows)
				flows.POST("/:name", limit, h.flowHandler.InvokeFlow)
			}
		}

		// Settings routes - runtime AI configuration
		settings := api.Group("/settings")
		settings.Use(requireAuth)
		{
			settings.GET("/ollama", h.settingsHandler.GetOllamaSettings)
			settings.PUT("/ollama", h.settingsHandler.UpdateOllamaSettings)
			settings.POST("/ollama/test", h.settingsHandler.TestOllamaConnection)
		}
	}
}
