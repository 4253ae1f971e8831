package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	authUsecase "worksync-backend/internal/auth/usecase"
	"worksync-backend/internal/flow"
	flowDelivery "worksync-backend/internal/flow/delivery"
	"worksync-backend/internal/preference"
	prefDelivery "worksync-backend/internal/preference/delivery"
	reminderDelivery "worksync-backend/internal/reminder/delivery"
	reminderUsecase "worksync-backend/internal/reminder/usecase"
	taskDelivery "worksync-backend/internal/task/delivery"
	"worksync-backend/internal/task/store"
	taskUsecase "worksync-backend/internal/task/usecase"
	"worksync-backend/pkg/ai"
	"worksync-backend/pkg/config"
	"worksync-backend/pkg/ratelimit"
	"worksync-backend/pkg/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Deps are the services the HTTP layer is built from. Flows may be nil when no
// AI provider could be configured.
type Deps struct {
	Config          *config.Config
	AuthUsecase     authUsecase.AuthUsecase
	TaskUsecase     taskUsecase.TaskUsecase
	ReminderUsecase reminderUsecase.ReminderUsecase
	Preferences     preference.Store
	TaskStore       *store.Store
	Flows           *flow.Registry
	FlowLimiter     *ratelimit.Store
	AISettings      *ai.Settings
	SSEManager      *sse.Manager
}

type Handler struct {
	deps            Deps
	taskHandler     *taskDelivery.TaskHandler
	reminderHandler *reminderDelivery.ReminderHandler
	prefHandler     *prefDelivery.PreferenceHandler
	flowHandler     *flowDelivery.FlowHandler
	settingsHandler *SettingsHandler
}

func NewHandler(deps Deps) *Handler {
	h := &Handler{
		deps:            deps,
		taskHandler:     taskDelivery.NewTaskHandler(deps.TaskUsecase),
		reminderHandler: reminderDelivery.NewReminderHandler(deps.ReminderUsecase),
		prefHandler:     prefDelivery.NewPreferenceHandler(deps.Preferences),
		settingsHandler: NewSettingsHandler(deps.AISettings),
	}
	if deps.Flows != nil {
		h.flowHandler = flowDelivery.NewFlowHandler(deps.Flows)
		log.Println("[API] Flow handler initialized")
	} else {
		log.Println("[API] No AI provider configured, flow routes disabled")
	}
	return h
}

// Router builds the gin engine with CORS and every route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

// Start serves on addr until ctx is done. Open event streams are closed first
// so the server can drain.
func (h *Handler) Start(ctx context.Context, addr string) error {
	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{Addr: addr, Handler: h.Router()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("[API] Shutting down server...")
	if h.deps.SSEManager != nil {
		h.deps.SSEManager.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("[API] Server exited gracefully")
	return nil
}

// streamEvents opens the user's event stream and keeps it fed with "tasks"
// snapshots for as long as it stays open.
func (h *Handler) streamEvents(c *gin.Context) {
	userID := c.GetString("userID")
	manager := h.deps.SSEManager

	client := manager.Register(userID)
	defer manager.Unregister(client)

	unsubscribe := h.deps.TaskStore.Subscribe(&store.Query{UserID: userID}, func(snap store.Snapshot) {
		manager.SendLatest(client, "tasks", snap)
	})
	defer unsubscribe()

	manager.Stream(c, client)
}
