package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "worksync-backend/cmd/api"
	authdomain "worksync-backend/internal/auth/domain"
	authRepo "worksync-backend/internal/auth/repository"
	authUsecase "worksync-backend/internal/auth/usecase"
	"worksync-backend/internal/flow"
	"worksync-backend/internal/preference"
	reminderdomain "worksync-backend/internal/reminder/domain"
	reminderRepo "worksync-backend/internal/reminder/repository"
	"worksync-backend/internal/reminder/scheduler"
	reminderUsecase "worksync-backend/internal/reminder/usecase"
	taskdomain "worksync-backend/internal/task/domain"
	"worksync-backend/internal/task/escalation"
	"worksync-backend/internal/task/feed"
	taskRepo "worksync-backend/internal/task/repository"
	"worksync-backend/internal/task/store"
	taskUsecase "worksync-backend/internal/task/usecase"
	"worksync-backend/pkg/ai"
	"worksync-backend/pkg/cache"
	"worksync-backend/pkg/config"
	"worksync-backend/pkg/database"
	"worksync-backend/pkg/fcm"
	"worksync-backend/pkg/metrics"
	"worksync-backend/pkg/ratelimit"
	"worksync-backend/pkg/sse"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg := config.Load()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// Initialize repositories (dependency injection)
	var (
		userRepository     authRepo.UserRepository
		fcmTokenRepository authRepo.FCMTokenRepository
		taskRepository     taskRepo.TaskRepository
		reminderRepository reminderRepo.ReminderRepository
	)
	if cfg.DatabaseURL == "memory" {
		log.Println("[Main] DATABASE_URL=memory, data is kept in process memory")
		userRepository = authRepo.NewMemoryUserRepository()
		fcmTokenRepository = authRepo.NewMemoryFCMTokenRepository()
		taskRepository = taskRepo.NewMemoryTaskRepository()
		reminderRepository = reminderRepo.NewMemoryReminderRepository()
	} else {
		db, err := database.NewPostgresConnection(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		if err := db.AutoMigrate(&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{}, &taskdomain.Task{}, &reminderdomain.Reminder{}); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		userRepository = authRepo.NewUserRepository(db)
		fcmTokenRepository = authRepo.NewFCMTokenRepository(db)
		taskRepository = taskRepo.NewGormTaskRepository(db)
		reminderRepository = reminderRepo.NewGormReminderRepository(db)
	}

	// Redis backs the cache, the change feed, preferences and the session guard
	var rc *redis.Client
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Printf("[WARN] Redis unavailable, falling back to in-process state: %v", err)
		} else {
			rc = client
			defer rc.Close()
			taskRepository = taskRepo.NewCachedTaskRepository(taskRepository, rc, cfg.TaskCacheTTL)
		}
	}

	changes := newFeed(ctx, cfg, rc)
	defer changes.Close()

	// Initialize SSE Manager
	sseManager := sse.NewManager()
	go sseManager.Run()
	metrics.RegisterSSEClients(sseManager.ClientCount)

	taskStore := store.NewStore(taskRepository, cfg.WriteTimeout)
	go taskStore.Run(ctx, changes)
	commander := store.NewCommander(taskRepository, changes, store.NewSSENotifier(sseManager), cfg.WriteTimeout)

	var guard escalation.SessionGuard
	var prefs preference.Store
	if rc != nil {
		guard = escalation.NewRedisGuard(rc, cfg.JWTRefreshExpiry)
		prefs = preference.NewRedisStore(rc)
	} else {
		guard = escalation.NewMemoryGuard(cfg.JWTRefreshExpiry)
		prefs = preference.NewMemoryStore()
	}
	escalator := escalation.NewEscalator(taskRepository, commander, guard)

	// AI flows
	aiSettings := ai.NewSettings(cfg.OllamaBaseURL, cfg.OllamaModel)
	var flows *flow.Registry
	completer, err := ai.NewCompleter(ai.Config{
		Provider:     ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey: cfg.GeminiApiKey,
		GeminiModel:  cfg.GeminiModel,
		Settings:     aiSettings,
	})
	if err != nil {
		log.Printf("[WARN] Failed to initialize AI provider: %v", err)
	} else {
		flows = flow.NewRegistry(completer)
		log.Printf("[Main] AI flows use provider %s", completer.Name())
	}

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepository, fcmTokenRepository, cfg)
	taskUsecaseInstance := taskUsecase.NewTaskUsecase(taskRepository, taskStore, commander)
	taskUsecaseInstance.SetEscalator(escalator)
	taskUsecaseInstance.SetUserDirectory(userRepository)
	if flows != nil {
		taskUsecaseInstance.SetFlowRegistry(flows)
	}

	// Escalate once per session, right after sign in
	authUsecaseInstance.SetLoginCallback(func(userID, sessionID string) {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout)
		defer cancel()
		report, err := escalator.RunForSession(ctx, userID, sessionID)
		if err != nil {
			log.Printf("[Main] Escalation for user %s failed: %v", userID, err)
			return
		}
		if len(report.TaskIDs) > 0 {
			log.Printf("[Main] Escalated %d tasks for user %s", len(report.TaskIDs), userID)
		}
	})

	// Reminders
	var pusher scheduler.Pusher
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			pusher = fcmClient
		}
	}
	reminderScheduler := scheduler.NewReminderScheduler(reminderRepository, fcmTokenRepository, pusher, sseManager, prefs, cfg.ReminderInterval)
	reminderScheduler.Start()
	defer reminderScheduler.Stop()

	// Initialize HTTP handler
	handler := api.NewHandler(api.Deps{
		Config:          cfg,
		AuthUsecase:     authUsecaseInstance,
		TaskUsecase:     taskUsecaseInstance,
		ReminderUsecase: reminderUsecase.NewReminderUsecase(reminderRepository),
		Preferences:     prefs,
		TaskStore:       taskStore,
		Flows:           flows,
		FlowLimiter:     ratelimit.NewStore(cfg.FlowRateLimit, cfg.FlowBurst, 10*time.Minute),
		AISettings:      aiSettings,
		SSEManager:      sseManager,
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// newFeed picks the change feed named by FEED_DRIVER, falling back to an
// in-process feed when its backend is not available.
func newFeed(ctx context.Context, cfg *config.Config, rc *redis.Client) feed.Feed {
	switch cfg.FeedDriver {
	case "pubsub":
		if cfg.GoogleProjectID == "" {
			log.Println("[WARN] FEED_DRIVER=pubsub but GOOGLE_PROJECT_ID is not set")
			break
		}
		f, err := feed.NewPubSubFeed(ctx, cfg.GoogleProjectID, cfg.FeedChannel, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize Pub/Sub feed: %v", err)
			break
		}
		log.Printf("[Main] Task changes go through Pub/Sub topic %s", cfg.FeedChannel)
		return f
	case "redis":
		if rc == nil {
			break
		}
		log.Printf("[Main] Task changes go through redis channel %s", cfg.FeedChannel)
		return feed.NewRedisFeed(rc, cfg.FeedChannel)
	}
	log.Println("[Main] Task changes stay in this process")
	return feed.NewLocalFeed()
}
