package scheduler

import (
	"context"
	"time"

	authrepo "worksync-backend/internal/auth/repository"
	"worksync-backend/internal/preference"
	"worksync-backend/internal/reminder/domain"
	"worksync-backend/internal/reminder/repository"
	"worksync-backend/pkg/fcm"
	"worksync-backend/pkg/metrics"

	log "github.com/sirupsen/logrus"
)

// Pusher sends push notifications and returns the tokens that failed
type Pusher interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// EventSender delivers an event to a user's open streams
type EventSender interface {
	SendToUser(userID, event string, data interface{})
}

// ReminderEvent is the payload of the SSE "reminder" event
type ReminderEvent struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ReminderDate time.Time `json:"reminder_date"`
}

// ReminderScheduler fires due reminders over SSE and FCM
type ReminderScheduler struct {
	reminderRepo repository.ReminderRepository
	fcmRepo      authrepo.FCMTokenRepository
	pusher       Pusher
	events       EventSender
	prefs        preference.Store
	interval     time.Duration
	stopChan     chan struct{}
	now          func() time.Time
}

// NewReminderScheduler creates a new scheduler. pusher may be nil when push
// notifications are not configured; SSE delivery still happens.
func NewReminderScheduler(
	reminderRepo repository.ReminderRepository,
	fcmRepo authrepo.FCMTokenRepository,
	pusher Pusher,
	events EventSender,
	prefs preference.Store,
	interval time.Duration,
) *ReminderScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderScheduler{
		reminderRepo: reminderRepo,
		fcmRepo:      fcmRepo,
		pusher:       pusher,
		events:       events,
		prefs:        prefs,
		interval:     interval,
		stopChan:     make(chan struct{}),
		now:          time.Now,
	}
}

// Start begins the scheduler loop
func (s *ReminderScheduler) Start() {
	if s.pusher == nil {
		log.Println("[ReminderScheduler] FCM client not available, reminders go to open streams only")
	}
	log.Printf("[ReminderScheduler] Starting reminder scheduler (interval: %s)", s.interval)

	go func() {
		s.CheckAndSend(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.CheckAndSend(context.Background())
			case <-s.stopChan:
				log.Println("[ReminderScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *ReminderScheduler) Stop() {
	close(s.stopChan)
}

// CheckAndSend notifies the owners of every due reminder and returns how many
// were sent.
func (s *ReminderScheduler) CheckAndSend(ctx context.Context) int {
	now := s.now()

	reminders, err := s.reminderRepo.FindDue(ctx, now)
	if err != nil {
		log.Printf("[ReminderScheduler] Error finding due reminders: %v", err)
		return 0
	}
	if len(reminders) == 0 {
		return 0
	}
	log.Printf("[ReminderScheduler] Found %d due reminders", len(reminders))

	for _, reminder := range reminders {
		s.send(ctx, reminder)

		// Mark as sent regardless of delivery so a broken device never causes repeats
		if err := s.reminderRepo.MarkNotified(ctx, reminder.ID, now); err != nil {
			log.Printf("[ReminderScheduler] Error marking reminder %s as notified: %v", reminder.ID, err)
		}
		if s.prefs != nil {
			if err := s.prefs.MarkNotified(ctx, reminder.OwnerID, now); err != nil {
				log.Printf("[ReminderScheduler] Error recording last notification for user %s: %v", reminder.OwnerID, err)
			}
		}
		metrics.RemindersSent.Inc()
	}
	return len(reminders)
}

func (s *ReminderScheduler) send(ctx context.Context, reminder *domain.Reminder) {
	if s.events != nil {
		s.events.SendToUser(reminder.OwnerID, "reminder", ReminderEvent{
			ID:           reminder.ID,
			Title:        reminder.Title,
			Description:  reminder.Description,
			ReminderDate: reminder.ReminderDate,
		})
	}
	if s.pusher == nil || s.fcmRepo == nil {
		return
	}

	tokens, err := s.fcmRepo.GetTokensByUserID(ctx, reminder.OwnerID)
	if err != nil {
		log.Printf("[ReminderScheduler] Error getting FCM tokens for user %s: %v", reminder.OwnerID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	body := reminder.Description
	if body == "" {
		body = "It's " + reminder.ReminderDate.Format("Jan 2, 15:04")
	}
	failedTokens, err := s.pusher.SendToDevices(ctx, tokenStrings, fcm.NotificationData{
		Title: "Reminder: " + reminder.Title,
		Body:  body,
		Data: map[string]string{
			"type":         "reminder",
			"reminder_id":  reminder.ID,
			"click_action": "/reminders",
		},
	})
	if err != nil {
		log.Printf("[ReminderScheduler] Error sending reminder %s: %v", reminder.ID, err)
		return
	}
	log.Printf("[ReminderScheduler] Sent reminder '%s' to %d devices", reminder.Title, len(tokenStrings)-len(failedTokens))

	for _, token := range failedTokens {
		if err := s.fcmRepo.DeleteToken(ctx, token); err != nil {
			log.Printf("[ReminderScheduler] Error deleting stale token: %v", err)
		}
	}
}
