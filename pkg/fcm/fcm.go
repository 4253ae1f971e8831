package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Println("[FCM] Client initialized successfully")
	return &Client{messagingClient: messagingClient}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

// SendToDevices sends a push notification to multiple device tokens.
// Returns the tokens that failed to receive it.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title:    notification.Title,
			Body:     notification.Body,
			ImageURL: notification.ImageURL,
		},
		Data: notification.Data,
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: notification.Title,
				Body:  notification.Body,
				Icon:  "/icon-192.svg",
			},
		},
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	log.Printf("[FCM] Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)

	var failedTokens []string
	for i, resp := range response.Responses {
		if !resp.Success {
			failedTokens = append(failedTokens, tokens[i])
			log.Printf("[FCM] Failed to send to token %s: %v", shorten(tokens[i]), resp.Error)
		}
	}
	return failedTokens, nil
}

func shorten(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
