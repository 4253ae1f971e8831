package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// PubSubFeed carries changes over a Google Cloud Pub/Sub topic. Each server
// instance reads through its own subscription so every instance sees every
// change.
type PubSubFeed struct {
	client  *pubsub.Client
	topic   *pubsub.Topic
	subName string
}

func NewPubSubFeed(ctx context.Context, projectID, topicName, credentialsFile string) (*PubSubFeed, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	topic := client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("check topic %s: %w", topicName, err)
	}
	if !exists {
		if topic, err = client.CreateTopic(ctx, topicName); err != nil {
			client.Close()
			return nil, fmt.Errorf("create topic %s: %w", topicName, err)
		}
		log.Printf("[PubSub] Created topic: %s", topicName)
	}

	return &PubSubFeed{
		client:  client,
		topic:   topic,
		subName: topicName + "-" + uuid.New().String()[:8],
	}, nil
}

func (f *PubSubFeed) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	_, err = f.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": string(change.Type)},
	}).Get(ctx)
	return err
}

func (f *PubSubFeed) Listen(ctx context.Context, handler func(Change)) error {
	sub, err := f.client.CreateSubscription(ctx, f.subName, pubsub.SubscriptionConfig{
		Topic:            f.topic,
		AckDeadline:      10 * time.Second,
		ExpirationPolicy: 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create subscription %s: %w", f.subName, err)
	}
	log.Printf("[PubSub] Listening for task changes on subscription: %s", f.subName)

	defer func() {
		if err := sub.Delete(context.Background()); err != nil {
			log.Printf("[PubSub] Failed to delete subscription %s: %v", f.subName, err)
		}
	}()

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var change Change
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			log.Printf("[PubSub] Failed to unmarshal change: %v", err)
			msg.Ack()
			return
		}
		handler(change)
		msg.Ack()
	})
}

func (f *PubSubFeed) Close() error {
	f.topic.Stop()
	return f.client.Close()
}
