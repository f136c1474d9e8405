package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// PubSubRelay publishes change events to a topic and forwards everything received on
// a per-instance subscription to local SSE clients, so a tab connected to any replica
// hears about writes made on another.
type PubSubRelay struct {
	client    *pubsub.Client
	topic     *pubsub.Topic
	sub       *pubsub.Subscription
	local     Publisher
	topicName string
	receiving atomic.Bool
}

// NewPubSubRelay connects to projectID and prepares the topic and this instance's
// subscription. topicName may be a full resource name. An error means the relay could
// not receive and the caller should stay on local delivery.
func NewPubSubRelay(ctx context.Context, projectID, topicName, credentialsFile string, local Publisher) (*PubSubRelay, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	relay, err := newRelay(ctx, client, topicName, local)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return relay, nil
}

func newRelay(ctx context.Context, client *pubsub.Client, topicName string, local Publisher) (*PubSubRelay, error) {
	if parts := strings.Split(topicName, "/"); len(parts) > 1 {
		topicName = parts[len(parts)-1]
	}

	topic := client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic %s: %w", topicName, err)
	}
	if !exists {
		if topic, err = client.CreateTopic(ctx, topicName); err != nil {
			return nil, fmt.Errorf("failed to create topic %s: %w", topicName, err)
		}
		zap.L().Info("[PubSub] Created topic", zap.String("topic", topicName))
	}

	subName := fmt.Sprintf("%s-%s", topicName, uuid.New().String()[:8])
	sub, err := client.CreateSubscription(ctx, subName, pubsub.SubscriptionConfig{
		Topic:            topic,
		AckDeadline:      10 * time.Second,
		ExpirationPolicy: 24 * time.Hour,
	})
	if err != nil {
		topic.Stop()
		return nil, fmt.Errorf("failed to create subscription %s: %w", subName, err)
	}

	return &PubSubRelay{
		client:    client,
		topic:     topic,
		sub:       sub,
		local:     local,
		topicName: topicName,
	}, nil
}

// Publish sends ev to the topic. While this instance is not receiving from its
// subscription, or when the publish fails, the event is delivered locally instead.
func (r *PubSubRelay) Publish(ctx context.Context, ev ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		zap.L().Error("[PubSub] Failed to encode change event", zap.Error(err))
		return
	}

	deliveredLocally := !r.receiving.Load()
	if deliveredLocally {
		r.local.Publish(ctx, ev)
	}

	result := r.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"user_id": ev.UserID, "kind": string(ev.Kind)},
	})
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			zap.L().Warn("[PubSub] Publish failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
			if !deliveredLocally {
				r.local.Publish(context.Background(), ev)
			}
		}
	}()
}

// Start forwards messages from this instance's subscription until ctx ends.
func (r *PubSubRelay) Start(ctx context.Context) {
	log := zap.L().With(zap.String("topic", r.topicName), zap.String("subscription", r.sub.ID()))

	log.Info("[PubSub] Relaying change events")
	r.receiving.Store(true)
	err := r.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		r.handleMessage(ctx, msg.Data)
		msg.Ack()
	})
	r.receiving.Store(false)
	if err != nil && ctx.Err() == nil {
		log.Error("[PubSub] Error receiving messages, falling back to local delivery", zap.Error(err))
	}
}

func (r *PubSubRelay) handleMessage(ctx context.Context, data []byte) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		zap.L().Warn("[PubSub] Dropping malformed change event", zap.Error(err))
		return
	}
	if ev.UserID == "" {
		return
	}
	r.local.Publish(ctx, ev)
}

// Close stops the topic's publish goroutines and the client.
func (r *PubSubRelay) Close() error {
	r.topic.Stop()
	return r.client.Close()
}
