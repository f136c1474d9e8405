package notification

import (
	"context"
	"fmt"

	authdomain "cyra-kanban/internal/auth/domain"
	"cyra-kanban/pkg/fcm"

	"go.uber.org/zap"
)

const automationActor = "cyra"

// Pusher sends web push notifications and returns the rejected tokens.
type Pusher interface {
	SendToDevices(ctx context.Context, tokens []string, n fcm.Notification) ([]string, error)
}

// TokenStore holds the FCM device tokens registered by each user.
type TokenStore interface {
	GetTokensByUserID(userID string) ([]authdomain.FCMToken, error)
	DeleteToken(token string) error
}

// Feed is the Publisher handed to the usecases. It forwards every event and, for notes
// written by the automation actor, pushes a notification to the owner's devices.
type Feed struct {
	publisher Publisher
	pusher    Pusher
	tokens    TokenStore
	appURL    string
}

// NewFeed wraps publisher. pusher may be nil to disable push notifications.
func NewFeed(publisher Publisher, pusher Pusher, tokens TokenStore, appURL string) *Feed {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Feed{publisher: publisher, pusher: pusher, tokens: tokens, appURL: appURL}
}

func (f *Feed) Publish(ctx context.Context, ev ChangeEvent) {
	f.publisher.Publish(ctx, ev)

	if ev.Kind == KindNoteAdded && ev.Actor == automationActor && f.pusher != nil && f.tokens != nil {
		go f.pushNote(ev)
	}
}

func (f *Feed) pushNote(ev ChangeEvent) {
	log := zap.L().With(zap.String("user_id", ev.UserID))

	tokens, err := f.tokens.GetTokensByUserID(ev.UserID)
	if err != nil {
		log.Error("[FCM] Error getting device tokens", zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		log.Debug("[FCM] No devices registered, skipping push")
		return
	}

	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}

	body := ev.Summary
	if len([]rune(body)) > 120 {
		body = string([]rune(body)[:117]) + "..."
	}

	failed, err := f.pusher.SendToDevices(context.Background(), values, fcm.Notification{
		Title: "New note from Cyra",
		Body:  body,
		Link:  fmt.Sprintf("%s/notes", f.appURL),
		Data: map[string]string{
			"type":    string(ev.Kind),
			"note_id": ev.EntityID,
		},
	})
	if err != nil {
		log.Error("[FCM] Error sending notifications", zap.Error(err))
		return
	}

	for _, token := range failed {
		if err := f.tokens.DeleteToken(token); err != nil {
			log.Warn("[FCM] Failed to delete rejected token", zap.Error(err))
		}
	}
}
