package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client sends web push notifications through Firebase Cloud Messaging.
type Client struct {
	messagingClient *messaging.Client
}

// NewClient initializes Firebase from a service account file, or from application
// default credentials when credentialsFile is empty.
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

	zap.L().Info("[FCM] Client initialized")
	return &Client{messagingClient: messagingClient}, nil
}

// Notification is the visible part of a push plus its data payload.
type Notification struct {
	Title string
	Body  string
	Link  string // opened on click
	Data  map[string]string
}

func webpush(n Notification) *messaging.WebpushConfig {
	cfg := &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{
			Title: n.Title,
			Body:  n.Body,
			Icon:  "/icon-192.png",
		},
	}
	if n.Link != "" {
		cfg.FCMOptions = &messaging.WebpushFCMOptions{Link: n.Link}
	}
	return cfg
}

// SendToDevices pushes n to every token and returns the tokens that were rejected.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, n Notification) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	resp, err := c.messagingClient.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
		Webpush:      webpush(n),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	zap.L().Debug("[FCM] Multicast sent", zap.Int("success", resp.SuccessCount), zap.Int("failure", resp.FailureCount))

	var failed []string
	for i, r := range resp.Responses {
		if !r.Success {
			failed = append(failed, tokens[i])
			zap.L().Warn("[FCM] Delivery failed", zap.String("token_prefix", prefix(tokens[i], 12)), zap.Error(r.Error))
		}
	}
	return failed, nil
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
