package fcm

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"trend-trader/internal/domain"
)

const channelID = "trade_alerts"

// multicastSender is the part of *messaging.Client the notifier uses.
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Client pushes notifications to every registered device token.
type Client struct {
	sender multicastSender
	tokens domain.DeviceTokenRepository
}

// NewClient initializes Firebase Cloud Messaging from FIREBASE_CREDENTIALS_PATH
// or FIREBASE_CREDENTIALS_JSON. Without credentials the client is disabled.
func NewClient(ctx context.Context, tokens domain.DeviceTokenRepository) (*Client, error) {
	var opt option.ClientOption
	switch {
	case os.Getenv("FIREBASE_CREDENTIALS_PATH") != "":
		opt = option.WithCredentialsFile(os.Getenv("FIREBASE_CREDENTIALS_PATH"))
	case os.Getenv("FIREBASE_CREDENTIALS_JSON") != "":
		opt = option.WithCredentialsJSON([]byte(os.Getenv("FIREBASE_CREDENTIALS_JSON")))
	default:
		log.Warn().Msg("no Firebase credentials found, FCM disabled")
		return &Client{tokens: tokens}, nil
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	log.Info().Msg("Firebase Cloud Messaging initialized")
	return &Client{sender: client, tokens: tokens}, nil
}

// IsEnabled returns true if FCM client is initialized
func (c *Client) IsEnabled() bool {
	return c.sender != nil
}

// Notify sends n to all registered devices. Tokens reported as unregistered
// by FCM are removed from the repository.
func (c *Client) Notify(ctx context.Context, n domain.Notification) error {
	if !c.IsEnabled() {
		return nil
	}

	tokens, err := c.tokens.GetAllTokens(ctx)
	if err != nil {
		return fmt.Errorf("list device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	data := map[string]string{"kind": n.Kind}
	for k, v := range n.Data {
		data[k] = v
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: channelID,
				Priority:  messaging.PriorityHigh,
			},
		},
	}

	response, err := c.sender.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast: %w", err)
	}

	for i, r := range response.Responses {
		if r.Success || i >= len(tokens) {
			continue
		}
		if messaging.IsUnregistered(r.Error) {
			if err := c.tokens.UnregisterToken(ctx, tokens[i]); err != nil {
				log.Warn().Err(err).Msg("failed to drop stale device token")
			}
		}
	}

	log.Debug().
		Str("kind", n.Kind).
		Int("success", response.SuccessCount).
		Int("failure", response.FailureCount).
		Msg("push notification sent")
	return nil
}

var _ domain.Notifier = (*Client)(nil)
