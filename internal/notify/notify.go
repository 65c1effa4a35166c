// Package notify provides the fire-and-forget notification collaborator.
// Delivery failures are logged and never propagated: a failed notification
// must not roll back or block the state change that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/greenloop/greenloop-backend/internal/config"
	"github.com/greenloop/greenloop-backend/pkg/logger"
)

// Notification kinds.
const (
	TypeChallengeCompleted = "challenge_completed"
	TypeRewardIssued       = "reward_issued"
	TypeRewardRedeemed     = "reward_redeemed"
	TypeLevelUp            = "level_up"
	TypeRankAchievement    = "rank_achievement"
)

// Notifier delivers user-facing notifications.
type Notifier interface {
	Notify(ctx context.Context, recipient uint, notifType string, payload map[string]interface{})
}

// WebhookNotifier posts notifications to an outgoing webhook.
type WebhookNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
	log        *logger.Logger
}

// NewWebhookNotifier creates a webhook notifier from config.
func NewWebhookNotifier(cfg *config.NotifyConfig, log *logger.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: cfg.WebhookURL,
		enabled:    cfg.Enabled,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// message is the webhook payload envelope.
type message struct {
	Recipient uint                   `json:"recipient"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	SentAt    time.Time              `json:"sent_at"`
}

// Notify posts the notification. Errors are swallowed after logging.
func (n *WebhookNotifier) Notify(ctx context.Context, recipient uint, notifType string, payload map[string]interface{}) {
	if !n.enabled {
		n.log.Debug().
			Uint("recipient", recipient).
			Str("type", notifType).
			Msg("Notifications disabled, skipping")
		return
	}

	if err := n.send(ctx, message{
		Recipient: recipient,
		Type:      notifType,
		Payload:   payload,
		SentAt:    time.Now(),
	}); err != nil {
		n.log.Error().
			Err(err).
			Uint("recipient", recipient).
			Str("type", notifType).
			Msg("Failed to deliver notification")
		return
	}

	n.log.Debug().
		Uint("recipient", recipient).
		Str("type", notifType).
		Msg("Notification delivered")
}

func (n *WebhookNotifier) send(ctx context.Context, msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Noop is a Notifier that drops everything. Used in tests and when no
// webhook is configured.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(context.Context, uint, string, map[string]interface{}) {}
