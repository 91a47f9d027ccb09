package sender

import (
	"context"

	"matchpoint/internal/config"
	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
)

type PushSender struct {
	client *providerClient
	logger zerolog.Logger
}

func NewPushSender(cfg *config.Config, logger zerolog.Logger) *PushSender {
	return &PushSender{
		client: newProviderClient(cfg.PushAPIURL, cfg.PushAPIKey, logger),
		logger: logger,
	}
}

func (s *PushSender) Channel() domain.DeliveryChannel {
	return domain.ChannelPush
}

func (s *PushSender) Send(ctx context.Context, recipient string, n *domain.Notification) domain.SendResult {
	s.logger.Debug().
		Str("notification_id", n.ID).
		Str("type", string(n.Type)).
		Msg("sending push notification")

	return s.client.post(ctx, domain.ChannelPush, map[string]any{
		"token":    recipient,
		"title":    n.Title,
		"body":     n.Body,
		"priority": string(n.Priority),
		"data": map[string]any{
			"notification_id": n.ID,
			"type":            string(n.Type),
			"target_id":       n.TargetID,
			"payload":         n.Payload,
		},
	})
}
