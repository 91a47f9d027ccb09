package sender

import (
	"context"

	"matchpoint/internal/config"
	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
)

type SMSSender struct {
	client *providerClient
	from   string
	logger zerolog.Logger
}

func NewSMSSender(cfg *config.Config, logger zerolog.Logger) *SMSSender {
	return &SMSSender{
		client: newProviderClient(cfg.SMSAPIURL, cfg.SMSAPIKey, logger),
		from:   cfg.SMSFrom,
		logger: logger,
	}
}

func (s *SMSSender) Channel() domain.DeliveryChannel {
	return domain.ChannelSMS
}

func (s *SMSSender) Send(ctx context.Context, recipient string, n *domain.Notification) domain.SendResult {
	s.logger.Debug().
		Str("notification_id", n.ID).
		Msg("sending sms")

	body := n.Title
	if n.Body != "" {
		body = n.Title + ": " + n.Body
	}

	return s.client.post(ctx, domain.ChannelSMS, map[string]any{
		"from": s.from,
		"to":   recipient,
		"body": body,
	})
}
