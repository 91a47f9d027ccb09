package sender

import (
	"context"

	"matchpoint/internal/config"
	"matchpoint/internal/domain"

	"github.com/rs/zerolog"
)

type EmailSender struct {
	client *providerClient
	from   string
	logger zerolog.Logger
}

func NewEmailSender(cfg *config.Config, logger zerolog.Logger) *EmailSender {
	return &EmailSender{
		client: newProviderClient(cfg.EmailAPIURL, cfg.EmailAPIKey, logger),
		from:   cfg.EmailFrom,
		logger: logger,
	}
}

func (s *EmailSender) Channel() domain.DeliveryChannel {
	return domain.ChannelEmail
}

func (s *EmailSender) Send(ctx context.Context, recipient string, n *domain.Notification) domain.SendResult {
	s.logger.Debug().
		Str("notification_id", n.ID).
		Str("recipient", recipient).
		Msg("sending email")

	return s.client.post(ctx, domain.ChannelEmail, map[string]any{
		"from":    s.from,
		"to":      recipient,
		"subject": n.Title,
		"text":    n.Body,
		"headers": map[string]string{
			"X-Notification-ID": n.ID,
		},
	})
}
