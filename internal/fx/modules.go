package fx

import (
	"matchpoint/internal/config"
	"matchpoint/internal/database"
	"matchpoint/internal/logger"
	"matchpoint/internal/notify"
	"matchpoint/internal/repository"
	"matchpoint/internal/sender"
	"matchpoint/internal/server"
	"matchpoint/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideDispatcher(
	notifications *repository.NotificationRepository,
	attempts *repository.AttemptRepository,
	prefs *repository.PreferenceRepository,
	contacts *repository.ContactRepository,
	email *sender.EmailSender,
	push *sender.PushSender,
	sms *sender.SMSSender,
	log zerolog.Logger,
) (*notify.Dispatcher, error) {
	return notify.NewDispatcher(
		notifications,
		attempts,
		prefs,
		contacts,
		[]notify.Sender{email, push, sms},
		notify.DefaultPreferences(),
		log,
	)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewEventRepository),
	fx.Provide(repository.NewConfigRepository),
	fx.Provide(repository.NewSummaryRepository),
	fx.Provide(repository.NewPreferenceRepository),
	fx.Provide(repository.NewNotificationRepository),
	fx.Provide(repository.NewAttemptRepository),
	fx.Provide(repository.NewContactRepository),
	// channel senders
	fx.Provide(sender.NewEmailSender),
	fx.Provide(sender.NewPushSender),
	fx.Provide(sender.NewSMSSender),
	// engines
	fx.Provide(ProvideDispatcher),
	// svc
	fx.Provide(service.NewReputationService),
	fx.Provide(service.NewNotificationService),
	// server
	fx.Provide(server.NewAPIServer),
)
