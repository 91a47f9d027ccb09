package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"matchpoint/internal/config"
	"matchpoint/internal/constants"
	fxmodules "matchpoint/internal/fx"
	"matchpoint/internal/middleware"
	"matchpoint/internal/server"
	"matchpoint/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(runRetrySweep),
		fx.Invoke(runDecayRefresh),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	apiServer *server.APIServer,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	mux := http.NewServeMux()
	apiServer.Register(mux)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	requestIDMiddleware := middleware.RequestID(logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: requestIDMiddleware(c.Handler(mux)),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

// runDecayRefresh periodically recomputes every player's cached summary so
// time-decayed scores do not go stale between writes.
func runDecayRefresh(lc fx.Lifecycle, reputationSvc *service.ReputationService, logger zerolog.Logger) {
	refreshCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(constants.RecalcInterval)
				defer ticker.Stop()

				for {
					select {
					case <-refreshCtx.Done():
						return
					case <-ticker.C:
						players, err := reputationSvc.RecalculateAll(refreshCtx)
						if err != nil {
							logger.Error().Err(err).Msg("decay refresh failed")
							continue
						}
						logger.Info().Int("players", players).Msg("decay refresh completed")
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}

// runRetrySweep periodically re-dispatches notifications whose channels
// failed but never succeeded, within the per-channel attempt cap.
func runRetrySweep(lc fx.Lifecycle, notificationSvc *service.NotificationService, logger zerolog.Logger) {
	sweepCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(constants.RetryInterval)
				defer ticker.Stop()

				for {
					select {
					case <-sweepCtx.Done():
						return
					case <-ticker.C:
						retried, err := notificationSvc.RetryFailed(sweepCtx)
						if err != nil {
							logger.Error().Err(err).Msg("retry sweep failed")
							continue
						}
						if retried > 0 {
							logger.Info().Int("retried", retried).Msg("retry sweep completed")
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
