package wire

import (
	"event-ticketing/internal/adaptor"
	"event-ticketing/pkg/middleware"
	"event-ticketing/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireInternal mounts the hooks used by the identity provider and the cron
// host. They sit behind SWEEP_TOKEN and outside the rate limiter.
func wireInternal(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	sweepHandler *adaptor.SweepHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.InternalToken(config.Sweeper.Token, log))

		// POST /internal/sessions - Register a session for a resolved identity
		r.Post("/sessions", authHandler.IssueSession)

		// POST /internal/sweeps/{scan} - Run one expiration scan
		r.Post("/sweeps/{scan}", sweepHandler.Sweep)
	})
}
