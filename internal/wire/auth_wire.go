package wire

import (
	"net/http"

	"event-ticketing/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAuth(r chi.Router, authHandler *adaptor.AuthHandler, auth func(http.Handler) http.Handler) {
	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(auth)

		// POST /api/logout - Revoke the current session token
		r.Post("/api/logout", authHandler.Logout)
	})
}
