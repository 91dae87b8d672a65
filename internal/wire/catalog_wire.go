package wire

import (
	"net/http"

	"event-ticketing/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireCatalog(
	r chi.Router,
	catalogHandler *adaptor.CatalogHandler,
	bundleHandler *adaptor.BundleHandler,
	auth func(http.Handler) http.Handler,
) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/events/{id}/tiers - Tiers with live availability
	r.Get("/api/events/{id}/tiers", catalogHandler.ListTiers)

	// GET /api/bundles/{id} - Bundle details and remaining quantity
	r.Get("/api/bundles/{id}", bundleHandler.GetBundle)

	// GET /api/charts/{id}/availability - Reserved and free seat counts
	r.Get("/api/charts/{id}/availability", catalogHandler.ChartAvailability)

	// ==================== ORGANIZER ROUTES ====================
	// Ownership of the event is checked by the services
	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/api/events", catalogHandler.CreateEvent)

		r.Post("/api/events/{id}/tiers", catalogHandler.CreateTier)
		r.Post("/api/events/{id}/bundles", bundleHandler.CreateBundle)
		r.Post("/api/events/{id}/charts", catalogHandler.CreateChart)
		r.Post("/api/events/{id}/discount-codes", catalogHandler.CreateDiscountCode)
		r.Post("/api/events/{id}/referral-codes", catalogHandler.CreateReferralCode)
		r.Post("/api/events/{id}/room-blocks", catalogHandler.CreateRoomBlock)

		r.Put("/api/tiers/{id}", catalogHandler.UpdateTier)
		r.Delete("/api/tiers/{id}", catalogHandler.DeleteTier)

		r.Put("/api/bundles/{id}", bundleHandler.UpdateBundle)
		r.Delete("/api/bundles/{id}", bundleHandler.DeleteBundle)
	})
}
