package wire

import (
	"net/http"

	"event-ticketing/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireOrder(r chi.Router, orderHandler *adaptor.OrderHandler, auth func(http.Handler) http.Handler) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(auth)

		// POST /api/orders - Checkout tiers and optional seats
		r.Post("/api/orders", orderHandler.CreateOrder)

		// POST /api/bundles/{id}/orders - Checkout a bundle
		r.Post("/api/bundles/{id}/orders", orderHandler.CreateBundleOrder)

		// GET /api/orders - Buyer's order history
		r.Get("/api/orders", orderHandler.ListOrders)

		r.Get("/api/orders/{id}", orderHandler.GetOrder)
		r.Post("/api/orders/{id}/cancel", orderHandler.CancelOrder)

		// Payment confirmation
		r.Post("/api/orders/{id}/complete", orderHandler.CompleteOrder)
		r.Post("/api/orders/{id}/complete-cash", orderHandler.CompleteCashOrder)
	})
}
