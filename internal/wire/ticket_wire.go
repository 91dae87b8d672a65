package wire

import (
	"net/http"

	"event-ticketing/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireTicket(r chi.Router, ticketHandler *adaptor.TicketHandler, auth func(http.Handler) http.Handler) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/tickets/code/{code}", ticketHandler.GetTicketByCode)
	r.Get("/api/tickets/code/{code}/qr", ticketHandler.TicketQR)

	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(auth)

		// POST /api/tickets/activate - Activate a cash ticket with its 6-digit code
		r.Post("/api/tickets/activate", ticketHandler.ActivateTicket)

		// POST /api/tickets/{id}/cancel - Cancel a valid ticket (owner or organizer)
		r.Post("/api/tickets/{id}/cancel", ticketHandler.CancelTicket)

		// POST /api/tickets/scan - Admit a ticket at the door (organizer)
		r.Post("/api/tickets/scan", ticketHandler.ScanTicket)
	})
}
