package adaptor

import (
	"net/http"
	"strconv"

	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/qr"
	"event-ticketing/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TicketHandler struct {
	service usecase.OrderService
	log     *zap.Logger
}

func NewTicketHandler(service usecase.OrderService, log *zap.Logger) *TicketHandler {
	return &TicketHandler{
		service: service,
		log:     log.With(zap.String("handler", "ticket")),
	}
}

// ActivateTicket handles POST /api/tickets/activate
func (h *TicketHandler) ActivateTicket(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req request.ActivateTicketRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.ActivateTicket(r.Context(), identity, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "activate ticket")
		return
	}

	utils.ResponseSuccess(w, "Ticket activated", result)
}

// CancelTicket handles POST /api/tickets/{id}/cancel
func (h *TicketHandler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	ticketID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	ticket, err := h.service.CancelTicket(r.Context(), identity, ticketID)
	if err != nil {
		writeServiceError(w, h.log, err, "cancel ticket")
		return
	}

	utils.ResponseSuccess(w, "Ticket cancelled", ticket)
}

// ScanTicket handles POST /api/tickets/scan (organizer)
func (h *TicketHandler) ScanTicket(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req request.ScanTicketRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ticket, err := h.service.ScanTicket(r.Context(), identity, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "scan ticket")
		return
	}

	utils.ResponseSuccess(w, "Ticket scanned", ticket)
}

// GetTicketByCode handles GET /api/tickets/code/{code}
func (h *TicketHandler) GetTicketByCode(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.service.GetTicketByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, h.log, err, "get ticket")
		return
	}

	utils.ResponseSuccess(w, "success", ticket)
}

// TicketQR handles GET /api/tickets/code/{code}/qr and renders the ticket
// code as a PNG. The optional size query sets the edge in pixels.
func (h *TicketHandler) TicketQR(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.service.GetTicketByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, h.log, err, "get ticket")
		return
	}
	if ticket.Code == nil {
		utils.ResponseNotFound(w, "ticket has no code yet")
		return
	}

	size := utils.ParseInt(r.URL.Query().Get("size"), qr.DefaultSize)
	if size > 1024 {
		size = 1024
	}

	png, err := qr.EncodePNG(*ticket.Code, size)
	if err != nil {
		writeServiceError(w, h.log, err, "render ticket qr")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
