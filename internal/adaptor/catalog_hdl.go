package adaptor

import (
	"net/http"

	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/utils"

	"go.uber.org/zap"
)

// CatalogHandler serves the organizer's setup endpoints and the public
// inventory reads.
type CatalogHandler struct {
	service usecase.CatalogService
	seats   usecase.ReservationService
	log     *zap.Logger
}

func NewCatalogHandler(service usecase.CatalogService, seats usecase.ReservationService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		seats:   seats,
		log:     log.With(zap.String("handler", "catalog")),
	}
}

// CreateEvent handles POST /api/events
func (h *CatalogHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	event, err := h.service.CreateEvent(r.Context(), identity, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create event")
		return
	}

	utils.ResponseCreated(w, "Event created", event)
}

// ListTiers handles GET /api/events/{id}/tiers
func (h *CatalogHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	eventID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	tiers, err := h.service.ListTiers(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, h.log, err, "list tiers")
		return
	}

	utils.ResponseSuccess(w, "success", tiers)
}

// CreateTier handles POST /api/events/{id}/tiers
func (h *CatalogHandler) CreateTier(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.CreateTierRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tier, err := h.service.CreateTier(r.Context(), identity, eventID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create tier")
		return
	}

	utils.ResponseCreated(w, "Tier created", tier)
}

// UpdateTier handles PUT /api/tiers/{id}
func (h *CatalogHandler) UpdateTier(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	tierID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.UpdateTierRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tier, err := h.service.UpdateTier(r.Context(), identity, tierID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "update tier")
		return
	}

	utils.ResponseSuccess(w, "Tier updated", tier)
}

// DeleteTier handles DELETE /api/tiers/{id}
func (h *CatalogHandler) DeleteTier(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	tierID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	tier, err := h.service.DeleteTier(r.Context(), identity, tierID)
	if err != nil {
		writeServiceError(w, h.log, err, "delete tier")
		return
	}

	if tier != nil {
		utils.ResponseSuccess(w, "Tier is in use and was disabled", tier)
		return
	}
	utils.ResponseSuccess(w, "Tier deleted", nil)
}

// CreateChart handles POST /api/events/{id}/charts
func (h *CatalogHandler) CreateChart(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.CreateChartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	chart, err := h.service.CreateChart(r.Context(), identity, eventID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create chart")
		return
	}

	utils.ResponseCreated(w, "Chart created", chart)
}

// ChartAvailability handles GET /api/charts/{id}/availability
func (h *CatalogHandler) ChartAvailability(w http.ResponseWriter, r *http.Request) {
	chartID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	chart, err := h.seats.Availability(r.Context(), chartID)
	if err != nil {
		writeServiceError(w, h.log, err, "get chart availability")
		return
	}

	utils.ResponseSuccess(w, "success", chart)
}

// CreateDiscountCode handles POST /api/events/{id}/discount-codes
func (h *CatalogHandler) CreateDiscountCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.CreateDiscountCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	code, err := h.service.CreateDiscountCode(r.Context(), identity, eventID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create discount code")
		return
	}

	utils.ResponseCreated(w, "Discount code created", code)
}

// CreateReferralCode handles POST /api/events/{id}/referral-codes
func (h *CatalogHandler) CreateReferralCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.CreateReferralCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	code, err := h.service.CreateReferralCode(r.Context(), identity, eventID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create referral code")
		return
	}

	utils.ResponseCreated(w, "Referral code created", code)
}

// CreateRoomBlock handles POST /api/events/{id}/room-blocks
func (h *CatalogHandler) CreateRoomBlock(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.CreateRoomBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	block, err := h.service.CreateRoomBlock(r.Context(), identity, eventID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create room block")
		return
	}

	utils.ResponseCreated(w, "Room block created", block)
}
