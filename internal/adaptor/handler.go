package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	Catalog *CatalogHandler
	Bundle  *BundleHandler
	Order   *OrderHandler
	Ticket  *TicketHandler
	Room    *RoomHandler
	Sweep   *SweepHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, log),
		Catalog: NewCatalogHandler(service.Catalog, service.Seats, log),
		Bundle:  NewBundleHandler(service.Bundle, log),
		Order:   NewOrderHandler(service.Order, log),
		Ticket:  NewTicketHandler(service.Order, log),
		Room:    NewRoomHandler(service.Rooms, log),
		Sweep:   NewSweepHandler(service.Sweeper, log),
	}
}

// decodeBody reads a JSON body into dst and answers 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	if validationErrors := utils.ValidateStruct(dst); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}
	return true
}

func identityFrom(w http.ResponseWriter, r *http.Request) (entity.Identity, bool) {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return identity, ok
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps usecase errors to HTTP responses. Unknown errors are
// logged and reported as 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var seatErr *usecase.SeatConflictError

	switch {
	case errors.Is(err, usecase.ErrSaleWindowClosed):
		utils.ResponseBadRequest(w, "sale window closed", nil)
	case errors.Is(err, usecase.ErrDiscountUnavailable):
		utils.ResponseBadRequest(w, err.Error(), nil)
	case errors.Is(err, usecase.ErrValidation):
		utils.ResponseBadRequest(w, err.Error(), nil)
	case errors.Is(err, usecase.ErrUnauthenticated):
		utils.ResponseUnauthorized(w, "Authentication required")
	case errors.Is(err, usecase.ErrForbidden):
		utils.ResponseForbidden(w, "Access denied")
	case errors.Is(err, usecase.ErrNotFound):
		utils.ResponseNotFound(w, err.Error())
	case errors.As(err, &seatErr):
		utils.ResponseConflict(w, "seat already taken", map[string]string{"seat": seatErr.Seat.String()})
	case errors.Is(err, usecase.ErrSoldOut):
		utils.ResponseConflict(w, "sold out during checkout", nil)
	case errors.Is(err, usecase.ErrBundleSoldOut):
		utils.ResponseConflict(w, "bundle sold out", nil)
	case errors.Is(err, usecase.ErrTicketScanned):
		utils.ResponseConflict(w, "ticket already scanned", nil)
	case errors.Is(err, usecase.ErrOrderExpired):
		utils.ResponseConflict(w, "order expired", nil)
	case errors.Is(err, usecase.ErrInvalidTransition):
		utils.ResponseConflict(w, err.Error(), nil)
	case errors.Is(err, usecase.ErrConflict):
		utils.ResponseConflict(w, "concurrent update, please retry", nil)
	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
