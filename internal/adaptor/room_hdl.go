package adaptor

import (
	"net/http"

	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/utils"

	"go.uber.org/zap"
)

type RoomHandler struct {
	service usecase.RoomService
	log     *zap.Logger
}

func NewRoomHandler(service usecase.RoomService, log *zap.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		log:     log.With(zap.String("handler", "room")),
	}
}

// GetBlock handles GET /api/room-blocks/{id}
func (h *RoomHandler) GetBlock(w http.ResponseWriter, r *http.Request) {
	blockID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	block, err := h.service.GetBlock(r.Context(), blockID)
	if err != nil {
		writeServiceError(w, h.log, err, "get room block")
		return
	}

	utils.ResponseSuccess(w, "success", block)
}

// HoldRooms handles POST /api/room-blocks/{id}/holds
func (h *RoomHandler) HoldRooms(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	blockID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.HoldRoomsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	hold, err := h.service.HoldRooms(r.Context(), identity, blockID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "hold rooms")
		return
	}

	utils.ResponseCreated(w, "Rooms held", hold)
}

// ConfirmRooms handles POST /api/room-holds/{id}/confirm
func (h *RoomHandler) ConfirmRooms(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	holdID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	hold, err := h.service.ConfirmRooms(r.Context(), identity, holdID)
	if err != nil {
		writeServiceError(w, h.log, err, "confirm rooms")
		return
	}

	utils.ResponseSuccess(w, "Rooms confirmed", hold)
}

// ReleaseRooms handles POST /api/room-holds/{id}/release
func (h *RoomHandler) ReleaseRooms(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	holdID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	hold, err := h.service.ReleaseRooms(r.Context(), identity, holdID)
	if err != nil {
		writeServiceError(w, h.log, err, "release rooms")
		return
	}

	utils.ResponseSuccess(w, "Rooms released", hold)
}
