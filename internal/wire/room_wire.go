package wire

import (
	"net/http"

	"event-ticketing/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireRoom(r chi.Router, roomHandler *adaptor.RoomHandler, auth func(http.Handler) http.Handler) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/room-blocks/{id}", roomHandler.GetBlock)

	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Post("/api/room-blocks/{id}/holds", roomHandler.HoldRooms)
		r.Post("/api/room-holds/{id}/confirm", roomHandler.ConfirmRooms)
		r.Post("/api/room-holds/{id}/release", roomHandler.ReleaseRooms)
	})
}
