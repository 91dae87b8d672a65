package adaptor

import (
	"net/http"

	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/utils"

	"go.uber.org/zap"
)

type BundleHandler struct {
	service usecase.BundleService
	log     *zap.Logger
}

func NewBundleHandler(service usecase.BundleService, log *zap.Logger) *BundleHandler {
	return &BundleHandler{
		service: service,
		log:     log.With(zap.String("handler", "bundle")),
	}
}

// CreateBundle handles POST /api/events/{id}/bundles
func (h *BundleHandler) CreateBundle(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	eventID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.CreateBundleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bundle, err := h.service.CreateBundle(r.Context(), identity, eventID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create bundle")
		return
	}

	utils.ResponseCreated(w, "Bundle created", bundle)
}

// GetBundle handles GET /api/bundles/{id}
func (h *BundleHandler) GetBundle(w http.ResponseWriter, r *http.Request) {
	bundleID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	bundle, err := h.service.GetBundle(r.Context(), bundleID)
	if err != nil {
		writeServiceError(w, h.log, err, "get bundle")
		return
	}

	utils.ResponseSuccess(w, "success", bundle)
}

// UpdateBundle handles PUT /api/bundles/{id}
func (h *BundleHandler) UpdateBundle(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	bundleID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.UpdateBundleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bundle, err := h.service.UpdateBundle(r.Context(), identity, bundleID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "update bundle")
		return
	}

	utils.ResponseSuccess(w, "Bundle updated", bundle)
}

// DeleteBundle handles DELETE /api/bundles/{id}
func (h *BundleHandler) DeleteBundle(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	bundleID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	bundle, err := h.service.DeleteBundle(r.Context(), identity, bundleID)
	if err != nil {
		writeServiceError(w, h.log, err, "delete bundle")
		return
	}

	if bundle != nil {
		utils.ResponseSuccess(w, "Bundle has sales and was disabled", bundle)
		return
	}
	utils.ResponseSuccess(w, "Bundle deleted", nil)
}
