package adaptor

import (
	"net/http"

	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/utils"

	"go.uber.org/zap"
)

type OrderHandler struct {
	service usecase.OrderService
	log     *zap.Logger
}

func NewOrderHandler(service usecase.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		log:     log.With(zap.String("handler", "order")),
	}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), identity, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create order")
		return
	}

	utils.ResponseCreated(w, "Order created", order)
}

// CreateBundleOrder handles POST /api/bundles/{id}/orders
func (h *OrderHandler) CreateBundleOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	bundleID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.CreateBundleOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.service.CreateBundleOrder(r.Context(), identity, bundleID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create bundle order")
		return
	}

	utils.ResponseCreated(w, "Order created", order)
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	orders, err := h.service.ListOrders(r.Context(), identity, req)
	if err != nil {
		writeServiceError(w, h.log, err, "list orders")
		return
	}

	utils.ResponseSuccess(w, "success", orders)
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), identity, orderID)
	if err != nil {
		writeServiceError(w, h.log, err, "get order")
		return
	}

	utils.ResponseSuccess(w, "success", order)
}

// CompleteOrder handles POST /api/orders/{id}/complete. It is the payment
// confirmation for card and paypal orders and the checkout of free ones.
func (h *OrderHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.CompleteOrderRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	order, err := h.service.CompleteOrder(r.Context(), identity, orderID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "complete order")
		return
	}

	utils.ResponseSuccess(w, "Order completed", order)
}

// CompleteCashOrder handles POST /api/orders/{id}/complete-cash
func (h *OrderHandler) CompleteCashOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.CompleteCashOrder(r.Context(), identity, orderID)
	if err != nil {
		writeServiceError(w, h.log, err, "complete cash order")
		return
	}

	utils.ResponseSuccess(w, "Order awaiting payment at the door", order)
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), identity, orderID)
	if err != nil {
		writeServiceError(w, h.log, err, "cancel order")
		return
	}

	utils.ResponseSuccess(w, "Order cancelled", order)
}
