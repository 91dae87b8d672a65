package usecase

import (
	"context"
	"errors"
	"fmt"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/metrics"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type OrderService interface {
	// Checkout
	CreateOrder(ctx context.Context, identity entity.Identity, req *request.CreateOrderRequest) (*response.OrderResponse, error)
	CreateBundleOrder(ctx context.Context, identity entity.Identity, bundleID uuid.UUID, req *request.CreateBundleOrderRequest) (*response.OrderResponse, error)
	CompleteOrder(ctx context.Context, identity entity.Identity, orderID uuid.UUID, req *request.CompleteOrderRequest) (*response.OrderResponse, error)
	CompleteCashOrder(ctx context.Context, identity entity.Identity, orderID uuid.UUID) (*response.OrderResponse, error)
	CancelOrder(ctx context.Context, identity entity.Identity, orderID uuid.UUID) (*response.OrderResponse, error)

	// Tickets
	ActivateTicket(ctx context.Context, identity entity.Identity, req *request.ActivateTicketRequest) (*response.ActivationResponse, error)
	CancelTicket(ctx context.Context, identity entity.Identity, ticketID uuid.UUID) (*response.TicketResponse, error)
	ScanTicket(ctx context.Context, identity entity.Identity, req *request.ScanTicketRequest) (*response.TicketResponse, error)
	GetTicketByCode(ctx context.Context, code string) (*response.TicketResponse, error)

	// Reads
	GetOrder(ctx context.Context, identity entity.Identity, orderID uuid.UUID) (*response.OrderResponse, error)
	ListOrders(ctx context.Context, identity entity.Identity, req *request.PaginatedRequest) (*response.PaginatedResponse[response.OrderResponse], error)
}

type orderService struct {
	*fulfillment
}

func NewOrderService(repo *repository.Repository, deps Dependencies, cfg *utils.Config, clk clock.Clock, log *zap.Logger) OrderService {
	return &orderService{
		fulfillment: newFulfillment(repo, deps, cfg, clk, log.With(zap.String("service", "order"))),
	}
}

// orderDraft is a validated checkout request ready to be priced and written.
type orderDraft struct {
	eventID        uuid.UUID
	items          []draftItem
	ticketCount    int
	subtotal       decimal.Decimal
	chartID        *uuid.UUID
	seats          []entity.SeatCoordinate
	discountCode   string
	referralCode   string
	method         entity.PaymentMethod
	bundleID       *uuid.UUID
	bundleQuantity int
}

type draftItem struct {
	tierID      uuid.UUID
	unitPrice   decimal.Decimal
	bundleGroup *string
}

func (s *orderService) CreateOrder(ctx context.Context, identity entity.Identity, req *request.CreateOrderRequest) (*response.OrderResponse, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		s.log.Warn("Create order validation failed", zap.Error(err))
		return nil, err
	}

	eventID, err := parseID("event_id", req.EventID)
	if err != nil {
		return nil, err
	}
	event, err := s.repo.Event.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	if event == nil {
		return nil, notFound("event")
	}

	draft := orderDraft{
		eventID:      eventID,
		discountCode: req.DiscountCode,
		referralCode: req.ReferralCode,
		method:       entity.PaymentMethod(req.PaymentMethod),
		subtotal:     decimal.Zero,
	}

	// Price every unit at the tier's current price
	now := s.clock.Now()
	for _, item := range req.Items {
		tierID, err := parseID("tier_id", item.TierID)
		if err != nil {
			return nil, err
		}
		tier, err := s.repo.Tier.FindByID(ctx, tierID)
		if err != nil {
			return nil, fmt.Errorf("find tier: %w", err)
		}
		if tier == nil || tier.EventID != eventID {
			return nil, validationError("tier %s is not part of this event", tierID)
		}
		if !tier.OnSaleAt(now) {
			return nil, fmt.Errorf("%w: %s", ErrSaleWindowClosed, tier.Name)
		}
		if tier.Remaining() < item.Quantity {
			return nil, ErrSoldOut
		}

		price := tier.PriceAt(now)
		for i := 0; i < item.Quantity; i++ {
			draft.items = append(draft.items, draftItem{tierID: tierID, unitPrice: price})
		}
		draft.ticketCount += item.Quantity * tier.TicketsPerUnit()
		draft.subtotal = draft.subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	// Seats must match tickets one to one
	if len(req.Seats) > 0 {
		if req.ChartID == "" {
			return nil, validationError("chart_id is required when seats are selected")
		}
		chartID, err := parseID("chart_id", req.ChartID)
		if err != nil {
			return nil, err
		}
		if len(req.Seats) != draft.ticketCount {
			return nil, validationError("selected %d seats for %d tickets", len(req.Seats), draft.ticketCount)
		}
		draft.chartID = &chartID
		for _, seat := range req.Seats {
			draft.seats = append(draft.seats, entity.SeatCoordinate{
				Section: seat.Section,
				Row:     seat.Row,
				Table:   seat.Table,
				Seat:    seat.Seat,
			})
		}
	}

	order, err := s.placeOrder(ctx, identity, draft)
	if err != nil {
		return nil, err
	}

	resp := response.OrderToResponse(order, nil)
	return &resp, nil
}

func (s *orderService) CreateBundleOrder(ctx context.Context, identity entity.Identity, bundleID uuid.UUID, req *request.CreateBundleOrderRequest) (*response.OrderResponse, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	bundle, err := s.repo.Bundle.FindByID(ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("find bundle: %w", err)
	}
	if bundle == nil {
		return nil, notFound("bundle")
	}

	now := s.clock.Now()
	if !bundle.OnSaleAt(now) {
		return nil, fmt.Errorf("%w: %s", ErrSaleWindowClosed, bundle.Name)
	}
	if bundle.Remaining() < req.Quantity {
		return nil, ErrBundleSoldOut
	}

	draft := orderDraft{
		eventID:        bundle.EventID,
		subtotal:       bundle.Price.Mul(decimal.NewFromInt(int64(req.Quantity))).Round(2),
		discountCode:   req.DiscountCode,
		referralCode:   req.ReferralCode,
		method:         entity.PaymentMethod(req.PaymentMethod),
		bundleID:       &bundle.ID,
		bundleQuantity: req.Quantity,
	}

	tiers := make(map[uuid.UUID]*entity.TicketTier, len(bundle.Items))
	for _, item := range bundle.Items {
		tier, err := s.repo.Tier.FindByID(ctx, item.TierID)
		if err != nil {
			return nil, fmt.Errorf("find tier: %w", err)
		}
		if tier == nil {
			return nil, notFound("bundle tier")
		}
		if tier.Remaining() < item.Quantity*req.Quantity {
			return nil, ErrSoldOut
		}
		tiers[item.TierID] = tier
	}

	// One group tag per purchased bundle keeps its tickets together
	for b := 1; b <= req.Quantity; b++ {
		group := fmt.Sprintf("%s-%d", bundle.ID.String()[:8], b)
		for _, item := range bundle.Items {
			tier := tiers[item.TierID]
			for i := 0; i < item.Quantity; i++ {
				draft.items = append(draft.items, draftItem{
					tierID:      item.TierID,
					unitPrice:   tier.PriceAt(now),
					bundleGroup: &group,
				})
			}
			draft.ticketCount += item.Quantity * tier.TicketsPerUnit()
		}
	}

	order, err := s.placeOrder(ctx, identity, draft)
	if err != nil {
		return nil, err
	}

	resp := response.OrderToResponse(order, nil)
	return &resp, nil
}

// placeOrder holds seats, consumes the discount and writes the PENDING order.
// Every step already taken is undone when a later one fails.
func (s *orderService) placeOrder(ctx context.Context, identity entity.Identity, d orderDraft) (*entity.Order, error) {
	now := s.clock.Now()
	orderID := uuid.New()

	var compensations []func()
	compensate := func() {
		for i := len(compensations) - 1; i >= 0; i-- {
			compensations[i]()
		}
	}

	if d.chartID != nil {
		chart, err := s.repo.Chart.FindByID(ctx, *d.chartID)
		if err != nil {
			return nil, fmt.Errorf("find seating chart: %w", err)
		}
		if chart == nil || chart.EventID != d.eventID {
			return nil, validationError("seating chart is not part of this event")
		}
		if _, err := s.seats.HoldSeats(ctx, *d.chartID, d.seats, orderID, s.seatTTL); err != nil {
			return nil, err
		}
		compensations = append(compensations, func() {
			if _, err := s.seats.ReleaseByOrder(ctx, orderID); err != nil {
				s.log.Error("Failed to release seats of abandoned order", zap.Error(err))
			}
		})
	}

	order := &entity.Order{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        orderID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderNumber:    utils.GenerateOrderNumber(now),
		BuyerID:        identity.Subject,
		BuyerEmail:     identity.Email,
		EventID:        d.eventID,
		Subtotal:       d.subtotal,
		DiscountAmount: decimal.Zero,
		Status:         entity.OrderStatusPending,
		PaymentMethod:  d.method,
		BundleID:       d.bundleID,
		BundleQuantity: d.bundleQuantity,
		ChartID:        d.chartID,
		Seats:          d.seats,
		TicketCount:    d.ticketCount,
	}

	if d.discountCode != "" {
		discount, err := s.promos.ConsumeDiscount(ctx, d.eventID, d.discountCode)
		if err != nil {
			compensate()
			return nil, err
		}
		compensations = append(compensations, func() { s.restoreDiscount(ctx, order) })
		order.DiscountCodeID = &discount.ID
		order.DiscountAmount = discount.AmountOff(d.subtotal)
	}

	if d.referralCode != "" {
		referral, err := s.promos.AttributeReferral(ctx, d.eventID, d.referralCode)
		if err != nil {
			compensate()
			return nil, err
		}
		if referral == nil {
			s.log.Warn("Unknown referral code ignored",
				zap.String("event_id", d.eventID.String()),
				zap.String("code", d.referralCode),
			)
		} else {
			order.ReferralCodeID = &referral.ID
		}
	}

	s.price(order)
	if d.method == entity.PaymentMethodFree && !order.Total.IsZero() {
		compensate()
		return nil, validationError("free checkout requires a zero total")
	}

	items := make([]*entity.OrderItem, 0, len(d.items))
	for i, item := range d.items {
		items = append(items, &entity.OrderItem{
			BaseSimple: entity.BaseSimple{
				ID:        uuid.New(),
				CreatedAt: now,
			},
			OrderID:     orderID,
			TierID:      item.tierID,
			UnitPrice:   item.unitPrice,
			BundleGroup: item.bundleGroup,
			Position:    i,
		})
	}

	if err := s.repo.Order.Create(ctx, order, items); err != nil {
		compensate()
		s.log.Error("Failed to create order", zap.Error(err), zap.String("buyer_id", identity.Subject))
		return nil, fmt.Errorf("create order: %w", err)
	}

	metrics.OrderTransitions.WithLabelValues(string(entity.OrderStatusPending)).Inc()
	s.log.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("buyer_id", identity.Subject),
		zap.Int("ticket_count", order.TicketCount),
		zap.String("total", order.Total.StringFixed(2)),
	)

	return order, nil
}

func (s *orderService) ownedOrder(ctx context.Context, identity entity.Identity, orderID uuid.UUID) (*entity.Order, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(identity.Subject) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *orderService) CompleteOrder(ctx context.Context, identity entity.Identity, orderID uuid.UUID, req *request.CompleteOrderRequest) (*response.OrderResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	order, err := s.ownedOrder(ctx, identity, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.Order.FindItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("find order items: %w", err)
	}

	// A repeated confirmation for the same payment only re-materializes
	if order.Status == entity.OrderStatusCompleted {
		if req.PaymentReference == "" || order.PaymentReference == nil || *order.PaymentReference != req.PaymentReference {
			return nil, fmt.Errorf("%w: order already completed", ErrInvalidTransition)
		}
		tickets, _, err := s.materialize(ctx, order, items, entity.TicketStatusValid)
		if err != nil {
			return nil, err
		}
		s.confirmSeats(ctx, order, tickets)
		resp := response.OrderToResponse(order, tickets)
		return &resp, nil
	}

	if order.Status != entity.OrderStatusPending {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}

	method := order.PaymentMethod
	if req.PaymentMethod != "" {
		method = entity.PaymentMethod(req.PaymentMethod)
	}
	if method == entity.PaymentMethodCash {
		return nil, validationError("cash orders are completed through the cash checkout")
	}

	if err := s.ensureSeatHolds(ctx, order, s.clock.Now().Add(s.seatTTL)); err != nil {
		return nil, err
	}

	allocs := allocations(items)
	if err := s.reserveInventory(ctx, order, allocs); err != nil {
		s.log.Info("Inventory not available at completion",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.clock.Now()
	completed, err := s.transition(ctx, orderID, s.policy.attempts, func(o *entity.Order) error {
		if o.Status != entity.OrderStatusPending {
			return fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
		}
		o.PaymentMethod = method
		s.price(o)
		if o.PaymentMethod == entity.PaymentMethodFree && !o.Total.IsZero() {
			return validationError("free checkout requires a zero total")
		}
		if req.PaymentReference != "" {
			ref := req.PaymentReference
			o.PaymentReference = &ref
		}
		o.Status = entity.OrderStatusCompleted
		o.CompletedAt = &now
		return nil
	})
	if err != nil {
		s.releaseInventory(ctx, order, allocs)
		return nil, err
	}

	tickets, _, err := s.materialize(ctx, completed, items, entity.TicketStatusValid)
	if err != nil {
		s.log.Error("Order completed without tickets",
			zap.Error(err),
			zap.String("order_id", completed.ID.String()),
		)
		return nil, err
	}
	s.confirmSeats(ctx, completed, tickets)
	s.settle(ctx, completed, tickets)

	resp := response.OrderToResponse(completed, tickets)
	return &resp, nil
}

func (s *orderService) CompleteCashOrder(ctx context.Context, identity entity.Identity, orderID uuid.UUID) (*response.OrderResponse, error) {
	order, err := s.ownedOrder(ctx, identity, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != entity.PaymentMethodCash {
		return nil, validationError("order is not a cash order")
	}

	items, err := s.repo.Order.FindItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("find order items: %w", err)
	}

	switch order.Status {
	case entity.OrderStatusPending:
	case entity.OrderStatusPendingPayment:
		// only tickets a failed earlier call did not write are created
		return s.issueActivationCodes(ctx, order, items)
	default:
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}

	deadline := order.CreatedAt.Add(s.cashTTL)
	if !s.clock.Now().Before(deadline) {
		return nil, ErrOrderExpired
	}

	if err := s.ensureSeatHolds(ctx, order, deadline); err != nil {
		return nil, err
	}

	if order.BundleID != nil {
		if err := s.bundles.Reserve(ctx, *order.BundleID, order.BundleQuantity); err != nil {
			return nil, err
		}
	}

	updated, err := s.transition(ctx, orderID, s.policy.attempts, func(o *entity.Order) error {
		if o.Status != entity.OrderStatusPending {
			return fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
		}
		o.Status = entity.OrderStatusPendingPayment
		o.HoldExpiresAt = &deadline
		return nil
	})
	if err != nil {
		s.releaseBundle(ctx, order)
		return nil, err
	}

	return s.issueActivationCodes(ctx, updated, items)
}

func (s *orderService) issueActivationCodes(ctx context.Context, order *entity.Order, items []*entity.OrderItem) (*response.OrderResponse, error) {
	tickets, codes, err := s.materialize(ctx, order, items, entity.TicketStatusPendingActivation)
	if err != nil {
		return nil, err
	}
	if order.HoldExpiresAt != nil {
		if err := s.seats.ExtendHolds(ctx, order.ID, *order.HoldExpiresAt); err != nil {
			s.log.Warn("Seat holds not extended", zap.Error(err), zap.String("order_id", order.ID.String()))
		}
	}

	resp := response.OrderToResponse(order, tickets)
	for _, t := range tickets {
		if code, ok := codes[t.ID]; ok {
			resp.ActivationCodes = append(resp.ActivationCodes, response.ActivationCodeResponse{
				TicketID: t.ID.String(),
				Code:     code,
			})
		}
	}
	return &resp, nil
}

func (s *orderService) CancelOrder(ctx context.Context, identity entity.Identity, orderID uuid.UUID) (*response.OrderResponse, error) {
	if _, err := s.ownedOrder(ctx, identity, orderID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order, err := s.transition(ctx, orderID, s.policy.attempts, func(o *entity.Order) error {
		switch {
		case o.Status.IsTerminal():
			return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, o.Status)
		case o.Status != entity.OrderStatusPending:
			return fmt.Errorf("%w: only pending orders can be cancelled", ErrInvalidTransition)
		}
		o.Status = entity.OrderStatusCancelled
		o.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.seats.ReleaseByOrder(ctx, order.ID); err != nil {
		s.log.Error("Failed to release seats of cancelled order", zap.Error(err), zap.String("order_id", order.ID.String()))
	}
	s.restoreDiscount(ctx, order)

	resp := response.OrderToResponse(order, nil)
	return &resp, nil
}

func (s *orderService) GetOrder(ctx context.Context, identity entity.Identity, orderID uuid.UUID) (*response.OrderResponse, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(identity.Subject) && !isOrganizer(ctx, s.repo.Event, identity.Subject, order.EventID) {
		return nil, ErrForbidden
	}

	tickets, err := s.repo.Ticket.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("find tickets of order: %w", err)
	}

	resp := response.OrderToResponse(order, tickets)
	return &resp, nil
}

func (s *orderService) ListOrders(ctx context.Context, identity entity.Identity, req *request.PaginatedRequest) (*response.PaginatedResponse[response.OrderResponse], error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	limit := req.Limit()
	offset := req.Offset()

	orders, err := s.repo.Order.FindByBuyer(ctx, identity.Subject, limit, offset)
	if err != nil {
		s.log.Error("Failed to list orders", zap.Error(err), zap.String("buyer_id", identity.Subject))
		return nil, fmt.Errorf("list orders: %w", err)
	}
	total, err := s.repo.Order.CountByBuyer(ctx, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	data := make([]response.OrderResponse, 0, len(orders))
	for _, o := range orders {
		data = append(data, response.OrderToResponse(o, nil))
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return response.NewPaginatedResponse(data, page, limit, total), nil
}

var errActivationMismatch = errors.New("activation code does not match")

// matchActivation finds the buyer's pending ticket whose hash matches code.
func (s *orderService) matchActivation(ctx context.Context, identity entity.Identity, code string) (*entity.Ticket, error) {
	candidates, err := s.repo.Ticket.FindPendingActivationByBuyerEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("find pending tickets: %w", err)
	}
	for _, t := range candidates {
		if t.ActivationCodeHash == nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(*t.ActivationCodeHash), []byte(code)) == nil {
			return t, nil
		}
	}
	return nil, errActivationMismatch
}
