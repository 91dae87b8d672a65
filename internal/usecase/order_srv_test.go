package usecase

import (
	"testing"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/dto/request"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "50.00", 10)
	chartID := env.createChart(t, 50)

	tests := []struct {
		name     string
		identity entity.Identity
		req      request.CreateOrderRequest
		wantErr  error
	}{
		{
			name:     "anonymous caller",
			identity: entity.Identity{},
			req:      request.CreateOrderRequest{EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "card"},
			wantErr:  ErrUnauthenticated,
		},
		{
			name:     "no items",
			identity: env.buyer,
			req:      request.CreateOrderRequest{EventID: env.eventID.String(), PaymentMethod: "card"},
			wantErr:  ErrValidation,
		},
		{
			name:     "unknown payment method",
			identity: env.buyer,
			req:      request.CreateOrderRequest{EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "barter"},
			wantErr:  ErrValidation,
		},
		{
			name:     "tier of another event",
			identity: env.buyer,
			req:      request.CreateOrderRequest{EventID: env.eventID.String(), Items: buy(uuid.New(), 1), PaymentMethod: "card"},
			wantErr:  ErrValidation,
		},
		{
			name:     "seat count differs from ticket count",
			identity: env.buyer,
			req: request.CreateOrderRequest{
				EventID:       env.eventID.String(),
				Items:         buy(tierID, 2),
				ChartID:       chartID.String(),
				Seats:         []request.SeatRequest{seat("A", "1", "1")},
				PaymentMethod: "card",
			},
			wantErr: ErrValidation,
		},
		{
			name:     "seats without chart",
			identity: env.buyer,
			req: request.CreateOrderRequest{
				EventID:       env.eventID.String(),
				Items:         buy(tierID, 1),
				Seats:         []request.SeatRequest{seat("A", "1", "1")},
				PaymentMethod: "card",
			},
			wantErr: ErrValidation,
		},
		{
			name:     "more than remaining",
			identity: env.buyer,
			req:      request.CreateOrderRequest{EventID: env.eventID.String(), Items: buy(tierID, 11), PaymentMethod: "card"},
			wantErr:  ErrSoldOut,
		},
		{
			name:     "paid tier as free",
			identity: env.buyer,
			req:      request.CreateOrderRequest{EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "free"},
			wantErr:  ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Order.CreateOrder(env.ctx, tt.identity, &tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Zero(t, env.tier(t, tierID).Sold)
}

func TestOrder_SaleWindowClosed(t *testing.T) {
	env := newTestEnv(t)
	ended := testStart.Add(-time.Hour)
	tier, err := env.svc.Catalog.CreateTier(env.ctx, env.organizer, env.eventID, &request.CreateTierRequest{
		Name:      "Early",
		Price:     "10.00",
		Quantity:  10,
		SaleStart: ptr(testStart.Add(-48 * time.Hour)),
		SaleEnd:   &ended,
	})
	require.NoError(t, err)

	_, err = env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID:       env.eventID.String(),
		Items:         buy(uuid.MustParse(tier.ID), 1),
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, ErrSaleWindowClosed)
}

func TestOrder_CardCheckout(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "100.00", 10)

	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID:       env.eventID.String(),
		Items:         buy(tierID, 2),
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPending, created.Status)
	assert.Equal(t, 2, created.TicketCount)

	// 200 + (7.40 + 2 x 1.79) platform + 2.9% processing
	assert.True(t, decimal.RequireFromString("200").Equal(created.Subtotal))
	assert.True(t, decimal.RequireFromString("10.98").Equal(created.PlatformFee), created.PlatformFee.String())
	assert.True(t, decimal.RequireFromString("6.12").Equal(created.ProcessingFee), created.ProcessingFee.String())
	assert.True(t, decimal.RequireFromString("217.10").Equal(created.Total), created.Total.String())

	// nothing is reserved before payment
	assert.Zero(t, env.tier(t, tierID).Sold)

	completed, err := env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{
		PaymentReference: "ch_123",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCompleted, completed.Status)
	require.Len(t, completed.Tickets, 2)
	for _, ticket := range completed.Tickets {
		assert.Equal(t, entity.TicketStatusValid, ticket.Status)
		require.NotNil(t, ticket.Code)
	}
	assert.Equal(t, 2, env.tier(t, tierID).Sold)

	// the gateway retried the confirmation
	replay, err := env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{
		PaymentReference: "ch_123",
	})
	require.NoError(t, err)
	assert.Len(t, replay.Tickets, 2)
	assert.Equal(t, 2, env.tier(t, tierID).Sold)

	_, err = env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{
		PaymentReference: "ch_other",
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrder_SoldOutAtCompletionLeavesOrderPending(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Last seat", "40.00", 1)
	other := entity.Identity{Subject: "buyer-2", Email: "other@example.com"}

	first, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "card",
	})
	require.NoError(t, err)
	second, err := env.svc.Order.CreateOrder(env.ctx, other, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "paypal",
	})
	require.NoError(t, err)

	_, err = env.svc.Order.CompleteOrder(env.ctx, other, uuid.MustParse(second.ID), &request.CompleteOrderRequest{})
	require.NoError(t, err)

	_, err = env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(first.ID), &request.CompleteOrderRequest{})
	assert.ErrorIs(t, err, ErrSoldOut)
	assert.EqualError(t, ErrSoldOut, "sold out during checkout")

	assert.Equal(t, entity.OrderStatusPending, env.order(t, first.ID).Status)
	assert.Empty(t, env.tickets(t, first.ID))
	assert.Equal(t, 1, env.tier(t, tierID).Sold)
}

func TestOrder_OnlyOwnerCompletes(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "40.00", 5)

	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "card",
	})
	require.NoError(t, err)

	stranger := entity.Identity{Subject: "stranger", Email: "x@example.com"}
	_, err = env.svc.Order.CompleteOrder(env.ctx, stranger, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	// the organizer may read it
	got, err := env.svc.Order.GetOrder(env.ctx, env.organizer, uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = env.svc.Order.GetOrder(env.ctx, stranger, uuid.MustParse(created.ID))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOrder_CashCannotUseCardCompletion(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "40.00", 5)

	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrder_FreeCheckout(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Community", "0", 3)

	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.True(t, created.Total.IsZero())
	assert.Equal(t, entity.PaymentMethodFree, created.PaymentMethod)

	completed, err := env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCompleted, completed.Status)
	assert.Equal(t, 1, env.tier(t, tierID).Sold)
}

func TestOrder_CancelReleasesSeatsAndDiscount(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Reserved", "80.00", 10)
	chartID := env.createChart(t, 20)

	maxUses := 1
	_, err := env.svc.Catalog.CreateDiscountCode(env.ctx, env.organizer, env.eventID, &request.CreateDiscountCodeRequest{
		Code:    "friends",
		Kind:    "percentage",
		Value:   "25",
		MaxUses: &maxUses,
	})
	require.NoError(t, err)

	req := &request.CreateOrderRequest{
		EventID:       env.eventID.String(),
		Items:         buy(tierID, 2),
		ChartID:       chartID.String(),
		Seats:         []request.SeatRequest{seat("A", "1", "1"), seat("A", "1", "2")},
		DiscountCode:  "FRIENDS",
		PaymentMethod: "card",
	}
	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, req)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("40").Equal(created.DiscountAmount), created.DiscountAmount.String())

	// the single use is taken
	_, err = env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), DiscountCode: "FRIENDS", PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, ErrDiscountUnavailable)

	cancelled, err := env.svc.Order.CancelOrder(env.ctx, env.buyer, uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, cancelled.Status)

	availability, err := env.svc.Seats.Availability(env.ctx, chartID)
	require.NoError(t, err)
	assert.Zero(t, availability.ReservedSeats)

	// seats and the discount use are available again
	_, err = env.svc.Order.CreateOrder(env.ctx, env.buyer, req)
	assert.NoError(t, err)

	_, err = env.svc.Order.CancelOrder(env.ctx, env.buyer, uuid.MustParse(created.ID))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrder_SeatTakenByAnotherOrder(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Reserved", "80.00", 10)
	chartID := env.createChart(t, 20)

	req := &request.CreateOrderRequest{
		EventID:       env.eventID.String(),
		Items:         buy(tierID, 1),
		ChartID:       chartID.String(),
		Seats:         []request.SeatRequest{seat("A", "3", "9")},
		PaymentMethod: "card",
	}
	_, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, req)
	require.NoError(t, err)

	_, err = env.svc.Order.CreateOrder(env.ctx, entity.Identity{Subject: "buyer-2"}, req)
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "A", conflict.Seat.Section)
}

func TestOrder_TicketCancelReleasesInventory(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Reserved", "80.00", 2)
	chartID := env.createChart(t, 20)

	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID:       env.eventID.String(),
		Items:         buy(tierID, 2),
		ChartID:       chartID.String(),
		Seats:         []request.SeatRequest{seat("B", "1", "1"), seat("B", "1", "2")},
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	completed, err := env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	require.NoError(t, err)
	require.Len(t, completed.Tickets, 2)
	assert.Equal(t, 2, env.tier(t, tierID).Sold)

	first := completed.Tickets[0]
	cancelled, err := env.svc.Order.CancelTicket(env.ctx, env.buyer, uuid.MustParse(first.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, env.tier(t, tierID).Sold)

	availability, err := env.svc.Seats.Availability(env.ctx, chartID)
	require.NoError(t, err)
	assert.Equal(t, 1, availability.ReservedSeats)

	// cancelling twice releases nothing more
	_, err = env.svc.Order.CancelTicket(env.ctx, env.buyer, uuid.MustParse(first.ID))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, env.tier(t, tierID).Sold)

	// scanned tickets are final
	second := completed.Tickets[1]
	scanned, err := env.svc.Order.ScanTicket(env.ctx, env.organizer, &request.ScanTicketRequest{Code: *second.Code})
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusScanned, scanned.Status)

	_, err = env.svc.Order.ScanTicket(env.ctx, env.organizer, &request.ScanTicketRequest{Code: *second.Code})
	assert.ErrorIs(t, err, ErrTicketScanned)

	_, err = env.svc.Order.CancelTicket(env.ctx, env.buyer, uuid.MustParse(second.ID))
	assert.ErrorIs(t, err, ErrTicketScanned)
	assert.Equal(t, 1, env.tier(t, tierID).Sold)
}

func TestOrder_ScanRequiresOrganizer(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "15.00", 2)

	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "card",
	})
	require.NoError(t, err)
	completed, err := env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	require.NoError(t, err)

	_, err = env.svc.Order.ScanTicket(env.ctx, env.buyer, &request.ScanTicketRequest{Code: *completed.Tickets[0].Code})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Order.GetTicketByCode(env.ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrder_ListOrders(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "15.00", 20)

	for i := 0; i < 3; i++ {
		_, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
			EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "card",
		})
		require.NoError(t, err)
	}

	page, err := env.svc.Order.ListOrders(env.ctx, env.buyer, &request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestOrder_ReferralCommissionOnCompletion(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "50.00", 20)

	referral, err := env.svc.Catalog.CreateReferralCode(env.ctx, env.organizer, env.eventID, &request.CreateReferralCodeRequest{
		StaffID:           "staff-7",
		Code:              "SAM10",
		CommissionPercent: "10",
	})
	require.NoError(t, err)

	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 2), ReferralCode: "SAM10", PaymentMethod: "card",
	})
	require.NoError(t, err)
	_, err = env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	require.NoError(t, err)

	code, err := env.repo.Referral.FindByID(env.ctx, uuid.MustParse(referral.ID))
	require.NoError(t, err)
	assert.Equal(t, 2, code.TicketsSold)
	assert.True(t, decimal.RequireFromString("10").Equal(code.CommissionEarned), code.CommissionEarned.String())

	// unknown referral codes do not block checkout
	_, err = env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), ReferralCode: "NOBODY", PaymentMethod: "card",
	})
	assert.NoError(t, err)
}

func ptr[T any](v T) *T {
	return &v
}

func TestOrder_PricingTierOverrides(t *testing.T) {
	env := newTestEnv(t)

	earlyUntil := testStart.Add(time.Hour)
	lateFrom := testStart.Add(48 * time.Hour)
	tier, err := env.svc.Catalog.CreateTier(env.ctx, env.organizer, env.eventID, &request.CreateTierRequest{
		Name:     "General",
		Price:    "100.00",
		Quantity: 20,
		PricingTiers: []request.PricingTierRequest{
			{Name: "Early bird", Price: "80.00", ValidUntil: &earlyUntil},
			{Name: "Door", Price: "130.00", ValidFrom: &lateFrom},
		},
	})
	require.NoError(t, err)
	tierID := uuid.MustParse(tier.ID)

	subtotal := func() decimal.Decimal {
		t.Helper()
		created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
			EventID:       env.eventID.String(),
			Items:         buy(tierID, 2),
			PaymentMethod: "card",
		})
		require.NoError(t, err)
		return created.Subtotal
	}

	early := subtotal()
	assert.True(t, decimal.RequireFromString("160").Equal(early), early.String())

	// between the two windows the base price applies
	env.clock.Advance(2 * time.Hour)
	regular := subtotal()
	assert.True(t, decimal.RequireFromString("200").Equal(regular), regular.String())

	env.clock.Advance(48 * time.Hour)
	door := subtotal()
	assert.True(t, decimal.RequireFromString("260").Equal(door), door.String())
}

func TestOrder_TableSeatsCancelAsOneUnit(t *testing.T) {
	env := newTestEnv(t)
	tier, err := env.svc.Catalog.CreateTier(env.ctx, env.organizer, env.eventID, &request.CreateTierRequest{
		Name:         "VIP table",
		Price:        "400.00",
		Quantity:     1,
		SeatsPerUnit: ptr(4),
	})
	require.NoError(t, err)
	tierID := uuid.MustParse(tier.ID)

	buyTable := func(buyer entity.Identity) *entity.Order {
		t.Helper()
		created, err := env.svc.Order.CreateOrder(env.ctx, buyer, &request.CreateOrderRequest{
			EventID:       env.eventID.String(),
			Items:         buy(tierID, 1),
			PaymentMethod: "card",
		})
		require.NoError(t, err)
		assert.Equal(t, 4, created.TicketCount)
		completed, err := env.svc.Order.CompleteOrder(env.ctx, buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
		require.NoError(t, err)
		require.Len(t, completed.Tickets, 4)
		return env.order(t, created.ID)
	}

	first := buyTable(env.buyer)
	assert.Equal(t, 1, env.tier(t, tierID).Sold)

	// cancelling one guest seat gives back the whole table
	var guest *entity.Ticket
	for _, ticket := range env.tickets(t, first.ID.String()) {
		if ticket.LedgerUnits == 0 {
			guest = ticket
			break
		}
	}
	require.NotNil(t, guest)

	cancelled, err := env.svc.Order.CancelTicket(env.ctx, env.buyer, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusCancelled, cancelled.Status)
	for _, ticket := range env.tickets(t, first.ID.String()) {
		assert.Equal(t, entity.TicketStatusCancelled, ticket.Status, ticket.ID.String())
	}
	assert.Zero(t, env.tier(t, tierID).Sold)

	// the table is sold once more, never twice
	other := entity.Identity{Subject: "buyer-2", Email: "table@example.com"}
	second := buyTable(other)
	assert.Equal(t, 1, env.tier(t, tierID).Sold)

	_, err = env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, ErrSoldOut)

	// a seat already scanned keeps the table sold
	tickets := env.tickets(t, second.ID.String())
	var lead, seated *entity.Ticket
	for _, ticket := range tickets {
		switch {
		case ticket.LedgerUnits > 0:
			lead = ticket
		case seated == nil:
			seated = ticket
		}
	}
	require.NotNil(t, lead)
	require.NotNil(t, seated)

	_, err = env.svc.Order.ScanTicket(env.ctx, env.organizer, &request.ScanTicketRequest{Code: *seated.Code})
	require.NoError(t, err)

	_, err = env.svc.Order.CancelTicket(env.ctx, other, lead.ID)
	assert.ErrorIs(t, err, ErrTicketScanned)
	assert.Equal(t, 1, env.tier(t, tierID).Sold)

	live := 0
	for _, ticket := range env.tickets(t, second.ID.String()) {
		if ticket.Status == entity.TicketStatusValid || ticket.Status == entity.TicketStatusScanned {
			live++
		}
	}
	assert.Equal(t, 4, live)
}
