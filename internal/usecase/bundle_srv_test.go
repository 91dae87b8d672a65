package usecase

import (
	"strings"
	"testing"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/dto/request"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bundleFixture struct {
	env      *testEnv
	tierX    uuid.UUID
	tierY    uuid.UUID
	bundleID uuid.UUID
}

// newBundleFixture sells a bundle of two X tickets and one Y ticket.
func newBundleFixture(t *testing.T, xQuantity, yQuantity int) *bundleFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &bundleFixture{
		env:   env,
		tierX: env.createTier(t, "Standard", "50.00", xQuantity),
		tierY: env.createTier(t, "Backstage", "120.00", yQuantity),
	}

	bundle, err := env.svc.Bundle.CreateBundle(env.ctx, env.organizer, env.eventID, &request.CreateBundleRequest{
		Name:  "Friends pack",
		Price: "180.00",
		Items: []request.BundleItemRequest{
			{TierID: f.tierX.String(), Quantity: 2},
			{TierID: f.tierY.String(), Quantity: 1},
		},
		TotalQuantity: 5,
	})
	require.NoError(t, err)
	f.bundleID = uuid.MustParse(bundle.ID)
	return f
}

func (f *bundleFixture) bundle(t *testing.T) *entity.TicketBundle {
	t.Helper()
	b, err := f.env.repo.Bundle.FindByID(f.env.ctx, f.bundleID)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func TestBundle_CreateComputesSavings(t *testing.T) {
	f := newBundleFixture(t, 10, 10)

	resp, err := f.env.svc.Bundle.GetBundle(f.env.ctx, f.bundleID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("220").Equal(resp.RegularPrice), resp.RegularPrice.String())
	assert.True(t, decimal.RequireFromString("40").Equal(resp.Savings), resp.Savings.String())

	_, err = f.env.svc.Bundle.CreateBundle(f.env.ctx, f.env.buyer, f.env.eventID, &request.CreateBundleRequest{
		Name:          "Not mine",
		Price:         "10.00",
		Items:         []request.BundleItemRequest{{TierID: f.tierX.String(), Quantity: 1}},
		TotalQuantity: 1,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.env.svc.Bundle.CreateBundle(f.env.ctx, f.env.organizer, f.env.eventID, &request.CreateBundleRequest{
		Name:  "Twice",
		Price: "10.00",
		Items: []request.BundleItemRequest{
			{TierID: f.tierX.String(), Quantity: 1},
			{TierID: f.tierX.String(), Quantity: 1},
		},
		TotalQuantity: 1,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBundle_PurchaseReservesEveryTier(t *testing.T) {
	f := newBundleFixture(t, 2, 1)
	env := f.env

	created, err := env.svc.Order.CreateBundleOrder(env.ctx, env.buyer, f.bundleID, &request.CreateBundleOrderRequest{
		Quantity:      1,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, created.TicketCount)
	assert.True(t, decimal.RequireFromString("180").Equal(created.Subtotal), created.Subtotal.String())

	completed, err := env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	require.NoError(t, err)
	require.Len(t, completed.Tickets, 3)

	assert.Equal(t, 2, env.tier(t, f.tierX).Sold)
	assert.Equal(t, 1, env.tier(t, f.tierY).Sold)
	assert.Equal(t, 1, f.bundle(t).Sold)

	group := f.bundleID.String()[:8] + "-1"
	for _, ticket := range completed.Tickets {
		require.NotNil(t, ticket.BundleGroup)
		assert.Equal(t, group, *ticket.BundleGroup)
	}

	// the tiers are exhausted, so a second bundle is refused up front
	_, err = env.svc.Order.CreateBundleOrder(env.ctx, env.buyer, f.bundleID, &request.CreateBundleOrderRequest{
		Quantity:      1,
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, ErrSoldOut)
}

func TestBundle_GroupPerPurchasedBundle(t *testing.T) {
	f := newBundleFixture(t, 10, 10)
	env := f.env

	created, err := env.svc.Order.CreateBundleOrder(env.ctx, env.buyer, f.bundleID, &request.CreateBundleOrderRequest{
		Quantity:      2,
		PaymentMethod: "paypal",
	})
	require.NoError(t, err)
	completed, err := env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	require.NoError(t, err)
	require.Len(t, completed.Tickets, 6)

	groups := map[string]int{}
	for _, ticket := range completed.Tickets {
		require.NotNil(t, ticket.BundleGroup)
		assert.True(t, strings.HasPrefix(*ticket.BundleGroup, f.bundleID.String()[:8]))
		groups[*ticket.BundleGroup]++
	}
	assert.Equal(t, map[string]int{
		f.bundleID.String()[:8] + "-1": 3,
		f.bundleID.String()[:8] + "-2": 3,
	}, groups)
	assert.Equal(t, 2, f.bundle(t).Sold)
}

func TestBundle_CompensatesWhenTierRunsOut(t *testing.T) {
	f := newBundleFixture(t, 2, 1)
	env := f.env

	created, err := env.svc.Order.CreateBundleOrder(env.ctx, env.buyer, f.bundleID, &request.CreateBundleOrderRequest{
		Quantity:      1,
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	// the last Y ticket is sold elsewhere before payment lands
	_, err = env.svc.Ledger.Reserve(env.ctx, f.tierY, 1)
	require.NoError(t, err)

	_, err = env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	assert.ErrorIs(t, err, ErrSoldOut)

	assert.Zero(t, env.tier(t, f.tierX).Sold)
	assert.Equal(t, 1, env.tier(t, f.tierY).Sold)
	assert.Zero(t, f.bundle(t).Sold)
	assert.Equal(t, entity.OrderStatusPending, env.order(t, created.ID).Status)
}

func TestBundle_SoldOutBundle(t *testing.T) {
	f := newBundleFixture(t, 20, 20)
	env := f.env

	_, err := env.svc.Order.CreateBundleOrder(env.ctx, env.buyer, f.bundleID, &request.CreateBundleOrderRequest{
		Quantity:      6,
		PaymentMethod: "card",
	})
	assert.ErrorIs(t, err, ErrBundleSoldOut)

	require.NoError(t, env.svc.Bundle.Reserve(env.ctx, f.bundleID, 5))
	assert.ErrorIs(t, env.svc.Bundle.Reserve(env.ctx, f.bundleID, 1), ErrBundleSoldOut)

	require.NoError(t, env.svc.Bundle.Release(env.ctx, f.bundleID, 9))
	assert.Zero(t, f.bundle(t).Sold)
}

func TestBundle_CashReservesAtCheckoutAndReleasesOnExpiry(t *testing.T) {
	f := newBundleFixture(t, 10, 10)
	env := f.env

	created, err := env.svc.Order.CreateBundleOrder(env.ctx, env.buyer, f.bundleID, &request.CreateBundleOrderRequest{
		Quantity:      1,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	pending, err := env.svc.Order.CompleteCashOrder(env.ctx, env.buyer, uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.Len(t, pending.ActivationCodes, 3)
	assert.Equal(t, 1, f.bundle(t).Sold)

	env.clock.Advance(env.cfg.Inventory.CashHoldTTL + 1)
	released, err := env.svc.Sweeper.SweepCashOrders(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Zero(t, f.bundle(t).Sold)
}

func TestBundle_SpansEventsOfTheSameOrganizer(t *testing.T) {
	env := newTestEnv(t)
	friday := env.createTier(t, "Friday pass", "50.00", 10)

	second, err := env.svc.Catalog.CreateEvent(env.ctx, env.organizer, &request.CreateEventRequest{
		Name:     "Summer Festival Saturday",
		StartsAt: testStart.Add(31 * 24 * time.Hour),
	})
	require.NoError(t, err)
	saturdayEvent := uuid.MustParse(second.ID)
	saturdayTier, err := env.svc.Catalog.CreateTier(env.ctx, env.organizer, saturdayEvent, &request.CreateTierRequest{
		Name: "Saturday pass", Price: "70.00", Quantity: 10,
	})
	require.NoError(t, err)
	saturday := uuid.MustParse(saturdayTier.ID)

	bundle, err := env.svc.Bundle.CreateBundle(env.ctx, env.organizer, env.eventID, &request.CreateBundleRequest{
		Name:  "Weekend pass",
		Price: "100.00",
		Items: []request.BundleItemRequest{
			{TierID: friday.String(), Quantity: 1},
			{TierID: saturday.String(), Quantity: 1},
		},
		TotalQuantity: 3,
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("120").Equal(bundle.RegularPrice), bundle.RegularPrice.String())

	// tiers of someone else's event stay out
	rival := entity.Identity{Subject: "organizer-2", Email: "rival@example.com"}
	rivalEvent, err := env.svc.Catalog.CreateEvent(env.ctx, rival, &request.CreateEventRequest{
		Name: "Other Festival", StartsAt: testStart.Add(40 * 24 * time.Hour),
	})
	require.NoError(t, err)
	rivalTier, err := env.svc.Catalog.CreateTier(env.ctx, rival, uuid.MustParse(rivalEvent.ID), &request.CreateTierRequest{
		Name: "Rival pass", Price: "10.00", Quantity: 10,
	})
	require.NoError(t, err)
	_, err = env.svc.Bundle.CreateBundle(env.ctx, env.organizer, env.eventID, &request.CreateBundleRequest{
		Name:          "Borrowed",
		Price:         "10.00",
		Items:         []request.BundleItemRequest{{TierID: rivalTier.ID, Quantity: 1}},
		TotalQuantity: 1,
	})
	assert.ErrorIs(t, err, ErrValidation)

	created, err := env.svc.Order.CreateBundleOrder(env.ctx, env.buyer, uuid.MustParse(bundle.ID), &request.CreateBundleOrderRequest{
		Quantity:      1,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	completed, err := env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	require.NoError(t, err)
	require.Len(t, completed.Tickets, 2)

	for _, ticket := range completed.Tickets {
		switch ticket.TierID {
		case friday.String():
			assert.Equal(t, env.eventID.String(), ticket.EventID)
		case saturday.String():
			assert.Equal(t, saturdayEvent.String(), ticket.EventID)
		default:
			t.Fatalf("unexpected tier %s", ticket.TierID)
		}
	}
	assert.Equal(t, 1, env.tier(t, friday).Sold)
	assert.Equal(t, 1, env.tier(t, saturday).Sold)

	// the Saturday organizer can scan the Saturday ticket
	for _, ticket := range completed.Tickets {
		if ticket.TierID == saturday.String() {
			scanned, err := env.svc.Order.ScanTicket(env.ctx, env.organizer, &request.ScanTicketRequest{Code: *ticket.Code})
			require.NoError(t, err)
			assert.Equal(t, entity.TicketStatusScanned, scanned.Status)
		}
	}
}
