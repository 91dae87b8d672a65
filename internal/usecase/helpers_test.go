package usecase

import (
	"context"
	"testing"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/memstore"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	ctx   context.Context
	clock *clock.Fake
	repo  *repository.Repository
	cfg   *utils.Config
	svc   *Service

	organizer entity.Identity
	buyer     entity.Identity
	eventID   uuid.UUID
}

func testConfig() *utils.Config {
	inventory := utils.DefaultInventoryConfig()
	inventory.MaxAttempts = 16
	inventory.RetryBackoff = 0

	return &utils.Config{
		Inventory: inventory,
		Fees:      utils.DefaultFeeConfig(),
		Sweeper:   utils.SweeperConfig{Interval: time.Minute},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := clock.NewFake(testStart)
	repo := memstore.New(clk)
	cfg := testConfig()
	log := zap.NewNop()

	env := &testEnv{
		ctx:       context.Background(),
		clock:     clk,
		repo:      repo,
		cfg:       cfg,
		svc:       NewService(repo, cfg, clk, NewLogNotifier(log), nil, log),
		organizer: entity.Identity{Subject: "organizer-1", Email: "org@example.com"},
		buyer:     entity.Identity{Subject: "buyer-1", Email: "buyer@example.com"},
	}

	event, err := env.svc.Catalog.CreateEvent(env.ctx, env.organizer, &request.CreateEventRequest{
		Name:     "Summer Festival",
		StartsAt: testStart.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	env.eventID = uuid.MustParse(event.ID)

	return env
}

func (e *testEnv) createTier(t *testing.T, name, price string, quantity int) uuid.UUID {
	t.Helper()
	tier, err := e.svc.Catalog.CreateTier(e.ctx, e.organizer, e.eventID, &request.CreateTierRequest{
		Name:     name,
		Price:    price,
		Quantity: quantity,
	})
	require.NoError(t, err)
	return uuid.MustParse(tier.ID)
}

func (e *testEnv) createChart(t *testing.T, seats int) uuid.UUID {
	t.Helper()
	chart, err := e.svc.Catalog.CreateChart(e.ctx, e.organizer, e.eventID, &request.CreateChartRequest{
		Name:       "Main hall",
		TotalSeats: seats,
	})
	require.NoError(t, err)
	return uuid.MustParse(chart.ID)
}

func (e *testEnv) tier(t *testing.T, id uuid.UUID) *entity.TicketTier {
	t.Helper()
	tier, err := e.repo.Tier.FindByID(e.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, tier)
	return tier
}

func (e *testEnv) order(t *testing.T, id string) *entity.Order {
	t.Helper()
	order, err := e.repo.Order.FindByID(e.ctx, uuid.MustParse(id))
	require.NoError(t, err)
	require.NotNil(t, order)
	return order
}

func (e *testEnv) tickets(t *testing.T, orderID string) []*entity.Ticket {
	t.Helper()
	tickets, err := e.repo.Ticket.FindByOrderID(e.ctx, uuid.MustParse(orderID))
	require.NoError(t, err)
	return tickets
}

func buy(tierID uuid.UUID, quantity int) []request.OrderItemRequest {
	return []request.OrderItemRequest{{TierID: tierID.String(), Quantity: quantity}}
}

func seat(section, row, number string) request.SeatRequest {
	return request.SeatRequest{Section: section, Row: row, Seat: number}
}
