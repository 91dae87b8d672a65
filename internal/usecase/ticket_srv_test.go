package usecase

import (
	"sync"
	"testing"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cashOrder places a cash order for quantity units and runs the cash checkout.
func (e *testEnv) cashOrder(t *testing.T, tierID uuid.UUID, quantity int) *response.OrderResponse {
	t.Helper()
	created, err := e.svc.Order.CreateOrder(e.ctx, e.buyer, &request.CreateOrderRequest{
		EventID:       e.eventID.String(),
		Items:         buy(tierID, quantity),
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	pending, err := e.svc.Order.CompleteCashOrder(e.ctx, e.buyer, uuid.MustParse(created.ID))
	require.NoError(t, err)
	require.Len(t, pending.ActivationCodes, quantity)
	return pending
}

func TestCash_ActivationCompletesOnLastTicket(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Door", "20.00", 10)

	pending := env.cashOrder(t, tierID, 3)
	assert.Equal(t, entity.OrderStatusPendingPayment, pending.Status)
	require.NotNil(t, pending.HoldExpiresAt)
	assert.Equal(t, testStart.Add(env.cfg.Inventory.CashHoldTTL), *pending.HoldExpiresAt)
	assert.True(t, pending.ProcessingFee.IsZero())

	for _, ticket := range env.tickets(t, pending.ID) {
		assert.Equal(t, entity.TicketStatusPendingActivation, ticket.Status)
		assert.Nil(t, ticket.Code)
	}
	// units are only taken when tickets are activated
	assert.Zero(t, env.tier(t, tierID).Sold)

	for i, code := range pending.ActivationCodes {
		activated, err := env.svc.Order.ActivateTicket(env.ctx, env.buyer, &request.ActivateTicketRequest{Code: code.Code})
		require.NoError(t, err)
		assert.Equal(t, code.TicketID, activated.Ticket.ID)
		assert.Equal(t, entity.TicketStatusValid, activated.Ticket.Status)
		assert.NotNil(t, activated.Ticket.Code)
		assert.Equal(t, i+1, activated.ActivatedTickets)
		assert.Equal(t, i+1, env.tier(t, tierID).Sold)

		if i < 2 {
			assert.Equal(t, entity.OrderStatusPendingPayment, activated.OrderStatus)
		} else {
			assert.Equal(t, entity.OrderStatusCompleted, activated.OrderStatus)
		}
	}

	order := env.order(t, pending.ID)
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	assert.Equal(t, 3, order.ActivatedTickets)

	_, err := env.svc.Order.ActivateTicket(env.ctx, env.buyer, &request.ActivateTicketRequest{Code: pending.ActivationCodes[0].Code})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 3, env.tier(t, tierID).Sold)
}

func TestCash_ActivationChecksBuyerEmail(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Door", "20.00", 10)
	pending := env.cashOrder(t, tierID, 1)

	impostor := entity.Identity{Subject: "buyer-9", Email: "someone@example.com"}
	_, err := env.svc.Order.ActivateTicket(env.ctx, impostor, &request.ActivateTicketRequest{Code: pending.ActivationCodes[0].Code})
	assert.ErrorIs(t, err, ErrValidation)

	noEmail := entity.Identity{Subject: "buyer-1"}
	_, err = env.svc.Order.ActivateTicket(env.ctx, noEmail, &request.ActivateTicketRequest{Code: pending.ActivationCodes[0].Code})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Order.ActivateTicket(env.ctx, env.buyer, &request.ActivateTicketRequest{Code: "12ab"})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, env.tier(t, tierID).Sold)
}

func TestCash_ConcurrentActivationsCompleteOnce(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Door", "20.00", 10)
	pending := env.cashOrder(t, tierID, 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		failures  []error
	)
	for _, code := range pending.ActivationCodes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			resp, err := env.svc.Order.ActivateTicket(env.ctx, env.buyer, &request.ActivateTicketRequest{Code: code})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			if resp.OrderStatus == entity.OrderStatusCompleted {
				completed++
			}
		}(code.Code)
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, 1, completed)

	order := env.order(t, pending.ID)
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	assert.Equal(t, 5, order.ActivatedTickets)
	assert.Equal(t, 5, env.tier(t, tierID).Sold)
}

func TestCash_CheckoutReplayIssuesOnlyMissingCodes(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Door", "20.00", 10)
	pending := env.cashOrder(t, tierID, 2)

	again, err := env.svc.Order.CompleteCashOrder(env.ctx, env.buyer, uuid.MustParse(pending.ID))
	require.NoError(t, err)
	assert.Empty(t, again.ActivationCodes)
	assert.Len(t, again.Tickets, 2)
}

func TestCash_CheckoutAfterDeadlineExpires(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Door", "20.00", 10)

	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(tierID, 1), PaymentMethod: "cash",
	})
	require.NoError(t, err)

	env.clock.Advance(env.cfg.Inventory.CashHoldTTL)
	_, err = env.svc.Order.CompleteCashOrder(env.ctx, env.buyer, uuid.MustParse(created.ID))
	assert.ErrorIs(t, err, ErrOrderExpired)
	assert.Equal(t, entity.OrderStatusPending, env.order(t, created.ID).Status)
}

func TestCash_ActivationAfterDeadlineFails(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Door", "20.00", 10)
	pending := env.cashOrder(t, tierID, 1)

	env.clock.Advance(env.cfg.Inventory.CashHoldTTL + 1)
	_, err := env.svc.Order.ActivateTicket(env.ctx, env.buyer, &request.ActivateTicketRequest{Code: pending.ActivationCodes[0].Code})
	assert.ErrorIs(t, err, ErrOrderExpired)
	assert.Zero(t, env.tier(t, tierID).Sold)
}

func TestCash_PendingActivationTicketCannotBeCancelled(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "Door", "20.00", 10)
	pending := env.cashOrder(t, tierID, 1)

	_, err := env.svc.Order.CancelTicket(env.ctx, env.buyer, uuid.MustParse(pending.ActivationCodes[0].TicketID))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
