package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/metrics"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Dependencies are the inventory services the order engine and the sweeper
// drive. Each one owns its counters; the engine only sequences them.
type Dependencies struct {
	Ledger     LedgerService
	Seats      ReservationService
	Promotions PromotionService
	Bundles    BundleService
	Rooms      RoomService
	Notifier   Notifier
}

const activationCodeLength = 6

var percentBase = decimal.NewFromInt(100)

// fulfillment holds the order steps shared by checkout and expiry.
type fulfillment struct {
	repo     *repository.Repository
	ledger   LedgerService
	seats    ReservationService
	promos   PromotionService
	bundles  BundleService
	notifier Notifier
	clock    clock.Clock
	policy   retryPolicy
	seatTTL  time.Duration
	cashTTL  time.Duration
	fees     utils.FeeConfig
	log      *zap.Logger
}

func newFulfillment(repo *repository.Repository, deps Dependencies, cfg *utils.Config, clk clock.Clock, log *zap.Logger) *fulfillment {
	return &fulfillment{
		repo:     repo,
		ledger:   deps.Ledger,
		seats:    deps.Seats,
		promos:   deps.Promotions,
		bundles:  deps.Bundles,
		notifier: deps.Notifier,
		clock:    clk,
		policy:   newRetryPolicy(cfg.Inventory),
		seatTTL:  cfg.Inventory.SeatHoldTTL,
		cashTTL:  cfg.Inventory.CashHoldTTL,
		fees:     cfg.Fees,
		log:      log,
	}
}

func (f *fulfillment) loadOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error) {
	order, err := f.repo.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, notFound("order")
	}
	return order, nil
}

// transition re-reads the order and applies mutate until the versioned write
// lands. mutate sees a fresh copy on every attempt and may abort with an error.
func (f *fulfillment) transition(ctx context.Context, orderID uuid.UUID, attempts int, mutate func(*entity.Order) error) (*entity.Order, error) {
	for attempt := 1; ; attempt++ {
		order, err := f.loadOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		expected := order.Version
		from := order.Status

		if err := mutate(order); err != nil {
			return nil, err
		}
		if from != order.Status && !from.CanTransition(order.Status) {
			return nil, fmt.Errorf("%w: order %s cannot go from %s to %s", ErrInvalidTransition, order.OrderNumber, from, order.Status)
		}

		err = f.repo.Order.CompareAndSwap(ctx, order, expected)
		if err == nil {
			if from != order.Status {
				metrics.OrderTransitions.WithLabelValues(string(order.Status)).Inc()
				f.log.Info("Order transitioned",
					zap.String("order_id", order.ID.String()),
					zap.String("from", string(from)),
					zap.String("to", string(order.Status)),
				)
			}
			return order, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("update order %s: %w", orderID, err)
		}
		if attempt >= attempts {
			return nil, ErrConflict
		}
		if err := f.policy.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

// price fills the fee breakdown and total from subtotal, discount and the
// payment method. A zero total is always a free checkout.
func (f *fulfillment) price(order *entity.Order) {
	discounted := order.Subtotal.Sub(order.DiscountAmount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}

	platform := decimal.Zero
	if discounted.IsPositive() {
		fixed := f.fees.PlatformFixed.Mul(decimal.NewFromInt(int64(order.TicketCount)))
		platform = discounted.Mul(f.fees.PlatformPercent).Div(percentBase).Add(fixed).Round(2)
	}

	processing := decimal.Zero
	if order.PaymentMethod == entity.PaymentMethodCard || order.PaymentMethod == entity.PaymentMethodPayPal {
		processing = discounted.Add(platform).Mul(f.fees.ProcessingPercent).Div(percentBase).Round(2)
	}

	order.PlatformFee = platform
	order.ProcessingFee = processing
	order.Total = discounted.Add(platform).Add(processing).Round(2)
	if order.Total.IsZero() {
		order.PaymentMethod = entity.PaymentMethodFree
	}
}

// allocations groups order items per tier in the order they were bought.
// One item is one inventory unit regardless of how many tickets it yields.
func allocations(items []*entity.OrderItem) []Allocation {
	index := make(map[uuid.UUID]int)
	var result []Allocation
	for _, item := range items {
		i, ok := index[item.TierID]
		if !ok {
			i = len(result)
			index[item.TierID] = i
			result = append(result, Allocation{TierID: item.TierID})
		}
		result[i].Count++
	}
	return result
}

// reserveInventory takes the bundle counter (for bundle orders) and then every
// tier through the ledger saga. On failure nothing stays reserved.
func (f *fulfillment) reserveInventory(ctx context.Context, order *entity.Order, allocs []Allocation) error {
	if order.BundleID != nil {
		if err := f.bundles.Reserve(ctx, *order.BundleID, order.BundleQuantity); err != nil {
			return err
		}
	}
	if err := f.ledger.ReserveAll(ctx, allocs); err != nil {
		f.releaseBundle(ctx, order)
		return err
	}
	return nil
}

func (f *fulfillment) releaseInventory(ctx context.Context, order *entity.Order, allocs []Allocation) {
	f.ledger.ReleaseAll(ctx, allocs)
	f.releaseBundle(ctx, order)
}

func (f *fulfillment) releaseBundle(ctx context.Context, order *entity.Order) {
	if order.BundleID == nil {
		return
	}
	if err := f.bundles.Release(ctx, *order.BundleID, order.BundleQuantity); err != nil {
		f.log.Error("Failed to release bundle counter",
			zap.Error(err),
			zap.String("bundle_id", order.BundleID.String()),
			zap.String("order_id", order.ID.String()),
		)
	}
}

// ensureSeatHolds keeps the order's seats held while checkout proceeds. Holds
// the sweeper already reclaimed are placed again; a seat someone else took
// fails with SeatConflictError.
func (f *fulfillment) ensureSeatHolds(ctx context.Context, order *entity.Order, until time.Time) error {
	if order.ChartID == nil || len(order.Seats) == 0 {
		return nil
	}

	if err := f.seats.ExtendHolds(ctx, order.ID, until); err != nil {
		return fmt.Errorf("extend seat holds: %w", err)
	}

	reservations, err := f.repo.Seat.FindByOrderID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("find seats of order: %w", err)
	}
	held := make(map[entity.SeatCoordinate]struct{}, len(reservations))
	for _, r := range reservations {
		if r.Status == entity.SeatStatusReserved {
			held[r.Coordinate] = struct{}{}
		}
	}

	var missing []entity.SeatCoordinate
	for _, seat := range order.Seats {
		if _, ok := held[seat]; !ok {
			missing = append(missing, seat)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	f.log.Info("Re-holding released seats",
		zap.String("order_id", order.ID.String()),
		zap.Int("seats", len(missing)),
	)
	ttl := until.Sub(f.clock.Now())
	if ttl <= 0 {
		ttl = f.seatTTL
	}
	_, err = f.seats.HoldSeats(ctx, *order.ChartID, missing, order.ID, ttl)
	return err
}

// materialize creates the order's tickets. Ticket ids derive from the order
// item, so a second run only fills in tickets that are missing. For
// PENDING_ACTIVATION tickets it returns the plaintext activation codes of the
// tickets it created.
func (f *fulfillment) materialize(ctx context.Context, order *entity.Order, items []*entity.OrderItem, status entity.TicketStatus) ([]*entity.Ticket, map[uuid.UUID]string, error) {
	existing, err := f.repo.Ticket.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("find tickets of order: %w", err)
	}
	have := make(map[uuid.UUID]struct{}, len(existing))
	for _, t := range existing {
		have[t.ID] = struct{}{}
	}

	seatByCoordinate, err := f.seatRecords(ctx, order)
	if err != nil {
		return nil, nil, err
	}

	tiers := make(map[uuid.UUID]*entity.TicketTier)
	now := f.clock.Now()
	var fresh []*entity.Ticket
	position := 0

	for _, item := range items {
		tier, ok := tiers[item.TierID]
		if !ok {
			if tier, err = f.repo.Tier.FindByID(ctx, item.TierID); err != nil {
				return nil, nil, fmt.Errorf("find tier: %w", err)
			}
			if tier == nil {
				return nil, nil, notFound("tier")
			}
			tiers[item.TierID] = tier
		}

		for k := 0; k < tier.TicketsPerUnit(); k++ {
			id := entity.TicketID(item.ID, k)
			seatIndex := position
			position++
			if _, ok := have[id]; ok {
				continue
			}

			orderID, itemID := order.ID, item.ID
			ticket := &entity.Ticket{
				BaseNoDelete: entity.BaseNoDelete{
					ID:        id,
					CreatedAt: now,
					UpdatedAt: now,
				},
				OrderID:     &orderID,
				OrderItemID: &itemID,
				TierID:      item.TierID,
				EventID:     tier.EventID,
				Status:      status,
				BundleGroup: item.BundleGroup,
			}
			if k == 0 {
				ticket.LedgerUnits = 1
			}
			if seatIndex < len(order.Seats) {
				if r, ok := seatByCoordinate[order.Seats[seatIndex]]; ok {
					rid := r.ID
					ticket.SeatReservationID = &rid
				}
			}
			fresh = append(fresh, ticket)
		}
	}

	codes, err := f.insertTickets(ctx, fresh, status)
	if err != nil {
		return nil, nil, err
	}

	tickets, err := f.repo.Ticket.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload tickets: %w", err)
	}
	return tickets, codes, nil
}

// insertTickets assigns codes and writes the batch. A duplicate scannable
// code is retried with fresh codes.
func (f *fulfillment) insertTickets(ctx context.Context, tickets []*entity.Ticket, status entity.TicketStatus) (map[uuid.UUID]string, error) {
	if len(tickets) == 0 {
		return nil, nil
	}

	const codeAttempts = 3
	for attempt := 1; ; attempt++ {
		codes := make(map[uuid.UUID]string)
		used := make(map[string]struct{})

		for _, t := range tickets {
			if status == entity.TicketStatusValid {
				code := utils.GenerateTicketCode()
				t.Code = &code
				continue
			}

			code := utils.GenerateActivationCode(activationCodeLength)
			for {
				if _, dup := used[code]; !dup {
					break
				}
				code = utils.GenerateActivationCode(activationCodeLength)
			}
			used[code] = struct{}{}

			hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash activation code: %w", err)
			}
			hashed := string(hash)
			t.ActivationCodeHash = &hashed
			codes[t.ID] = code
		}

		err := f.repo.Ticket.CreateBatch(ctx, tickets)
		if err == nil {
			return codes, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt >= codeAttempts {
			return nil, fmt.Errorf("create tickets: %w", err)
		}
	}
}

func (f *fulfillment) seatRecords(ctx context.Context, order *entity.Order) (map[entity.SeatCoordinate]*entity.SeatReservation, error) {
	result := make(map[entity.SeatCoordinate]*entity.SeatReservation)
	if len(order.Seats) == 0 {
		return result, nil
	}
	reservations, err := f.repo.Seat.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("find seats of order: %w", err)
	}
	for _, r := range reservations {
		if r.Status == entity.SeatStatusReserved {
			result[r.Coordinate] = r
		}
	}
	return result, nil
}

func (f *fulfillment) confirmSeats(ctx context.Context, order *entity.Order, tickets []*entity.Ticket) {
	if len(order.Seats) == 0 {
		return
	}
	ticketBySeat := make(map[uuid.UUID]uuid.UUID)
	for _, t := range tickets {
		if t.SeatReservationID != nil {
			ticketBySeat[*t.SeatReservationID] = t.ID
		}
	}
	if err := f.seats.ConfirmSeats(ctx, order.ID, ticketBySeat); err != nil {
		f.log.Error("Failed to confirm seats", zap.Error(err), zap.String("order_id", order.ID.String()))
	}
}

// settle runs the once-per-order side effects of a completed order.
func (f *fulfillment) settle(ctx context.Context, order *entity.Order, tickets []*entity.Ticket) {
	if order.ReferralCodeID != nil {
		amount := order.Subtotal.Sub(order.DiscountAmount)
		if err := f.promos.RecordReferralSale(ctx, *order.ReferralCodeID, order.TicketCount, amount); err != nil {
			f.log.Error("Failed to record referral sale",
				zap.Error(err),
				zap.String("order_id", order.ID.String()),
			)
		}
	}

	if err := f.notifier.OrderCompleted(ctx, order, tickets); err != nil {
		f.log.Warn("Order confirmation not sent", zap.Error(err), zap.String("order_id", order.ID.String()))
	}

	if order.BundleID == nil {
		return
	}
	bundle, err := f.repo.Bundle.FindByID(ctx, *order.BundleID)
	if err != nil || bundle == nil {
		f.log.Warn("Bundle confirmation skipped", zap.Error(err), zap.String("order_id", order.ID.String()))
		return
	}
	if err := f.notifier.BundlePurchased(ctx, order, bundle); err != nil {
		f.log.Warn("Bundle confirmation not sent", zap.Error(err), zap.String("order_id", order.ID.String()))
	}
}

// cancelTicket moves a live ticket to CANCELLED and gives back its seat and,
// when the ticket was VALID, its ledger units. It reports false when the
// ticket was not live or another writer changed it first.
func (f *fulfillment) cancelTicket(ctx context.Context, ticket *entity.Ticket) (bool, error) {
	from := ticket.Status
	if !from.CanTransition(entity.TicketStatusCancelled) {
		return false, nil
	}

	now := f.clock.Now()
	ticket.Status = entity.TicketStatusCancelled
	ticket.CancelledAt = &now

	err := f.repo.Ticket.CompareAndSetStatus(ctx, ticket, from)
	if errors.Is(err, repository.ErrVersionConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cancel ticket %s: %w", ticket.ID, err)
	}

	if _, err := f.seats.ReleaseByTicket(ctx, ticket); err != nil {
		f.log.Error("Failed to release ticket seat", zap.Error(err), zap.String("ticket_id", ticket.ID.String()))
	}
	if from == entity.TicketStatusValid && ticket.LedgerUnits > 0 {
		if _, err := f.ledger.TryRelease(ctx, ticket.TierID, ticket.LedgerUnits); err != nil {
			return true, fmt.Errorf("release units of ticket %s: %w", ticket.ID, err)
		}
	}
	return true, nil
}

var errNotExpired = errors.New("order not expired")

// expireCashOrder cancels a PENDING_PAYMENT order whose deadline passed and
// reclaims everything it held. It reports false if the order was no longer
// eligible.
func (f *fulfillment) expireCashOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	now := f.clock.Now()
	order, err := f.transition(ctx, orderID, f.policy.attempts, func(o *entity.Order) error {
		if o.Status != entity.OrderStatusPendingPayment || o.HoldExpiresAt == nil || o.HoldExpiresAt.After(now) {
			return errNotExpired
		}
		o.Status = entity.OrderStatusCancelled
		o.CancelledAt = &now
		return nil
	})
	if errors.Is(err, errNotExpired) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	tickets, err := f.repo.Ticket.FindByOrderID(ctx, order.ID)
	if err != nil {
		return true, fmt.Errorf("find tickets of expired order: %w", err)
	}
	for _, t := range tickets {
		if _, err := f.cancelTicket(ctx, t); err != nil {
			f.log.Error("Failed to cancel ticket of expired order", zap.Error(err), zap.String("ticket_id", t.ID.String()))
		}
	}

	if _, err := f.seats.ReleaseByOrder(ctx, order.ID); err != nil {
		f.log.Error("Failed to release seats of expired order", zap.Error(err), zap.String("order_id", order.ID.String()))
	}
	f.restoreDiscount(ctx, order)
	f.releaseBundle(ctx, order)

	f.log.Info("Cash order expired",
		zap.String("order_id", order.ID.String()),
		zap.Int("activated_tickets", order.ActivatedTickets),
		zap.Int("ticket_count", order.TicketCount),
	)
	return true, nil
}

func (f *fulfillment) restoreDiscount(ctx context.Context, order *entity.Order) {
	if order.DiscountCodeID == nil {
		return
	}
	if err := f.promos.RestoreDiscount(ctx, *order.DiscountCodeID); err != nil {
		f.log.Error("Failed to restore discount use",
			zap.Error(err),
			zap.String("discount_code_id", order.DiscountCodeID.String()),
		)
	}
}
