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
	"go.uber.org/zap"
)

// Allocation is a number of inventory units taken from one tier.
type Allocation struct {
	TierID uuid.UUID
	Count  int
}

// LedgerService is the only writer of a tier's sold counter. Every change is
// a compare-and-set on the tier version.
type LedgerService interface {
	// TryReserve adds count to sold if the tier is still at expectedVersion
	// and has capacity. It returns the new version, ErrConflict for a stale
	// version or ErrSoldOut when capacity is exhausted.
	TryReserve(ctx context.Context, tierID uuid.UUID, count int, expectedVersion int64) (int64, error)

	// TryRelease subtracts count from sold, floored at zero. Version
	// conflicts are retried until the write lands.
	TryRelease(ctx context.Context, tierID uuid.UUID, count int) (int64, error)

	// Reserve re-reads the tier and calls TryReserve until it stops
	// conflicting or the attempt budget is spent.
	Reserve(ctx context.Context, tierID uuid.UUID, count int) (int64, error)

	// ReserveAll reserves every allocation in order. On failure it releases
	// the ones already taken, newest first, and returns the original error.
	ReserveAll(ctx context.Context, allocations []Allocation) error
	ReleaseAll(ctx context.Context, allocations []Allocation)
}

type ledgerService struct {
	tiers  repository.TierRepository
	clock  clock.Clock
	policy retryPolicy
	log    *zap.Logger
}

func NewLedgerService(tiers repository.TierRepository, cfg utils.InventoryConfig, clk clock.Clock, log *zap.Logger) LedgerService {
	return &ledgerService{
		tiers:  tiers,
		clock:  clk,
		policy: newRetryPolicy(cfg),
		log:    log.With(zap.String("service", "ledger")),
	}
}

func (s *ledgerService) load(ctx context.Context, tierID uuid.UUID) (*entity.TicketTier, error) {
	tier, err := s.tiers.FindByID(ctx, tierID)
	if err != nil {
		return nil, fmt.Errorf("load tier %s: %w", tierID, err)
	}
	if tier == nil {
		return nil, notFound("tier")
	}
	return tier, nil
}

func (s *ledgerService) TryReserve(ctx context.Context, tierID uuid.UUID, count int, expectedVersion int64) (int64, error) {
	if count < 1 {
		return 0, validationError("reserve count must be at least 1")
	}

	tier, err := s.load(ctx, tierID)
	if err != nil {
		return 0, err
	}

	version, err := s.tryReserve(ctx, tier, count, expectedVersion)
	s.record("reserve", err)
	return version, err
}

func (s *ledgerService) tryReserve(ctx context.Context, tier *entity.TicketTier, count int, expectedVersion int64) (int64, error) {
	if tier.Version != expectedVersion {
		return 0, ErrConflict
	}
	if tier.Sold+count > tier.Quantity {
		return 0, ErrSoldOut
	}

	var firstSaleAt *time.Time
	if tier.FirstSaleAt == nil {
		now := s.clock.Now()
		firstSaleAt = &now
	}

	err := s.tiers.CompareAndSetSold(ctx, tier.ID, expectedVersion, tier.Sold+count, firstSaleAt)
	if errors.Is(err, repository.ErrVersionConflict) {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("reserve on tier %s: %w", tier.ID, err)
	}

	return expectedVersion + 1, nil
}

func (s *ledgerService) Reserve(ctx context.Context, tierID uuid.UUID, count int) (int64, error) {
	if count < 1 {
		return 0, validationError("reserve count must be at least 1")
	}

	for attempt := 1; ; attempt++ {
		tier, err := s.load(ctx, tierID)
		if err != nil {
			return 0, err
		}

		version, err := s.tryReserve(ctx, tier, count, tier.Version)
		if !errors.Is(err, ErrConflict) {
			metrics.LedgerRetries.Observe(float64(attempt))
			s.record("reserve", err)
			return version, err
		}

		if attempt >= s.policy.attempts {
			s.log.Warn("Reserve gave up after repeated conflicts",
				zap.String("tier_id", tierID.String()),
				zap.Int("attempts", attempt),
			)
			metrics.LedgerRetries.Observe(float64(attempt))
			s.record("reserve", ErrConflict)
			return 0, ErrConflict
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return 0, err
		}
	}
}

func (s *ledgerService) TryRelease(ctx context.Context, tierID uuid.UUID, count int) (int64, error) {
	if count < 1 {
		return 0, validationError("release count must be at least 1")
	}

	for attempt := 1; ; attempt++ {
		tier, err := s.load(ctx, tierID)
		if err != nil {
			return 0, err
		}

		sold := max(tier.Sold-count, 0)
		err = s.tiers.CompareAndSetSold(ctx, tier.ID, tier.Version, sold, nil)
		if err == nil {
			s.record("release", nil)
			return tier.Version + 1, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			s.record("release", err)
			return 0, fmt.Errorf("release on tier %s: %w", tierID, err)
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return 0, err
		}
	}
}

func (s *ledgerService) ReserveAll(ctx context.Context, allocations []Allocation) error {
	for i, a := range allocations {
		if _, err := s.Reserve(ctx, a.TierID, a.Count); err != nil {
			s.ReleaseAll(ctx, allocations[:i])
			return err
		}
	}
	return nil
}

// ReleaseAll releases allocations in reverse order. Failures are logged;
// the caller has already decided to give the units back.
func (s *ledgerService) ReleaseAll(ctx context.Context, allocations []Allocation) {
	for i := len(allocations) - 1; i >= 0; i-- {
		a := allocations[i]
		if _, err := s.TryRelease(ctx, a.TierID, a.Count); err != nil {
			s.log.Error("Failed to release reserved units",
				zap.Error(err),
				zap.String("tier_id", a.TierID.String()),
				zap.Int("count", a.Count),
			)
		}
	}
}

func (s *ledgerService) record(operation string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrSoldOut):
		result = "exhausted"
	case errors.Is(err, ErrConflict):
		result = "conflict"
	default:
		result = "error"
	}
	metrics.LedgerOperations.WithLabelValues(operation, result).Inc()
}
