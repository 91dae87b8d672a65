package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/lease"
	"event-ticketing/pkg/metrics"
	"event-ticketing/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	ScanCashOrders = "cash-orders"
	ScanSeatHolds  = "seat-holds"
	ScanRoomHolds  = "room-holds"

	sweepBatch      = 100
	sweepMaxBatches = 20
)

var Scans = []string{ScanCashOrders, ScanSeatHolds, ScanRoomHolds}

// SweeperService reclaims holds whose deadline passed. Every scan is safe to
// run concurrently with itself and with checkout.
type SweeperService interface {
	SweepCashOrders(ctx context.Context) (int, error)
	SweepSeatHolds(ctx context.Context) (int, error)
	SweepRoomHolds(ctx context.Context) (int, error)

	// Sweep runs one scan by name under the optional distributed lease.
	Sweep(ctx context.Context, scan string) (int, error)

	// Run sweeps once and then on every interval until ctx is done.
	Run(ctx context.Context) error
}

type sweeperService struct {
	*fulfillment
	rooms    RoomService
	locker   *lease.Locker
	interval time.Duration
}

func NewSweeperService(repo *repository.Repository, deps Dependencies, cfg *utils.Config, clk clock.Clock, locker *lease.Locker, log *zap.Logger) SweeperService {
	interval := cfg.Sweeper.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &sweeperService{
		fulfillment: newFulfillment(repo, deps, cfg, clk, log.With(zap.String("service", "sweeper"))),
		rooms:       deps.Rooms,
		locker:      locker,
		interval:    interval,
	}
}

func (s *sweeperService) SweepCashOrders(ctx context.Context) (int, error) {
	released := 0

	for batch := 0; batch < sweepMaxBatches; batch++ {
		orders, err := s.repo.Order.FindExpiredCashOrders(ctx, s.clock.Now(), sweepBatch)
		if err != nil {
			return released, fmt.Errorf("find expired cash orders: %w", err)
		}

		progressed := 0
		for _, o := range orders {
			ok, err := s.expireCashOrder(ctx, o.ID)
			if err != nil {
				s.log.Error("Failed to expire cash order", zap.Error(err), zap.String("order_id", o.ID.String()))
				continue
			}
			if ok {
				progressed++
			}
		}
		released += progressed

		if len(orders) < sweepBatch || progressed == 0 {
			break
		}
	}

	// Tickets left live by a pass that stopped between the order and its tickets
	orphans, err := s.repo.Ticket.FindLiveByCancelledOrders(ctx, sweepBatch)
	if err != nil {
		return released, fmt.Errorf("find tickets of cancelled orders: %w", err)
	}
	for _, t := range orphans {
		if _, err := s.cancelTicket(ctx, t); err != nil {
			s.log.Error("Failed to cancel orphaned ticket", zap.Error(err), zap.String("ticket_id", t.ID.String()))
		}
	}
	if len(orphans) > 0 {
		s.log.Warn("Repaired tickets of cancelled orders", zap.Int("tickets", len(orphans)))
	}

	return released, nil
}

func (s *sweeperService) SweepSeatHolds(ctx context.Context) (int, error) {
	released := 0

	for batch := 0; batch < sweepMaxBatches; batch++ {
		holds, err := s.repo.Seat.FindExpiredHolds(ctx, s.clock.Now(), sweepBatch)
		if err != nil {
			return released, fmt.Errorf("find expired seat holds: %w", err)
		}

		progressed := 0
		for _, h := range holds {
			ok, err := s.seats.ReleaseExpired(ctx, h)
			if err != nil {
				s.log.Error("Failed to release seat hold", zap.Error(err), zap.String("reservation_id", h.ID.String()))
				continue
			}
			if ok {
				progressed++
			}
		}
		released += progressed

		if len(holds) < sweepBatch || progressed == 0 {
			break
		}
	}

	return released, nil
}

func (s *sweeperService) SweepRoomHolds(ctx context.Context) (int, error) {
	released := 0

	for batch := 0; batch < sweepMaxBatches; batch++ {
		holds, err := s.repo.Room.FindExpiredHolds(ctx, s.clock.Now(), sweepBatch)
		if err != nil {
			return released, fmt.Errorf("find expired room holds: %w", err)
		}

		progressed := 0
		for _, h := range holds {
			ok, err := s.rooms.Release(ctx, h)
			if err != nil {
				s.log.Error("Failed to release room hold", zap.Error(err), zap.String("hold_id", h.ID.String()))
				continue
			}
			if ok {
				progressed++
			}
		}
		released += progressed

		if len(holds) < sweepBatch || progressed == 0 {
			break
		}
	}

	return released, nil
}

func (s *sweeperService) Sweep(ctx context.Context, scan string) (int, error) {
	var run func(context.Context) (int, error)
	switch scan {
	case ScanCashOrders:
		run = s.SweepCashOrders
	case ScanSeatHolds:
		run = s.SweepSeatHolds
	case ScanRoomHolds:
		run = s.SweepRoomHolds
	default:
		return 0, notFound(fmt.Sprintf("sweep scan %q", scan))
	}

	if s.locker != nil {
		l, err := s.locker.Acquire(ctx, scan, s.interval)
		if errors.Is(err, lease.ErrNotAcquired) {
			s.log.Debug("Sweep skipped, another instance holds the lease", zap.String("scan", scan))
			return 0, nil
		}
		if err != nil {
			// the scans are safe without the lease
			s.log.Warn("Sweep lease unavailable", zap.Error(err), zap.String("scan", scan))
		}
		defer func() {
			if err := l.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("Failed to release sweep lease", zap.Error(err), zap.String("scan", scan))
			}
		}()
	}

	start := time.Now()
	released, err := run(ctx)
	metrics.SweepDuration.WithLabelValues(scan).Observe(time.Since(start).Seconds())
	metrics.SweepReleased.WithLabelValues(scan).Add(float64(released))

	if released > 0 {
		s.log.Info("Sweep finished", zap.String("scan", scan), zap.Int("released", released))
	}
	return released, err
}

func (s *sweeperService) Run(ctx context.Context) error {
	s.log.Info("Sweeper started", zap.Duration("interval", s.interval))

	s.sweepAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweepAll(ctx)
		}
	}
}

func (s *sweeperService) sweepAll(ctx context.Context) {
	var g errgroup.Group
	for _, scan := range Scans {
		g.Go(func() error {
			if _, err := s.Sweep(ctx, scan); err != nil {
				return fmt.Errorf("%s: %w", scan, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if err := s.repo.Session.CleanExpiredSessions(ctx); err != nil {
			return fmt.Errorf("sessions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Error("Sweep pass failed", zap.Error(err))
	}
}
