package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/response"
	"event-ticketing/pkg/clock"
	"event-ticketing/pkg/metrics"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationService owns seat holds. A coordinate has at most one RESERVED
// record; the chart counter is always re-derived from those records.
type ReservationService interface {
	// HoldSeats reserves every seat for orderID or none of them. ttl <= 0
	// places permanent holds.
	HoldSeats(ctx context.Context, chartID uuid.UUID, seats []entity.SeatCoordinate, orderID uuid.UUID, ttl time.Duration) ([]*entity.SeatReservation, error)
	ReleaseByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
	ReleaseByTicket(ctx context.Context, ticket *entity.Ticket) (int, error)
	// ReleaseExpired releases the given hold only if it is still RESERVED and
	// past its deadline at the time of the write.
	ReleaseExpired(ctx context.Context, reservation *entity.SeatReservation) (bool, error)
	ConfirmSeats(ctx context.Context, orderID uuid.UUID, ticketByReservation map[uuid.UUID]uuid.UUID) error
	ExtendHolds(ctx context.Context, orderID uuid.UUID, expiresAt time.Time) error
	SyncChartCounter(ctx context.Context, chartID uuid.UUID) error
	Availability(ctx context.Context, chartID uuid.UUID) (*response.ChartResponse, error)
}

type reservationService struct {
	charts repository.SeatingChartRepository
	seats  repository.SeatReservationRepository
	clock  clock.Clock
	policy retryPolicy
	log    *zap.Logger
}

func NewReservationService(repo *repository.Repository, cfg utils.InventoryConfig, clk clock.Clock, log *zap.Logger) ReservationService {
	return &reservationService{
		charts: repo.Chart,
		seats:  repo.Seat,
		clock:  clk,
		policy: newRetryPolicy(cfg),
		log:    log.With(zap.String("service", "reservation")),
	}
}

func (s *reservationService) HoldSeats(ctx context.Context, chartID uuid.UUID, seats []entity.SeatCoordinate, orderID uuid.UUID, ttl time.Duration) ([]*entity.SeatReservation, error) {
	if len(seats) == 0 {
		return nil, nil
	}

	seen := make(map[entity.SeatCoordinate]struct{}, len(seats))
	for _, seat := range seats {
		if seat.Section == "" || seat.Seat == "" {
			return nil, validationError("seat %q needs a section and a seat", seat.String())
		}
		if _, dup := seen[seat]; dup {
			return nil, validationError("seat %s requested twice", seat)
		}
		seen[seat] = struct{}{}
	}

	chart, err := s.charts.FindByID(ctx, chartID)
	if err != nil {
		return nil, fmt.Errorf("load chart %s: %w", chartID, err)
	}
	if chart == nil {
		return nil, notFound("seating chart")
	}

	now := s.clock.Now()
	var expiresAt *time.Time
	if ttl > 0 {
		at := now.Add(ttl)
		expiresAt = &at
	}

	held := make([]*entity.SeatReservation, 0, len(seats))
	for _, seat := range seats {
		reservation := &entity.SeatReservation{
			BaseSimple: entity.BaseSimple{
				ID:        uuid.New(),
				CreatedAt: now,
			},
			ChartID:    chart.ID,
			EventID:    chart.EventID,
			Coordinate: seat,
			OrderID:    orderID,
			Status:     entity.SeatStatusReserved,
			ReservedAt: now,
			ExpiresAt:  expiresAt,
		}

		err := s.seats.Insert(ctx, reservation)
		if err == nil {
			held = append(held, reservation)
			continue
		}

		s.rollback(ctx, held)
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.SeatHolds.WithLabelValues("hold", "conflict").Inc()
			s.log.Info("Seat already taken",
				zap.String("chart_id", chartID.String()),
				zap.String("seat", seat.String()),
				zap.String("order_id", orderID.String()),
			)
			return nil, &SeatConflictError{Seat: seat}
		}
		metrics.SeatHolds.WithLabelValues("hold", "error").Inc()
		return nil, fmt.Errorf("hold seat %s: %w", seat, err)
	}

	metrics.SeatHolds.WithLabelValues("hold", "ok").Add(float64(len(held)))
	if err := s.SyncChartCounter(ctx, chart.ID); err != nil {
		s.log.Warn("Chart counter not refreshed", zap.Error(err), zap.String("chart_id", chart.ID.String()))
	}

	return held, nil
}

// rollback releases the records written by a failed HoldSeats call.
func (s *reservationService) rollback(ctx context.Context, held []*entity.SeatReservation) {
	if len(held) == 0 {
		return
	}
	now := s.clock.Now()
	for i := len(held) - 1; i >= 0; i-- {
		if _, err := s.seats.MarkReleased(ctx, held[i].ID, now); err != nil {
			s.log.Error("Failed to roll back seat hold",
				zap.Error(err),
				zap.String("reservation_id", held[i].ID.String()),
			)
		}
	}
	if err := s.SyncChartCounter(ctx, held[0].ChartID); err != nil {
		s.log.Warn("Chart counter not refreshed", zap.Error(err))
	}
}

func (s *reservationService) ReleaseByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	reservations, err := s.seats.FindByOrderID(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("find seats of order %s: %w", orderID, err)
	}
	return s.release(ctx, reservations)
}

func (s *reservationService) ReleaseByTicket(ctx context.Context, ticket *entity.Ticket) (int, error) {
	reservations, err := s.seats.FindByTicketID(ctx, ticket.ID)
	if err != nil {
		return 0, fmt.Errorf("find seats of ticket %s: %w", ticket.ID, err)
	}

	if ticket.SeatReservationID != nil {
		linked := false
		for _, r := range reservations {
			if r.ID == *ticket.SeatReservationID {
				linked = true
				break
			}
		}
		if !linked {
			r, err := s.seats.FindByID(ctx, *ticket.SeatReservationID)
			if err != nil {
				return 0, fmt.Errorf("find seat %s: %w", *ticket.SeatReservationID, err)
			}
			if r != nil {
				reservations = append(reservations, r)
			}
		}
	}

	return s.release(ctx, reservations)
}

func (s *reservationService) ReleaseExpired(ctx context.Context, reservation *entity.SeatReservation) (bool, error) {
	ok, err := s.seats.ReleaseExpiredHold(ctx, reservation.ID, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("release seat %s: %w", reservation.Coordinate, err)
	}
	if !ok {
		return false, nil
	}

	metrics.SeatHolds.WithLabelValues("expire", "ok").Inc()
	if err := s.SyncChartCounter(ctx, reservation.ChartID); err != nil {
		s.log.Warn("Chart counter not refreshed", zap.Error(err), zap.String("chart_id", reservation.ChartID.String()))
	}
	return true, nil
}

// release is idempotent: records that are already RELEASED are skipped.
func (s *reservationService) release(ctx context.Context, reservations []*entity.SeatReservation) (int, error) {
	now := s.clock.Now()
	released := 0
	charts := make(map[uuid.UUID]struct{})

	for _, r := range reservations {
		if r.Status != entity.SeatStatusReserved {
			continue
		}
		ok, err := s.seats.MarkReleased(ctx, r.ID, now)
		if err != nil {
			return released, fmt.Errorf("release seat %s: %w", r.Coordinate, err)
		}
		if ok {
			released++
			charts[r.ChartID] = struct{}{}
		}
	}

	for chartID := range charts {
		if err := s.SyncChartCounter(ctx, chartID); err != nil {
			s.log.Warn("Chart counter not refreshed", zap.Error(err), zap.String("chart_id", chartID.String()))
		}
	}

	if released > 0 {
		metrics.SeatHolds.WithLabelValues("release", "ok").Add(float64(released))
	}
	return released, nil
}

func (s *reservationService) ConfirmSeats(ctx context.Context, orderID uuid.UUID, ticketByReservation map[uuid.UUID]uuid.UUID) error {
	reservations, err := s.seats.FindByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("find seats of order %s: %w", orderID, err)
	}

	for _, r := range reservations {
		if r.Status != entity.SeatStatusReserved {
			continue
		}
		var ticketID *uuid.UUID
		if id, ok := ticketByReservation[r.ID]; ok {
			ticketID = &id
		}
		if err := s.seats.Confirm(ctx, r.ID, ticketID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("confirm seat %s: %w", r.Coordinate, err)
		}
	}

	return nil
}

func (s *reservationService) ExtendHolds(ctx context.Context, orderID uuid.UUID, expiresAt time.Time) error {
	return s.seats.ExtendByOrder(ctx, orderID, expiresAt)
}

// SyncChartCounter writes COUNT(RESERVED) into the chart guarded by the chart
// version. A lost race only means someone else wrote a fresher count.
func (s *reservationService) SyncChartCounter(ctx context.Context, chartID uuid.UUID) error {
	for attempt := 1; ; attempt++ {
		chart, err := s.charts.FindByID(ctx, chartID)
		if err != nil {
			return fmt.Errorf("load chart %s: %w", chartID, err)
		}
		if chart == nil {
			return notFound("seating chart")
		}

		count, err := s.seats.CountReserved(ctx, chartID)
		if err != nil {
			return fmt.Errorf("count reserved seats: %w", err)
		}
		if count == chart.ReservedSeats {
			return nil
		}

		err = s.charts.CompareAndSetReserved(ctx, chartID, chart.Version, count)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("write chart counter: %w", err)
		}
		if attempt >= s.policy.attempts {
			return ErrConflict
		}
		if err := s.policy.wait(ctx, attempt); err != nil {
			return err
		}
	}
}

func (s *reservationService) Availability(ctx context.Context, chartID uuid.UUID) (*response.ChartResponse, error) {
	chart, err := s.charts.FindByID(ctx, chartID)
	if err != nil {
		return nil, fmt.Errorf("load chart %s: %w", chartID, err)
	}
	if chart == nil {
		return nil, notFound("seating chart")
	}

	reserved, err := s.seats.FindReservedByChart(ctx, chartID)
	if err != nil {
		return nil, fmt.Errorf("list reserved seats: %w", err)
	}

	resp := &response.ChartResponse{
		ID:            chart.ID.String(),
		EventID:       chart.EventID.String(),
		Name:          chart.Name,
		TotalSeats:    chart.TotalSeats,
		ReservedSeats: len(reserved),
	}
	for _, r := range reserved {
		resp.Reserved = append(resp.Reserved, r.Coordinate)
	}

	return resp, nil
}
