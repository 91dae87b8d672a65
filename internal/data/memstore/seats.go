package memstore

import (
	"context"
	"sort"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"

	"github.com/google/uuid"
)

type chartStore struct{ *store }

func (s *chartStore) Create(_ context.Context, chart *entity.SeatingChart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.charts[chart.ID]; ok {
		return repository.ErrDuplicate
	}
	s.charts[chart.ID] = *chart
	return nil
}

func (s *chartStore) FindByID(_ context.Context, id uuid.UUID) (*entity.SeatingChart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chart, ok := s.charts[id]
	if !ok {
		return nil, nil
	}
	return &chart, nil
}

func (s *chartStore) CompareAndSetReserved(_ context.Context, id uuid.UUID, expectedVersion int64, reserved int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chart, ok := s.charts[id]
	if !ok || chart.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	chart.ReservedSeats = max(reserved, 0)
	chart.Version++
	chart.UpdatedAt = s.clock.Now()
	s.charts[id] = chart
	return nil
}

type seatStore struct{ *store }

func (s *seatStore) Insert(_ context.Context, r *entity.SeatReservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seats[r.ID]; ok {
		return repository.ErrDuplicate
	}
	key := seatKey{chart: r.ChartID, coord: r.Coordinate}
	if r.Status == entity.SeatStatusReserved {
		if _, taken := s.active[key]; taken {
			return repository.ErrDuplicate
		}
		s.active[key] = r.ID
	}
	s.seats[r.ID] = *r
	return nil
}

func (s *seatStore) FindByID(_ context.Context, id uuid.UUID) (*entity.SeatReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seat, ok := s.seats[id]
	if !ok {
		return nil, nil
	}
	return &seat, nil
}

func (s *seatStore) filter(match func(entity.SeatReservation) bool) []*entity.SeatReservation {
	var seats []*entity.SeatReservation
	for _, r := range s.seats {
		if match(r) {
			seat := r
			seats = append(seats, &seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool {
		if !seats[i].ReservedAt.Equal(seats[j].ReservedAt) {
			return seats[i].ReservedAt.Before(seats[j].ReservedAt)
		}
		return seats[i].Coordinate.String() < seats[j].Coordinate.String()
	})
	return seats
}

func (s *seatStore) FindByOrderID(_ context.Context, orderID uuid.UUID) ([]*entity.SeatReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r entity.SeatReservation) bool { return r.OrderID == orderID }), nil
}

func (s *seatStore) FindByTicketID(_ context.Context, ticketID uuid.UUID) ([]*entity.SeatReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r entity.SeatReservation) bool {
		return r.TicketID != nil && *r.TicketID == ticketID
	}), nil
}

func (s *seatStore) FindReservedByChart(_ context.Context, chartID uuid.UUID) ([]*entity.SeatReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r entity.SeatReservation) bool {
		return r.ChartID == chartID && r.Status == entity.SeatStatusReserved
	}), nil
}

func (s *seatStore) MarkReleased(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.seats[id]
	if !ok || r.Status != entity.SeatStatusReserved {
		return false, nil
	}
	r.Status = entity.SeatStatusReleased
	r.ReleasedAt = &at
	s.seats[id] = r
	delete(s.active, seatKey{chart: r.ChartID, coord: r.Coordinate})
	return true, nil
}

func (s *seatStore) ReleaseExpiredHold(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.seats[id]
	if !ok || !r.IsHoldExpired(now) {
		return false, nil
	}
	r.Status = entity.SeatStatusReleased
	r.ReleasedAt = &now
	s.seats[id] = r
	delete(s.active, seatKey{chart: r.ChartID, coord: r.Coordinate})
	return true, nil
}

func (s *seatStore) Confirm(_ context.Context, id uuid.UUID, ticketID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.seats[id]
	if !ok || r.Status != entity.SeatStatusReserved {
		return repository.ErrNotFound
	}
	if ticketID != nil {
		tid := *ticketID
		r.TicketID = &tid
	}
	r.ExpiresAt = nil
	s.seats[id] = r
	return nil
}

func (s *seatStore) ExtendByOrder(_ context.Context, orderID uuid.UUID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.seats {
		if r.OrderID == orderID && r.Status == entity.SeatStatusReserved && r.ExpiresAt != nil {
			at := expiresAt
			r.ExpiresAt = &at
			s.seats[id] = r
		}
	}
	return nil
}

func (s *seatStore) FindExpiredHolds(_ context.Context, now time.Time, limit int) ([]*entity.SeatReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seats := s.filter(func(r entity.SeatReservation) bool { return r.IsHoldExpired(now) })
	return paginate(seats, limit, 0), nil
}

func (s *seatStore) CountReserved(_ context.Context, chartID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, r := range s.seats {
		if r.ChartID == chartID && r.Status == entity.SeatStatusReserved {
			count++
		}
	}
	return count, nil
}
