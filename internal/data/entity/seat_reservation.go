package entity

import (
	"time"

	"github.com/google/uuid"
)

type SeatReservationStatus string

const (
	SeatStatusReserved SeatReservationStatus = "reserved"
	SeatStatusReleased SeatReservationStatus = "released"
)

type SeatingChart struct {
	BaseNoDelete
	EventID       uuid.UUID `db:"event_id"`
	Name          string    `db:"name"`
	TotalSeats    int       `db:"total_seats"`
	ReservedSeats int       `db:"reserved_seats"`
	Version       int64     `db:"version"`
}

type SeatReservation struct {
	BaseSimple
	ChartID    uuid.UUID             `db:"chart_id"`
	EventID    uuid.UUID             `db:"event_id"`
	Coordinate SeatCoordinate        `db:"-"`
	OrderID    uuid.UUID             `db:"order_id"`
	TicketID   *uuid.UUID            `db:"ticket_id"`
	Status     SeatReservationStatus `db:"status"`
	ReservedAt time.Time             `db:"reserved_at"`
	ReleasedAt *time.Time            `db:"released_at"`
	ExpiresAt  *time.Time            `db:"expires_at"` // nil once permanent
}

// IsHoldExpired reports whether a temporary hold has passed its deadline.
func (r *SeatReservation) IsHoldExpired(now time.Time) bool {
	return r.Status == SeatStatusReserved && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}
