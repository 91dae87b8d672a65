package entity

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketStatusPendingActivation TicketStatus = "pending_activation"
	TicketStatusValid             TicketStatus = "valid"
	TicketStatusScanned           TicketStatus = "scanned"
	TicketStatusCancelled         TicketStatus = "cancelled"
)

// CanTransition encodes the ticket lifecycle: forward only, cancel from any unscanned state.
func (s TicketStatus) CanTransition(to TicketStatus) bool {
	switch to {
	case TicketStatusValid:
		return s == TicketStatusPendingActivation
	case TicketStatusScanned:
		return s == TicketStatusValid
	case TicketStatusCancelled:
		return s == TicketStatusPendingActivation || s == TicketStatusValid
	default:
		return false
	}
}

type Ticket struct {
	BaseNoDelete
	OrderID            *uuid.UUID   `db:"order_id"`
	OrderItemID        *uuid.UUID   `db:"order_item_id"`
	TierID             uuid.UUID    `db:"tier_id"`
	EventID            uuid.UUID    `db:"event_id"`
	Code               *string      `db:"code"`
	ActivationCodeHash *string      `db:"activation_code_hash"`
	Status             TicketStatus `db:"status"`
	AttendeeName       *string      `db:"attendee_name"`
	AttendeeEmail      *string      `db:"attendee_email"`
	BundleGroup        *string      `db:"bundle_group"`
	SeatReservationID  *uuid.UUID   `db:"seat_reservation_id"`
	LedgerUnits        int          `db:"ledger_units"`
	ActivatedAt        *time.Time   `db:"activated_at"`
	ScannedAt          *time.Time   `db:"scanned_at"`
	CancelledAt        *time.Time   `db:"cancelled_at"`
}

// TicketID derives a stable ticket id from its order item and seat index so
// re-running materialization never duplicates tickets.
func TicketID(orderItemID uuid.UUID, index int) uuid.UUID {
	return uuid.NewSHA1(orderItemID, []byte{byte(index >> 8), byte(index)})
}
