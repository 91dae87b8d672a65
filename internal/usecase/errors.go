package usecase

import (
	"errors"
	"fmt"

	"event-ticketing/internal/data/entity"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrSaleWindowClosed = errors.New("sale window closed")

	// ErrConflict means a compare-and-set kept losing to concurrent writers
	// until the retry budget ran out. Retrying later may succeed.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrSoldOut means a tier has no capacity left for the request. Retrying
	// cannot help.
	ErrSoldOut       = errors.New("sold out during checkout")
	ErrBundleSoldOut = errors.New("bundle sold out")

	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrOrderExpired        = errors.New("order expired")
	ErrTicketScanned       = errors.New("ticket already scanned")
	ErrNotFound            = errors.New("not found")
	ErrDiscountUnavailable = errors.New("discount code unavailable")
)

// SeatConflictError reports the first requested seat that already had an
// active reservation.
type SeatConflictError struct {
	Seat entity.SeatCoordinate
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seat already taken: %s", e.Seat)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
