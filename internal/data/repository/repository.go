package repository

import (
	"event-ticketing/pkg/database"

	"go.uber.org/zap"
)

// Repository groups every store the services depend on. The postgres set is
// built by NewRepository; memstore.New builds an in-memory set with the same
// single-record compare-and-set semantics.
type Repository struct {
	Session  SessionRepository
	Event    EventRepository
	Tier     TierRepository
	Bundle   BundleRepository
	Order    OrderRepository
	Ticket   TicketRepository
	Chart    SeatingChartRepository
	Seat     SeatReservationRepository
	Discount DiscountRepository
	Referral ReferralRepository
	Room     RoomRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Session:  NewSessionRepository(db, log),
		Event:    NewEventRepository(db, log),
		Tier:     NewTierRepository(db, log),
		Bundle:   NewBundleRepository(db, log),
		Order:    NewOrderRepository(db, log),
		Ticket:   NewTicketRepository(db, log),
		Chart:    NewSeatingChartRepository(db, log),
		Seat:     NewSeatReservationRepository(db, log),
		Discount: NewDiscountRepository(db, log),
		Referral: NewReferralRepository(db, log),
		Room:     NewRoomRepository(db, log),
	}
}
