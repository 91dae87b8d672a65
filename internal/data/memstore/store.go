// Package memstore is an in-process implementation of the repository
// interfaces. Every write is a single-record compare-and-set under one mutex,
// so it offers the same guarantees the services rely on from Postgres and
// nothing more.
package memstore

import (
	"sync"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/clock"

	"github.com/google/uuid"
)

type store struct {
	mu    sync.RWMutex
	clock clock.Clock

	sessions  map[string]entity.Session
	events    map[uuid.UUID]entity.Event
	tiers     map[uuid.UUID]entity.TicketTier
	bundles   map[uuid.UUID]entity.TicketBundle
	orders    map[uuid.UUID]entity.Order
	items     map[uuid.UUID][]entity.OrderItem
	tickets   map[uuid.UUID]entity.Ticket
	charts    map[uuid.UUID]entity.SeatingChart
	seats     map[uuid.UUID]entity.SeatReservation
	active    map[seatKey]uuid.UUID
	discounts map[uuid.UUID]entity.DiscountCode
	referrals map[uuid.UUID]entity.ReferralCode
	blocks    map[uuid.UUID]entity.RoomBlock
	roomHolds map[uuid.UUID]entity.RoomHold
}

// seatKey identifies one coordinate on one chart; active maps it to the
// single RESERVED record holding it.
type seatKey struct {
	chart uuid.UUID
	coord entity.SeatCoordinate
}

// New returns a Repository whose stores share one in-memory state.
func New(clk clock.Clock) *repository.Repository {
	s := &store{
		clock:     clk,
		sessions:  make(map[string]entity.Session),
		events:    make(map[uuid.UUID]entity.Event),
		tiers:     make(map[uuid.UUID]entity.TicketTier),
		bundles:   make(map[uuid.UUID]entity.TicketBundle),
		orders:    make(map[uuid.UUID]entity.Order),
		items:     make(map[uuid.UUID][]entity.OrderItem),
		tickets:   make(map[uuid.UUID]entity.Ticket),
		charts:    make(map[uuid.UUID]entity.SeatingChart),
		seats:     make(map[uuid.UUID]entity.SeatReservation),
		active:    make(map[seatKey]uuid.UUID),
		discounts: make(map[uuid.UUID]entity.DiscountCode),
		referrals: make(map[uuid.UUID]entity.ReferralCode),
		blocks:    make(map[uuid.UUID]entity.RoomBlock),
		roomHolds: make(map[uuid.UUID]entity.RoomHold),
	}

	return &repository.Repository{
		Session:  &sessionStore{s},
		Event:    &eventStore{s},
		Tier:     &tierStore{s},
		Bundle:   &bundleStore{s},
		Order:    &orderStore{s},
		Ticket:   &ticketStore{s},
		Chart:    &chartStore{s},
		Seat:     &seatStore{s},
		Discount: &discountStore{s},
		Referral: &referralStore{s},
		Room:     &roomStore{s},
	}
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
