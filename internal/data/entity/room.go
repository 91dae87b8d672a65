package entity

import (
	"time"

	"github.com/google/uuid"
)

type RoomHoldStatus string

const (
	RoomHoldPending   RoomHoldStatus = "pending"
	RoomHoldConfirmed RoomHoldStatus = "confirmed"
	RoomHoldReleased  RoomHoldStatus = "released"
)

// RoomBlock is a fixed pool of rooms sold alongside an event.
type RoomBlock struct {
	BaseNoDelete
	EventID  uuid.UUID `db:"event_id"`
	Name     string    `db:"name"`
	Quantity int       `db:"quantity"`
	Held     int       `db:"held"`
	Version  int64     `db:"version"`
}

type RoomHold struct {
	BaseSimple
	BlockID   uuid.UUID      `db:"block_id"`
	OrderID   *uuid.UUID     `db:"order_id"`
	HolderID  string         `db:"holder_id"`
	Quantity  int            `db:"quantity"`
	Status    RoomHoldStatus `db:"status"`
	ExpiresAt time.Time      `db:"expires_at"`
}
