package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BundleItem struct {
	TierID   uuid.UUID `json:"tier_id"`
	Quantity int       `json:"quantity"`
}

type TicketBundle struct {
	BaseNoDelete
	EventID       uuid.UUID       `db:"event_id"`
	Name          string          `db:"name"`
	Price         decimal.Decimal `db:"price"`
	Items         []BundleItem    `db:"items"`
	TotalQuantity int             `db:"total_quantity"`
	Sold          int             `db:"sold"`
	Version       int64           `db:"version"`
	RegularPrice  decimal.Decimal `db:"regular_price"`
	Savings       decimal.Decimal `db:"savings"`
	SaleStart     *time.Time      `db:"sale_start"`
	SaleEnd       *time.Time      `db:"sale_end"`
	IsActive      bool            `db:"is_active"`
}

func (b *TicketBundle) Remaining() int {
	if b.Sold >= b.TotalQuantity {
		return 0
	}
	return b.TotalQuantity - b.Sold
}

func (b *TicketBundle) OnSaleAt(now time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.SaleStart != nil && now.Before(*b.SaleStart) {
		return false
	}
	if b.SaleEnd != nil && !now.Before(*b.SaleEnd) {
		return false
	}
	return true
}
