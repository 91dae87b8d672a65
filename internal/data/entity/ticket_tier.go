package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingTier is a time bounded price override, e.g. "early bird".
type PricingTier struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ValidFrom  *time.Time      `json:"valid_from,omitempty"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
}

func (p PricingTier) ActiveAt(now time.Time) bool {
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && !now.Before(*p.ValidUntil) {
		return false
	}
	return true
}

type TicketTier struct {
	BaseNoDelete
	EventID      uuid.UUID       `db:"event_id"`
	Name         string          `db:"name"`
	Price        decimal.Decimal `db:"price"`
	Quantity     int             `db:"quantity"`
	Sold         int             `db:"sold"`
	Version      int64           `db:"version"`
	SaleStart    *time.Time      `db:"sale_start"`
	SaleEnd      *time.Time      `db:"sale_end"`
	SeatsPerUnit *int            `db:"seats_per_unit"` // table packages only
	PricingTiers []PricingTier   `db:"pricing_tiers"`
	FirstSaleAt  *time.Time      `db:"first_sale_at"`
	IsActive     bool            `db:"is_active"`
}

func (t *TicketTier) Remaining() int {
	if t.Sold >= t.Quantity {
		return 0
	}
	return t.Quantity - t.Sold
}

// TicketsPerUnit is how many tickets one purchased unit materializes.
func (t *TicketTier) TicketsPerUnit() int {
	if t.SeatsPerUnit != nil && *t.SeatsPerUnit > 1 {
		return *t.SeatsPerUnit
	}
	return 1
}

func (t *TicketTier) OnSaleAt(now time.Time) bool {
	if !t.IsActive {
		return false
	}
	if t.SaleStart != nil && now.Before(*t.SaleStart) {
		return false
	}
	if t.SaleEnd != nil && !now.Before(*t.SaleEnd) {
		return false
	}
	return true
}

// PriceAt returns the first active pricing tier price, else the base price.
func (t *TicketTier) PriceAt(now time.Time) decimal.Decimal {
	for _, p := range t.PricingTiers {
		if p.ActiveAt(now) {
			return p.Price
		}
	}
	return t.Price
}
