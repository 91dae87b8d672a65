package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "percentage"
	DiscountFixed      DiscountKind = "fixed"
)

type DiscountCode struct {
	BaseNoDelete
	EventID    uuid.UUID       `db:"event_id"`
	Code       string          `db:"code"`
	Kind       DiscountKind    `db:"kind"`
	Value      decimal.Decimal `db:"value"`
	MaxUses    *int            `db:"max_uses"`
	UsedCount  int             `db:"used_count"`
	ValidFrom  *time.Time      `db:"valid_from"`
	ValidUntil *time.Time      `db:"valid_until"`
	IsActive   bool            `db:"is_active"`
	Version    int64           `db:"version"`
}

// UsableAt reports whether one more use may be consumed at now.
func (d *DiscountCode) UsableAt(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidUntil != nil && !now.Before(*d.ValidUntil) {
		return false
	}
	return d.MaxUses == nil || d.UsedCount < *d.MaxUses
}

var hundred = decimal.NewFromInt(100)

// AmountOff returns the discount for subtotal, never more than subtotal.
func (d *DiscountCode) AmountOff(subtotal decimal.Decimal) decimal.Decimal {
	var off decimal.Decimal
	switch d.Kind {
	case DiscountPercentage:
		pct := decimal.Min(d.Value, hundred)
		off = subtotal.Mul(pct).Div(hundred).Round(2)
	case DiscountFixed:
		off = d.Value
	}
	if off.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(off, subtotal)
}

type ReferralCode struct {
	BaseNoDelete
	EventID           uuid.UUID       `db:"event_id"`
	StaffID           string          `db:"staff_id"`
	Code              string          `db:"code"`
	CommissionPercent decimal.Decimal `db:"commission_percent"`
	TicketsSold       int             `db:"tickets_sold"`
	CommissionEarned  decimal.Decimal `db:"commission_earned"`
	IsActive          bool            `db:"is_active"`
	Version           int64           `db:"version"`
}

// CommissionOn returns the staff commission for a sale amount.
func (r *ReferralCode) CommissionOn(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(r.CommissionPercent).Div(hundred).Round(2)
}
