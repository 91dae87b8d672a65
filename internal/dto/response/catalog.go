package response

import (
	"time"

	"event-ticketing/internal/data/entity"

	"github.com/shopspring/decimal"
)

type EventResponse struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizer_id"`
	Name        string    `json:"name"`
	StartsAt    time.Time `json:"starts_at"`
}

type TierResponse struct {
	ID           string               `json:"id"`
	EventID      string               `json:"event_id"`
	Name         string               `json:"name"`
	Price        decimal.Decimal      `json:"price"`
	CurrentPrice decimal.Decimal      `json:"current_price"`
	Quantity     int                  `json:"quantity"`
	Sold         int                  `json:"sold"`
	Remaining    int                  `json:"remaining"`
	Version      int64                `json:"version"`
	SaleStart    *time.Time           `json:"sale_start,omitempty"`
	SaleEnd      *time.Time           `json:"sale_end,omitempty"`
	SeatsPerUnit *int                 `json:"seats_per_unit,omitempty"`
	PricingTiers []entity.PricingTier `json:"pricing_tiers,omitempty"`
	OnSale       bool                 `json:"on_sale"`
	IsActive     bool                 `json:"is_active"`
}

type BundleResponse struct {
	ID            string              `json:"id"`
	EventID       string              `json:"event_id"`
	Name          string              `json:"name"`
	Price         decimal.Decimal     `json:"price"`
	RegularPrice  decimal.Decimal     `json:"regular_price"`
	Savings       decimal.Decimal     `json:"savings"`
	Items         []entity.BundleItem `json:"items"`
	TotalQuantity int                 `json:"total_quantity"`
	Sold          int                 `json:"sold"`
	Remaining     int                 `json:"remaining"`
	SaleStart     *time.Time          `json:"sale_start,omitempty"`
	SaleEnd       *time.Time          `json:"sale_end,omitempty"`
	IsActive      bool                `json:"is_active"`
}

type ChartResponse struct {
	ID            string                  `json:"id"`
	EventID       string                  `json:"event_id"`
	Name          string                  `json:"name"`
	TotalSeats    int                     `json:"total_seats"`
	ReservedSeats int                     `json:"reserved_seats"`
	Reserved      []entity.SeatCoordinate `json:"reserved,omitempty"`
}

type DiscountCodeResponse struct {
	ID         string              `json:"id"`
	EventID    string              `json:"event_id"`
	Code       string              `json:"code"`
	Kind       entity.DiscountKind `json:"kind"`
	Value      decimal.Decimal     `json:"value"`
	MaxUses    *int                `json:"max_uses,omitempty"`
	UsedCount  int                 `json:"used_count"`
	ValidFrom  *time.Time          `json:"valid_from,omitempty"`
	ValidUntil *time.Time          `json:"valid_until,omitempty"`
}

type ReferralCodeResponse struct {
	ID                string          `json:"id"`
	EventID           string          `json:"event_id"`
	StaffID           string          `json:"staff_id"`
	Code              string          `json:"code"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	TicketsSold       int             `json:"tickets_sold"`
	CommissionEarned  decimal.Decimal `json:"commission_earned"`
}

type RoomBlockResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Held      int    `json:"held"`
	Available int    `json:"available"`
}

type RoomHoldResponse struct {
	ID        string                `json:"id"`
	BlockID   string                `json:"block_id"`
	Quantity  int                   `json:"quantity"`
	Status    entity.RoomHoldStatus `json:"status"`
	ExpiresAt time.Time             `json:"expires_at"`
}

type SweepResponse struct {
	Scan     string `json:"scan"`
	Released int    `json:"released"`
}

func EventToResponse(e *entity.Event) EventResponse {
	return EventResponse{
		ID:          e.ID.String(),
		OrganizerID: e.OrganizerID,
		Name:        e.Name,
		StartsAt:    e.StartsAt,
	}
}

func TierToResponse(t *entity.TicketTier, now time.Time) TierResponse {
	return TierResponse{
		ID:           t.ID.String(),
		EventID:      t.EventID.String(),
		Name:         t.Name,
		Price:        t.Price,
		CurrentPrice: t.PriceAt(now),
		Quantity:     t.Quantity,
		Sold:         t.Sold,
		Remaining:    t.Remaining(),
		Version:      t.Version,
		SaleStart:    t.SaleStart,
		SaleEnd:      t.SaleEnd,
		SeatsPerUnit: t.SeatsPerUnit,
		PricingTiers: t.PricingTiers,
		OnSale:       t.OnSaleAt(now),
		IsActive:     t.IsActive,
	}
}

func BundleToResponse(b *entity.TicketBundle) BundleResponse {
	return BundleResponse{
		ID:            b.ID.String(),
		EventID:       b.EventID.String(),
		Name:          b.Name,
		Price:         b.Price,
		RegularPrice:  b.RegularPrice,
		Savings:       b.Savings,
		Items:         b.Items,
		TotalQuantity: b.TotalQuantity,
		Sold:          b.Sold,
		Remaining:     b.Remaining(),
		SaleStart:     b.SaleStart,
		SaleEnd:       b.SaleEnd,
		IsActive:      b.IsActive,
	}
}

func DiscountCodeToResponse(d *entity.DiscountCode) DiscountCodeResponse {
	return DiscountCodeResponse{
		ID:         d.ID.String(),
		EventID:    d.EventID.String(),
		Code:       d.Code,
		Kind:       d.Kind,
		Value:      d.Value,
		MaxUses:    d.MaxUses,
		UsedCount:  d.UsedCount,
		ValidFrom:  d.ValidFrom,
		ValidUntil: d.ValidUntil,
	}
}

func ReferralCodeToResponse(c *entity.ReferralCode) ReferralCodeResponse {
	return ReferralCodeResponse{
		ID:                c.ID.String(),
		EventID:           c.EventID.String(),
		StaffID:           c.StaffID,
		Code:              c.Code,
		CommissionPercent: c.CommissionPercent,
		TicketsSold:       c.TicketsSold,
		CommissionEarned:  c.CommissionEarned,
	}
}

func RoomBlockToResponse(b *entity.RoomBlock) RoomBlockResponse {
	return RoomBlockResponse{
		ID:        b.ID.String(),
		EventID:   b.EventID.String(),
		Name:      b.Name,
		Quantity:  b.Quantity,
		Held:      b.Held,
		Available: b.Quantity - b.Held,
	}
}

func RoomHoldToResponse(h *entity.RoomHold) RoomHoldResponse {
	return RoomHoldResponse{
		ID:        h.ID.String(),
		BlockID:   h.BlockID.String(),
		Quantity:  h.Quantity,
		Status:    h.Status,
		ExpiresAt: h.ExpiresAt,
	}
}
