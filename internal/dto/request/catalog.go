package request

import "time"

type CreateEventRequest struct {
	Name     string    `json:"name" validate:"required,min=2,max=200"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
}

type PricingTierRequest struct {
	Name       string     `json:"name" validate:"required,max=100"`
	Price      string     `json:"price" validate:"required,money"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`
}

type CreateTierRequest struct {
	Name         string               `json:"name" validate:"required,min=2,max=100"`
	Price        string               `json:"price" validate:"required,money"`
	Quantity     int                  `json:"quantity" validate:"required,min=1"`
	SaleStart    *time.Time           `json:"sale_start"`
	SaleEnd      *time.Time           `json:"sale_end"`
	SeatsPerUnit *int                 `json:"seats_per_unit" validate:"omitempty,min=2,max=50"`
	PricingTiers []PricingTierRequest `json:"pricing_tiers" validate:"omitempty,dive"`
}

// UpdateTierRequest changes only the fields that are set.
type UpdateTierRequest struct {
	Name         *string              `json:"name" validate:"omitempty,min=2,max=100"`
	Price        *string              `json:"price" validate:"omitempty,money"`
	Quantity     *int                 `json:"quantity" validate:"omitempty,min=0"`
	SaleStart    *time.Time           `json:"sale_start"`
	SaleEnd      *time.Time           `json:"sale_end"`
	PricingTiers []PricingTierRequest `json:"pricing_tiers" validate:"omitempty,dive"`
	IsActive     *bool                `json:"is_active"`
}

type BundleItemRequest struct {
	TierID   string `json:"tier_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=20"`
}

type CreateBundleRequest struct {
	Name          string              `json:"name" validate:"required,min=2,max=100"`
	Price         string              `json:"price" validate:"required,money"`
	Items         []BundleItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalQuantity int                 `json:"total_quantity" validate:"required,min=1"`
	SaleStart     *time.Time          `json:"sale_start"`
	SaleEnd       *time.Time          `json:"sale_end"`
}

type UpdateBundleRequest struct {
	Name          *string    `json:"name" validate:"omitempty,min=2,max=100"`
	Price         *string    `json:"price" validate:"omitempty,money"`
	TotalQuantity *int       `json:"total_quantity" validate:"omitempty,min=0"`
	SaleStart     *time.Time `json:"sale_start"`
	SaleEnd       *time.Time `json:"sale_end"`
	IsActive      *bool      `json:"is_active"`
}

type CreateChartRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	TotalSeats int    `json:"total_seats" validate:"required,min=1"`
}

type CreateDiscountCodeRequest struct {
	Code       string     `json:"code" validate:"required,alphanum,min=3,max=32"`
	Kind       string     `json:"kind" validate:"required,oneof=percentage fixed"`
	Value      string     `json:"value" validate:"required,money"`
	MaxUses    *int       `json:"max_uses" validate:"omitempty,min=1"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`
}

type CreateReferralCodeRequest struct {
	StaffID           string `json:"staff_id" validate:"required,max=128"`
	Code              string `json:"code" validate:"required,alphanum,min=3,max=32"`
	CommissionPercent string `json:"commission_percent" validate:"required,numeric"`
}

type CreateRoomBlockRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type HoldRoomsRequest struct {
	Quantity int    `json:"quantity" validate:"required,min=1,max=20"`
	OrderID  string `json:"order_id" validate:"omitempty,uuid"`
}
