package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// CanTransition encodes the order state machine.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return to == OrderStatusCompleted || to == OrderStatusPendingPayment || to == OrderStatusCancelled
	case OrderStatusPendingPayment:
		return to == OrderStatusCompleted || to == OrderStatusCancelled
	default:
		return false
	}
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodFree   PaymentMethod = "free"
)

// SeatCoordinate addresses one seat, or one seat at a table, in a seating chart.
type SeatCoordinate struct {
	Section string `json:"section"`
	Row     string `json:"row,omitempty"`
	Table   string `json:"table,omitempty"`
	Seat    string `json:"seat"`
}

func (c SeatCoordinate) String() string {
	s := c.Section
	if c.Row != "" {
		s += "/row " + c.Row
	}
	if c.Table != "" {
		s += "/table " + c.Table
	}
	return s + "/seat " + c.Seat
}

type Order struct {
	BaseNoDelete
	OrderNumber      string           `db:"order_number"`
	BuyerID          string           `db:"buyer_id"`
	BuyerEmail       string           `db:"buyer_email"`
	EventID          uuid.UUID        `db:"event_id"`
	Subtotal         decimal.Decimal  `db:"subtotal"`
	DiscountAmount   decimal.Decimal  `db:"discount_amount"`
	PlatformFee      decimal.Decimal  `db:"platform_fee"`
	ProcessingFee    decimal.Decimal  `db:"processing_fee"`
	Total            decimal.Decimal  `db:"total"`
	Status           OrderStatus      `db:"status"`
	PaymentMethod    PaymentMethod    `db:"payment_method"`
	PaymentReference *string          `db:"payment_reference"`
	BundleID         *uuid.UUID       `db:"bundle_id"`
	BundleQuantity   int              `db:"bundle_quantity"`
	DiscountCodeID   *uuid.UUID       `db:"discount_code_id"`
	ReferralCodeID   *uuid.UUID       `db:"referral_code_id"`
	ChartID          *uuid.UUID       `db:"chart_id"`
	Seats            []SeatCoordinate `db:"seats"`
	TicketCount      int              `db:"ticket_count"`
	ActivatedTickets int              `db:"activated_tickets"`
	HoldExpiresAt    *time.Time       `db:"hold_expires_at"`
	CompletedAt      *time.Time       `db:"completed_at"`
	CancelledAt      *time.Time       `db:"cancelled_at"`
	Version          int64            `db:"version"`
}

func (o *Order) IsOwnedBy(subject string) bool {
	return subject != "" && o.BuyerID == subject
}

// OrderItem is one purchased unit of a tier.
type OrderItem struct {
	BaseSimple
	OrderID     uuid.UUID       `db:"order_id"`
	TierID      uuid.UUID       `db:"tier_id"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	BundleGroup *string         `db:"bundle_group"`
	Position    int             `db:"position"`
}
