package response

import (
	"time"

	"event-ticketing/internal/data/entity"

	"github.com/shopspring/decimal"
)

type OrderResponse struct {
	ID               string                  `json:"id"`
	OrderNumber      string                  `json:"order_number"`
	BuyerID          string                  `json:"buyer_id"`
	EventID          string                  `json:"event_id"`
	Status           entity.OrderStatus      `json:"status"`
	PaymentMethod    entity.PaymentMethod    `json:"payment_method"`
	PaymentReference *string                 `json:"payment_reference,omitempty"`
	Subtotal         decimal.Decimal         `json:"subtotal"`
	DiscountAmount   decimal.Decimal         `json:"discount_amount"`
	PlatformFee      decimal.Decimal         `json:"platform_fee"`
	ProcessingFee    decimal.Decimal         `json:"processing_fee"`
	Total            decimal.Decimal         `json:"total"`
	BundleID         *string                 `json:"bundle_id,omitempty"`
	BundleQuantity   int                     `json:"bundle_quantity,omitempty"`
	Seats            []entity.SeatCoordinate `json:"seats,omitempty"`
	TicketCount      int                     `json:"ticket_count"`
	ActivatedTickets int                     `json:"activated_tickets"`
	HoldExpiresAt    *time.Time              `json:"hold_expires_at,omitempty"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	CancelledAt      *time.Time              `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	Tickets          []TicketResponse        `json:"tickets,omitempty"`

	// ActivationCodes is only populated by the cash checkout call; the codes
	// are not stored in plain text.
	ActivationCodes []ActivationCodeResponse `json:"activation_codes,omitempty"`
}

type TicketResponse struct {
	ID          string              `json:"id"`
	OrderID     *string             `json:"order_id,omitempty"`
	TierID      string              `json:"tier_id"`
	EventID     string              `json:"event_id"`
	Code        *string             `json:"code,omitempty"`
	Status      entity.TicketStatus `json:"status"`
	BundleGroup *string             `json:"bundle_group,omitempty"`
	ActivatedAt *time.Time          `json:"activated_at,omitempty"`
	ScannedAt   *time.Time          `json:"scanned_at,omitempty"`
	CancelledAt *time.Time          `json:"cancelled_at,omitempty"`
}

type ActivationCodeResponse struct {
	TicketID string `json:"ticket_id"`
	Code     string `json:"code"`
}

type ActivationResponse struct {
	Ticket           TicketResponse     `json:"ticket"`
	OrderID          string             `json:"order_id"`
	OrderStatus      entity.OrderStatus `json:"order_status"`
	ActivatedTickets int                `json:"activated_tickets"`
	TicketCount      int                `json:"ticket_count"`
}

func OrderToResponse(o *entity.Order, tickets []*entity.Ticket) OrderResponse {
	resp := OrderResponse{
		ID:               o.ID.String(),
		OrderNumber:      o.OrderNumber,
		BuyerID:          o.BuyerID,
		EventID:          o.EventID.String(),
		Status:           o.Status,
		PaymentMethod:    o.PaymentMethod,
		PaymentReference: o.PaymentReference,
		Subtotal:         o.Subtotal,
		DiscountAmount:   o.DiscountAmount,
		PlatformFee:      o.PlatformFee,
		ProcessingFee:    o.ProcessingFee,
		Total:            o.Total,
		BundleQuantity:   o.BundleQuantity,
		Seats:            o.Seats,
		TicketCount:      o.TicketCount,
		ActivatedTickets: o.ActivatedTickets,
		HoldExpiresAt:    o.HoldExpiresAt,
		CompletedAt:      o.CompletedAt,
		CancelledAt:      o.CancelledAt,
		CreatedAt:        o.CreatedAt,
	}
	if o.BundleID != nil {
		id := o.BundleID.String()
		resp.BundleID = &id
	}
	for _, t := range tickets {
		resp.Tickets = append(resp.Tickets, TicketToResponse(t))
	}
	return resp
}

func TicketToResponse(t *entity.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:          t.ID.String(),
		TierID:      t.TierID.String(),
		EventID:     t.EventID.String(),
		Code:        t.Code,
		Status:      t.Status,
		BundleGroup: t.BundleGroup,
		ActivatedAt: t.ActivatedAt,
		ScannedAt:   t.ScannedAt,
		CancelledAt: t.CancelledAt,
	}
	if t.OrderID != nil {
		id := t.OrderID.String()
		resp.OrderID = &id
	}
	return resp
}
