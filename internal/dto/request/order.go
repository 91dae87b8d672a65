package request

type OrderItemRequest struct {
	TierID   string `json:"tier_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=50"`
}

type SeatRequest struct {
	Section string `json:"section" validate:"required,max=64"`
	Row     string `json:"row" validate:"omitempty,max=16"`
	Table   string `json:"table" validate:"omitempty,max=16"`
	Seat    string `json:"seat" validate:"required,max=16"`
}

type CreateOrderRequest struct {
	EventID       string             `json:"event_id" validate:"required,uuid"`
	Items         []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ChartID       string             `json:"chart_id" validate:"omitempty,uuid"`
	Seats         []SeatRequest      `json:"seats" validate:"omitempty,dive"`
	DiscountCode  string             `json:"discount_code" validate:"omitempty,max=64"`
	ReferralCode  string             `json:"referral_code" validate:"omitempty,max=64"`
	PaymentMethod string             `json:"payment_method" validate:"required,oneof=card paypal cash free"`
}

type CreateBundleOrderRequest struct {
	Quantity      int    `json:"quantity" validate:"required,min=1,max=20"`
	DiscountCode  string `json:"discount_code" validate:"omitempty,max=64"`
	ReferralCode  string `json:"referral_code" validate:"omitempty,max=64"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card paypal cash free"`
}

// CompleteOrderRequest is sent once the payment gateway confirmed the charge.
type CompleteOrderRequest struct {
	PaymentMethod    string `json:"payment_method" validate:"omitempty,oneof=card paypal free"`
	PaymentReference string `json:"payment_reference" validate:"omitempty,max=255"`
}

type ActivateTicketRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

type ScanTicketRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}
