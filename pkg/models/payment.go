package models

import "time"

// Payment method types.
const (
	PaymentTypeCash = "cash"
	PaymentTypeCard = "card"
	PaymentTypePix  = "pix"
)

// PaymentCashLabel is the display label for the default cash selection.
const PaymentCashLabel = "Cash"

type PaymentMethod struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Brand     string    `json:"brand"`
	Last4     string    `json:"last4"`
	CreatedAt time.Time `json:"created_at"`
}

// Label renders a short human-readable name for the instrument.
func (p PaymentMethod) Label() string {
	if p.Brand != "" && p.Last4 != "" {
		return p.Brand + " •••• " + p.Last4
	}
	return p.Type
}
