package models

import "time"

// Tariff is a vehicle class offered to riders. Pricing itself is
// computed server-side; the client only lists and selects.
type Tariff struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Multiplier float64   `json:"multiplier"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
