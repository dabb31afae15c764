package models

import "time"

// Profile is the application-level per-user record, distinct from the
// auth identity. Created server-side by a sign-up trigger.
type Profile struct {
	UserID    string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Lat       *float64  `json:"last_lat"`
	Lng       *float64  `json:"last_lng"`
	UpdatedAt time.Time `json:"updated_at"`
}
