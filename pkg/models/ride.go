package models

import "time"

// Server-side ride status values.
const (
	RideStatusRequested  = "REQUESTED"
	RideStatusAccepted   = "ACCEPTED"
	RideStatusInProgress = "IN_PROGRESS"
	RideStatusCompleted  = "COMPLETED"
	RideStatusCancelled  = "CANCELLED"
)

type Ride struct {
	ID                int64     `json:"id"`
	RiderID           string    `json:"rider_id"`
	DriverID          *string   `json:"driver_id"`
	FromLabel         string    `json:"from_label"`
	ToLabel           string    `json:"to_label"`
	OriginLat         float64   `json:"origin_lat"`
	OriginLng         float64   `json:"origin_lng"`
	Vehicle           string    `json:"vehicle"`
	EstimatedPrice    *float64  `json:"estimated_price"`
	FinalPrice        *float64  `json:"final_price"`
	Status            string    `json:"status"`
	PaymentMethodType string    `json:"payment_method_type"`
	PaymentMethodID   *int64    `json:"payment_method_id"`
	Rating            *int      `json:"rating"`
	RequestKey        string    `json:"request_key"`
	CreatedAt         time.Time `json:"created_at"`
}

type Driver struct {
	ID           string  `json:"id"`
	FullName     string  `json:"full_name"`
	CarBrand     string  `json:"car_brand"`
	CarModel     string  `json:"car_model"`
	LicensePlate string  `json:"license_plate"`
	Rating       float64 `json:"rating"`
}
