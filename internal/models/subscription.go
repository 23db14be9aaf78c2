package models

import "time"

// City is the canonical identity a free-form city string resolves to.
// FullName is "Name, Region, Country" and is the broadcast grouping key.
type City struct {
	Name     string  `json:"name"`
	Region   string  `json:"region"`
	Country  string  `json:"country"`
	FullName string  `json:"fullName"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

type Subscription struct {
	ID                int
	Email             string
	City              City
	Frequency         string
	ConfirmationToken string // cleared once confirmed
	RevokeToken       string
	Confirmed         bool
	CreatedAt         time.Time
}
