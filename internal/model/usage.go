package model

import "time"

// UsageRecord is a per-key request counter for one calendar month.
// At most one record exists per (APIKeyID, Year, Month); Count starts at 1
// on creation and only ever increases within a period.
type UsageRecord struct {
	ID        string    `json:"id"`
	APIKeyID  string    `json:"api_key_id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Count     int64     `json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
