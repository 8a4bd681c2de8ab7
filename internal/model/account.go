// Package model defines domain entities for the application.
package model

import "time"

// Account represents a customer account that owns API keys.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
