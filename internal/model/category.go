package model

import "time"

// Category represents a spending or income category that rules can
// assign to events.
type Category struct {
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ID          int       `json:"id"`
	IsActive    bool      `json:"is_active"`
}
