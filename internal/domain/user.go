package domain

import "time"

// User holds the credit balance consumed by generations.
type User struct {
	ID        string
	Email     string
	Credits   int
	CreatedAt time.Time
	UpdatedAt time.Time
}
