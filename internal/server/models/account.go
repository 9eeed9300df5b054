package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a user account exposed by the REST API.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	UserName     string     `json:"userName"`
	Email        string     `json:"email"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastAccessAt *time.Time `json:"lastAccessAt,omitempty"`
}
