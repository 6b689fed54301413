// Package account defines the owner of destinations.
package account

import "time"

// Account owns destinations. Deleting an account removes its destinations.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest holds the fields to create a new account.
type CreateRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}
