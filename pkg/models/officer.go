package models

import "time"

// Roles an account can hold.
const (
	RoleOfficer = "officer"
	RoleGAD     = "gad"
)

// Officer is the public view of an account.
type Officer struct {
	ID        string    `json:"id"`
	PEN       string    `json:"pen"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
