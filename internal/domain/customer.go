package domain

import "time"

// Customer is a credential record held by the built-in identity authority.
type Customer struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	Location     string    `json:"location,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"createdAt"`
}
