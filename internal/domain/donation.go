package domain

import "time"

type Donation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ItemName      string    `json:"itemName"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Quantity      int       `json:"quantity"`
	Condition     string    `json:"condition,omitempty"`
	PickupAddress string    `json:"pickupAddress"`
	Pincode       string    `json:"pincode"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}
