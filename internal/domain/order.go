package domain

import "time"

// Order is the header record of a placed order. UserID is nil for orders
// placed without a cached identity. A header read back from the store always
// carries Items, empty when no line item was written.
type Order struct {
	ID              string      `json:"id"`
	UserID          *string     `json:"userId,omitempty"`
	TotalCents      int64       `json:"totalCents"`
	ShippingAddress string      `json:"shippingAddress"`
	CreatedAt       time.Time   `json:"createdAt"`
	Items           []OrderItem `json:"items"`
}

// OrderItem is a line item. UnitPriceCents is the price at time of purchase.
type OrderItem struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	ProductID      string    `json:"productId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	CreatedAt      time.Time `json:"createdAt"`
	Product        *Product  `json:"product,omitempty"`
}
