// Package seed writes demo listings for manual testing.
package seed

import (
	"context"
	"fmt"

	"github.com/rcmarket/marketplace/internal/domain"
)

type productWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

// Listings are keyed by fixed ids so repeated runs update rather than duplicate.
var Listings = []domain.Product{
	{
		ID:          "6f1c2f0e-8a4b-4d0a-9b61-1f0d5a7e0001",
		Title:       "Refurbished Desk Lamp",
		Description: "Brass desk lamp, rewired and tested",
		PriceCents:  1999,
		Category:    "home",
		Condition:   "good",
	},
	{
		ID:          "6f1c2f0e-8a4b-4d0a-9b61-1f0d5a7e0002",
		Title:       "Ceramic Mug Set",
		Description: "Four handmade mugs",
		PriceCents:  1299,
		Category:    "kitchen",
		Condition:   "like new",
	},
	{
		ID:          "6f1c2f0e-8a4b-4d0a-9b61-1f0d5a7e0003",
		Title:       "Secondhand Textbooks",
		Description: "Bundle of engineering textbooks",
		PriceCents:  3500,
		Category:    "books",
		Condition:   "fair",
	},
}

// Apply upserts the demo listings. It is idempotent.
func Apply(ctx context.Context, products productWriter) (int, error) {
	for i, p := range Listings {
		if _, err := products.Upsert(ctx, p); err != nil {
			return i, fmt.Errorf("upsert product %s: %w", p.Title, err)
		}
	}
	return len(Listings), nil
}
