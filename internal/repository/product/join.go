package product

import (
	"time"

	"github.com/rcmarket/marketplace/internal/domain"
)

// JoinColumns selects a LEFT JOINed products row aliased p. Scan it with a Joined.
const JoinColumns = `p.id::text, p.seller_id, p.title, p.description, p.price_cents, p.image_url, p.category, p.condition, p.created_at, p.updated_at`

// Joined receives the nullable columns of JoinColumns.
type Joined struct {
	id          *string
	sellerID    *string
	title       *string
	description *string
	priceCents  *int64
	imageURL    *string
	category    *string
	condition   *string
	createdAt   *time.Time
	updatedAt   *time.Time
}

// Dest returns the scan destinations in JoinColumns order.
func (j *Joined) Dest() []interface{} {
	return []interface{}{
		&j.id,
		&j.sellerID,
		&j.title,
		&j.description,
		&j.priceCents,
		&j.imageURL,
		&j.category,
		&j.condition,
		&j.createdAt,
		&j.updatedAt,
	}
}

// Product returns nil when the join matched no row.
func (j *Joined) Product() *domain.Product {
	if j.id == nil {
		return nil
	}
	p := &domain.Product{ID: *j.id, SellerID: j.sellerID}
	if j.title != nil {
		p.Title = *j.title
	}
	if j.description != nil {
		p.Description = *j.description
	}
	if j.priceCents != nil {
		p.PriceCents = *j.priceCents
	}
	if j.imageURL != nil {
		p.ImageURL = *j.imageURL
	}
	if j.category != nil {
		p.Category = *j.category
	}
	if j.condition != nil {
		p.Condition = *j.condition
	}
	if j.createdAt != nil {
		p.CreatedAt = *j.createdAt
	}
	if j.updatedAt != nil {
		p.UpdatedAt = *j.updatedAt
	}
	return p
}
