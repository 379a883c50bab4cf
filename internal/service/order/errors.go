package order

import (
	"errors"
	"fmt"

	"github.com/rcmarket/marketplace/internal/domain"
)

var (
	// ErrHeaderInsert matches every *HeaderError.
	ErrHeaderInsert = errors.New("order header insert failed")
	// ErrPartialOrder matches every *PartialOrderError.
	ErrPartialOrder = errors.New("order created without line items")
)

// HeaderError reports that the order header could not be written. Nothing was
// persisted and no line items were attempted.
type HeaderError struct {
	Err error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("%s: %v", ErrHeaderInsert, e.Err)
}

func (e *HeaderError) Unwrap() []error { return []error{ErrHeaderInsert, e.Err} }

// PartialOrderError reports that the header was written but its line items were not.
// Unless Compensated is set the header still exists in the store with no items.
type PartialOrderError struct {
	Order           *domain.Order
	Err             error
	Compensated     bool
	CompensationErr error
}

func (e *PartialOrderError) Error() string {
	switch {
	case e.Compensated:
		return fmt.Sprintf("order %s rolled back after line item insert failed: %v", e.Order.ID, e.Err)
	case e.CompensationErr != nil:
		return fmt.Sprintf("%s: order %s: %v (rollback failed: %v)", ErrPartialOrder, e.Order.ID, e.Err, e.CompensationErr)
	default:
		return fmt.Sprintf("%s: order %s: %v", ErrPartialOrder, e.Order.ID, e.Err)
	}
}

func (e *PartialOrderError) Unwrap() []error { return []error{ErrPartialOrder, e.Err} }

// Orphaned reports whether the header is still in the store.
func (e *PartialOrderError) Orphaned() bool { return !e.Compensated }
