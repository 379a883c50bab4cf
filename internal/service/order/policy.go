package order

import (
	"fmt"
	"strings"
)

// OrphanPolicy decides what happens to a header whose line items failed to insert.
type OrphanPolicy int

const (
	// OrphanLeave keeps the header and reports the orphan to the caller.
	OrphanLeave OrphanPolicy = iota
	// OrphanCompensate deletes the header on a best-effort basis.
	OrphanCompensate
)

func (p OrphanPolicy) String() string {
	switch p {
	case OrphanCompensate:
		return "compensate"
	default:
		return "leave"
	}
}

// ParseOrphanPolicy accepts "leave" (also the empty string) and "compensate".
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "leave":
		return OrphanLeave, nil
	case "compensate":
		return OrphanCompensate, nil
	default:
		return OrphanLeave, fmt.Errorf("unknown orphan policy %q", s)
	}
}
