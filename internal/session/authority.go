package session

import "context"

// Principal is the authority's view of an authenticated user. Metadata carries the
// loosely typed profile attributes (name, location, avatar_url) exactly as the
// authority returned them; ParsePrincipal turns it into a domain.Identity.
type Principal struct {
	ID       string
	Email    string
	Metadata map[string]interface{}
}

// SignUpResult reports the outcome of a registration. SessionActive is false when the
// authority requires confirmation before a session exists.
type SignUpResult struct {
	Principal     *Principal
	SessionActive bool
}

// Authority is the remote identity service of record. Errors returned by SignUp and
// SignIn carry a human-readable message in Error().
type Authority interface {
	SignUp(ctx context.Context, email, password, displayName string) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*Principal, error)
	SignOut(ctx context.Context) error
	CurrentPrincipal(ctx context.Context) (*Principal, error)
}
