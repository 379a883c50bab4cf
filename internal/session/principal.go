package session

import (
	"fmt"
	"strings"

	"github.com/rcmarket/marketplace/internal/domain"
)

const defaultDisplayName = "User"

// ParsePrincipal validates an authority payload and derives the Identity fields the
// authority did not provide. fallbackEmail is used only when the principal carries no
// email. Any metadata attribute of the wrong type fails the whole parse.
func ParsePrincipal(p *Principal, fallbackEmail string) (domain.Identity, error) {
	if p == nil {
		return domain.Identity{}, fmt.Errorf("%w: nil principal", ErrMalformedPrincipal)
	}
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing id", ErrMalformedPrincipal)
	}

	email := strings.TrimSpace(p.Email)
	if email == "" {
		email = strings.TrimSpace(fallbackEmail)
	}
	if email == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing email", ErrMalformedPrincipal)
	}

	name, err := metadataString(p.Metadata, "name")
	if err != nil {
		return domain.Identity{}, err
	}
	location, err := metadataString(p.Metadata, "location")
	if err != nil {
		return domain.Identity{}, err
	}
	avatar, err := metadataString(p.Metadata, "avatar_url")
	if err != nil {
		return domain.Identity{}, err
	}

	if name == "" {
		name = emailLocalPart(email)
	}

	return domain.Identity{
		ID:        id,
		Email:     email,
		Name:      name,
		Location:  location,
		AvatarURL: avatar,
	}, nil
}

func metadataString(md map[string]interface{}, key string) (string, error) {
	raw, ok := md[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrMalformedPrincipal, key, raw)
	}
	return strings.TrimSpace(s), nil
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local = strings.TrimSpace(local); local != "" {
		return local
	}
	return defaultDisplayName
}
