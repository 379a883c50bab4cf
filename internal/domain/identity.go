package domain

// Identity is the authenticated principal as mirrored in the local session record.
// Empty optional fields mean "not provided by the authority".
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
