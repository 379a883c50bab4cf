package session

import (
	"testing"

	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrincipal(t *testing.T) {
	cases := []struct {
		name     string
		in       *Principal
		fallback string
		want     domain.Identity
		wantErr  bool
	}{
		{
			name: "full metadata",
			in: &Principal{ID: "u1", Email: "a@example.com", Metadata: map[string]interface{}{
				"name": " Ann ", "location": "Pune", "avatar_url": "https://x/a.png",
			}},
			want: domain.Identity{ID: "u1", Email: "a@example.com", Name: "Ann", Location: "Pune", AvatarURL: "https://x/a.png"},
		},
		{
			name: "name from email local part",
			in:   &Principal{ID: "u1", Email: "ann.lee@example.com"},
			want: domain.Identity{ID: "u1", Email: "ann.lee@example.com", Name: "ann.lee"},
		},
		{
			name:     "fallback email",
			in:       &Principal{ID: "u1"},
			fallback: "b@example.com",
			want:     domain.Identity{ID: "u1", Email: "b@example.com", Name: "b"},
		},
		{
			name: "default name when local part empty",
			in:   &Principal{ID: "u1", Email: "@example.com"},
			want: domain.Identity{ID: "u1", Email: "@example.com", Name: "User"},
		},
		{
			name: "null metadata values are absent",
			in:   &Principal{ID: "u1", Email: "c@example.com", Metadata: map[string]interface{}{"location": nil}},
			want: domain.Identity{ID: "u1", Email: "c@example.com", Name: "c"},
		},
		{name: "nil principal", in: nil, wantErr: true},
		{name: "missing id", in: &Principal{Email: "a@example.com"}, wantErr: true},
		{name: "missing email", in: &Principal{ID: "u1"}, wantErr: true},
		{
			name:    "non-string avatar",
			in:      &Principal{ID: "u1", Email: "a@example.com", Metadata: map[string]interface{}{"avatar_url": []string{"x"}}},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePrincipal(tc.in, tc.fallback)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrMalformedPrincipal)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
