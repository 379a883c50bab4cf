// Package local is a Postgres-backed identity authority: bcrypt credentials in the
// customers table and opaque session tokens in the tokens table.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rcmarket/marketplace/internal/domain"
	custrepo "github.com/rcmarket/marketplace/internal/repository/customer"
	tokenrepo "github.com/rcmarket/marketplace/internal/repository/token"
	"github.com/rcmarket/marketplace/internal/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrAlreadyRegistered  = errors.New("User already registered")
	ErrEmailRequired      = errors.New("Email is required")
)

// Options tunes an Authority.
type Options struct {
	// RequireConfirmation makes sign-ups start unconfirmed and without a session.
	RequireConfirmation bool
	SessionTTL          time.Duration
	Logger              logrus.FieldLogger
}

// Authority implements session.Authority. It holds at most one current session token,
// mirroring a single client's view of the provider.
type Authority struct {
	customers   custrepo.Repository
	tokens      *tokenManager
	confirm     bool
	sessionTTL  time.Duration
	passwordMin int
	logger      logrus.FieldLogger

	mu      sync.Mutex
	current string
}

var _ session.Authority = (*Authority)(nil)

func New(customers custrepo.Repository, tokens tokenrepo.Repository, opts Options) *Authority {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Authority{
		customers:   customers,
		tokens:      newTokenManager(tokens),
		confirm:     opts.RequireConfirmation,
		sessionTTL:  opts.SessionTTL,
		passwordMin: 8,
		logger:      opts.Logger.WithField("authority", "local"),
	}
}

func (a *Authority) SignUp(ctx context.Context, email, password, displayName string) (*session.SignUpResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	password = strings.TrimSpace(password)
	if err := validatePassword(password, a.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, session.Internal(err)
	}

	c, err := a.customers.Create(ctx, domain.Customer{
		Email:        email,
		PasswordHash: string(hashed),
		Name:         strings.TrimSpace(displayName),
		Confirmed:    !a.confirm,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, ErrAlreadyRegistered
		}
		return nil, session.Internal(err)
	}

	if !c.Confirmed {
		a.logger.WithField("customer_id", c.ID).Info("sign-up awaiting confirmation")
		return &session.SignUpResult{Principal: principalOf(c)}, nil
	}
	if err := a.startSession(ctx, c.ID); err != nil {
		return nil, session.Internal(err)
	}
	return &session.SignUpResult{Principal: principalOf(c), SessionActive: true}, nil
}

func (a *Authority) SignIn(ctx context.Context, email, password string) (*session.Principal, error) {
	password = strings.TrimSpace(password)
	c, err := a.customers.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, session.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !c.Confirmed {
		return nil, ErrEmailNotConfirmed
	}
	if err := a.startSession(ctx, c.ID); err != nil {
		return nil, session.Internal(err)
	}
	return principalOf(c), nil
}

// SignOut revokes the held session token. Without one it is a no-op.
func (a *Authority) SignOut(ctx context.Context) error {
	a.mu.Lock()
	token := a.current
	a.current = ""
	a.mu.Unlock()

	if token == "" {
		return nil
	}
	return a.tokens.Revoke(ctx, token)
}

// CurrentPrincipal returns nil without error when no valid session is held.
func (a *Authority) CurrentPrincipal(ctx context.Context) (*session.Principal, error) {
	a.mu.Lock()
	token := a.current
	a.mu.Unlock()
	if token == "" {
		return nil, nil
	}

	customerID, ok := a.tokens.Validate(ctx, token)
	if !ok {
		a.dropToken(token)
		return nil, nil
	}
	c, err := a.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.dropToken(token)
			return nil, nil
		}
		return nil, session.Internal(err)
	}
	return principalOf(c), nil
}

// Confirm marks a pending account as confirmed so it can sign in.
func (a *Authority) Confirm(ctx context.Context, email string) error {
	return a.customers.Confirm(ctx, strings.TrimSpace(email))
}

func (a *Authority) startSession(ctx context.Context, customerID string) error {
	token, err := a.tokens.Issue(ctx, customerID, a.sessionTTL)
	if err != nil {
		return fmt.Errorf("issue session: %w", err)
	}

	a.mu.Lock()
	previous := a.current
	a.current = token
	a.mu.Unlock()

	if previous != "" && previous != token {
		if err := a.tokens.Revoke(ctx, previous); err != nil {
			a.logger.WithError(err).Warn("revoke replaced session")
		}
	}
	return nil
}

func (a *Authority) dropToken(token string) {
	a.mu.Lock()
	if a.current == token {
		a.current = ""
	}
	a.mu.Unlock()
}

func principalOf(c *domain.Customer) *session.Principal {
	md := map[string]interface{}{}
	if c.Name != "" {
		md["name"] = c.Name
	}
	if c.Location != "" {
		md["location"] = c.Location
	}
	if c.AvatarURL != "" {
		md["avatar_url"] = c.AvatarURL
	}
	return &session.Principal{ID: c.ID, Email: c.Email, Metadata: md}
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("Password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("Password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
