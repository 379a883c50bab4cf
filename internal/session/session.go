package session

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/rcmarket/marketplace/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Keys of the local session record and the topic of its change events.
const (
	AuthFlagKey = "rc_auth"
	UserKey     = "rc_user"
	ChangeTopic = "rc_auth"

	authFlagOn = "1"
)

// Synchronizer keeps the local session record eventually consistent with the remote
// authority and notifies subscribers whenever the record changes.
//
// Remote calls are never serialised: concurrent operations race and the last record
// write wins. Record writes themselves are whole-record and atomic, and they complete
// even if the caller's context is cancelled after the remote call returned.
type Synchronizer struct {
	authority Authority
	store     Store
	events    *Broadcaster
	logger    *logrus.Logger

	recordMu sync.Mutex
}

// New builds a Synchronizer. A nil broadcaster gets a private in-process one and a
// nil logger discards output.
func New(authority Authority, store Store, events *Broadcaster, logger *logrus.Logger) *Synchronizer {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if events == nil {
		events = NewBroadcaster(nil, logger)
	}
	return &Synchronizer{
		authority: authority,
		store:     store,
		events:    events,
		logger:    logger,
	}
}

// RegisterInput captures the fields of a sign-up.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Location string `json:"location,omitempty"`
}

// Registration is a successful sign-up. When NeedsConfirmation is set the identity
// was not cached and no session exists yet.
type Registration struct {
	Identity          domain.Identity `json:"user"`
	NeedsConfirmation bool            `json:"needsEmailConfirmation"`
}

// ProfilePatch holds the optional profile fields to merge into the cached identity.
type ProfilePatch struct {
	Name      *string `json:"name,omitempty"`
	Location  *string `json:"location,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// Subscribe registers fn for change events on ChangeTopic.
func (s *Synchronizer) Subscribe(fn func(topic string)) func() {
	return s.events.Subscribe(fn)
}

// Resolve asks the authority for the current principal and mirrors the answer into
// the local record. Any failure degrades to "absent" and clears the record.
func (s *Synchronizer) Resolve(ctx context.Context) (identity domain.Identity, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("session: resolve recovered")
			identity, ok = domain.Identity{}, false
		}
	}()

	p, err := s.authority.CurrentPrincipal(ctx)
	if err != nil || p == nil {
		if err != nil {
			s.logger.WithError(err).Debug("session: authority reported no session")
		}
		s.clearRecord(ctx)
		return domain.Identity{}, false
	}

	identity, err = ParsePrincipal(p, "")
	if err != nil {
		s.logger.WithError(err).Warn("session: discarding unparseable principal")
		s.clearRecord(ctx)
		return domain.Identity{}, false
	}

	if err := s.writeRecord(ctx, identity); err != nil {
		s.logger.WithError(err).WithField("user_id", identity.ID).Warn("session: cache write failed")
	}
	return identity, true
}

// CachedIdentity reads the local record only. A missing or malformed payload is
// reported as absent.
func (s *Synchronizer) CachedIdentity(ctx context.Context) (domain.Identity, bool) {
	raw, found, err := s.store.Get(ctx, UserKey)
	if err != nil {
		s.logger.WithError(err).Debug("session: cache read failed")
		return domain.Identity{}, false
	}
	if !found {
		return domain.Identity{}, false
	}
	identity, err := decodeIdentity(raw)
	if err != nil {
		s.logger.WithError(err).Debug("session: cached identity is malformed")
		return domain.Identity{}, false
	}
	return identity, true
}

// IsAuthenticated reports the record's flag without validating the payload.
func (s *Synchronizer) IsAuthenticated(ctx context.Context) bool {
	v, found, err := s.store.Get(ctx, AuthFlagKey)
	return err == nil && found && v == authFlagOn
}

// Register signs a new user up. An authority error is returned verbatim as an
// *AuthError.
func (s *Synchronizer) Register(ctx context.Context, in RegisterInput) (reg *Registration, err error) {
	defer s.recoverInto("register", &err)

	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	res, err := s.authority.SignUp(ctx, email, in.Password, name)
	if err != nil {
		return nil, rejection(err, msgSignupFailed)
	}
	if res == nil || res.Principal == nil {
		return nil, &AuthError{Message: msgNoUserSignup}
	}

	identity, err := ParsePrincipal(res.Principal, email)
	if err != nil {
		return nil, &AuthError{Message: msgSignupFailed, Err: err}
	}
	if name != "" {
		identity.Name = name
	}
	identity.Location = strings.TrimSpace(in.Location)
	identity.AvatarURL = ""

	if !res.SessionActive {
		s.logger.WithField("email", email).Info("session: registration awaiting confirmation")
		return &Registration{Identity: identity, NeedsConfirmation: true}, nil
	}

	if err := s.writeRecord(ctx, identity); err != nil {
		return nil, rejection(err, msgSignupFailed)
	}
	s.notify(ctx, "register")
	return &Registration{Identity: identity}, nil
}

// Login signs in with the authority and caches the resulting identity. On failure
// the local record is left untouched.
func (s *Synchronizer) Login(ctx context.Context, email, password string) (identity domain.Identity, err error) {
	defer s.recoverInto("login", &err)

	email = normalizeEmail(email)
	p, err := s.authority.SignIn(ctx, email, password)
	if err != nil {
		return domain.Identity{}, rejection(err, msgLoginFailed)
	}
	if p == nil {
		return domain.Identity{}, &AuthError{Message: msgNoUserLogin}
	}

	identity, err = ParsePrincipal(p, email)
	if err != nil {
		return domain.Identity{}, &AuthError{Message: msgBadUserRecord, Err: err}
	}

	if err := s.writeRecord(ctx, identity); err != nil {
		return domain.Identity{}, rejection(err, msgUnexpected)
	}
	s.notify(ctx, "login")
	return identity, nil
}

// Logout signs out remotely and then, whatever the outcome, clears the record and
// notifies.
func (s *Synchronizer) Logout(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("session: logout recovered")
		}
		s.clearRecord(ctx)
		s.notify(ctx, "logout")
	}()

	if err := s.authority.SignOut(ctx); err != nil {
		s.logger.WithError(err).Warn("session: remote sign-out failed")
	}
}

// UpdateProfile merges patch into the cached identity and persists it locally. The
// authority's copy of the profile is not updated.
func (s *Synchronizer) UpdateProfile(ctx context.Context, patch ProfilePatch) error {
	if err := s.updateCached(ctx, patch); err != nil {
		return err
	}
	s.notify(ctx, "profile")
	return nil
}

func (s *Synchronizer) updateCached(ctx context.Context, patch ProfilePatch) error {
	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	identity, ok := s.CachedIdentity(ctx)
	if !ok {
		return ErrNotLoggedIn
	}
	if patch.Name != nil {
		identity.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Location != nil {
		identity.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.AvatarURL != nil {
		identity.AvatarURL = strings.TrimSpace(*patch.AvatarURL)
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, map[string]string{UserKey: string(payload)})
}

// ChangePassword verifies oldPassword with a full sign-in. Verified requests always
// end in ErrPasswordChangeNotImplemented; no credential is ever changed.
func (s *Synchronizer) ChangePassword(ctx context.Context, oldPassword, newPassword string) (err error) {
	defer s.recoverInto("change_password", &err)

	identity, ok := s.CachedIdentity(ctx)
	if !ok {
		return ErrNotLoggedIn
	}
	if _, err := s.authority.SignIn(ctx, identity.Email, oldPassword); err != nil {
		return ErrCurrentPasswordIncorrect
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":             identity.ID,
		"new_password_length": len(newPassword),
	}).Info("session: password change requested")
	return ErrPasswordChangeNotImplemented
}

func (s *Synchronizer) writeRecord(ctx context.Context, identity domain.Identity) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	s.recordMu.Lock()
	defer s.recordMu.Unlock()
	return s.store.Set(context.WithoutCancel(ctx), map[string]string{
		UserKey:     string(payload),
		AuthFlagKey: authFlagOn,
	})
}

func (s *Synchronizer) clearRecord(ctx context.Context) {
	s.recordMu.Lock()
	defer s.recordMu.Unlock()
	if err := s.store.Remove(context.WithoutCancel(ctx), UserKey, AuthFlagKey); err != nil {
		s.logger.WithError(err).Error("session: cache clear failed")
	}
}

func (s *Synchronizer) notify(ctx context.Context, op string) {
	metrics.RecordSessionChange(op)
	s.events.Publish(ctx, ChangeTopic)
}

func (s *Synchronizer) recoverInto(op string, err *error) {
	if r := recover(); r != nil {
		s.logger.WithFields(logrus.Fields{"op": op, "panic": r}).Error("session: recovered")
		*err = &AuthError{Message: msgUnexpected}
	}
}

func decodeIdentity(raw string) (domain.Identity, error) {
	var identity domain.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return domain.Identity{}, err
	}
	if identity.ID == "" || identity.Email == "" {
		return domain.Identity{}, ErrMalformedPrincipal
	}
	return identity, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
