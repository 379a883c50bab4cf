// Package kratos implements session.Authority over the Ory Kratos native API flows.
package kratos

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rcmarket/marketplace/internal/session"
	"github.com/sirupsen/logrus"
)

var errNoIdentity = errors.New("kratos returned no identity")

// Authority holds the session token of the one client it signs in on behalf of.
type Authority struct {
	api    frontend
	logger logrus.FieldLogger

	mu    sync.Mutex
	token string
}

var _ session.Authority = (*Authority)(nil)

func New(publicURL string, timeout time.Duration, logger logrus.FieldLogger) *Authority {
	return newAuthority(newSDKFrontend(publicURL, timeout), logger)
}

func newAuthority(api frontend, logger logrus.FieldLogger) *Authority {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Authority{api: api, logger: logger.WithField("authority", "kratos")}
}

func (a *Authority) SignUp(ctx context.Context, email, password, displayName string) (*session.SignUpResult, error) {
	traits := map[string]interface{}{"email": email}
	if displayName = strings.TrimSpace(displayName); displayName != "" {
		traits["name"] = displayName
	}
	res, err := a.api.Register(ctx, traits, password)
	if err != nil {
		return nil, err
	}

	ident := res.Identity
	if ident == nil && res.Session != nil {
		ident = res.Session.Identity
	}
	if ident == nil {
		return nil, errNoIdentity
	}

	active := res.SessionToken != nil && *res.SessionToken != ""
	if active {
		a.setToken(*res.SessionToken)
	}
	return &session.SignUpResult{Principal: principalOf(ident), SessionActive: active}, nil
}

func (a *Authority) SignIn(ctx context.Context, email, password string) (*session.Principal, error) {
	res, err := a.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if res.Session == nil || res.Session.Identity == nil {
		return nil, errNoIdentity
	}
	if res.SessionToken != nil {
		a.setToken(*res.SessionToken)
	}
	return principalOf(res.Session.Identity), nil
}

// SignOut forgets the held token before asking Kratos to revoke it, so a failed
// revoke still leaves this client signed out.
func (a *Authority) SignOut(ctx context.Context) error {
	a.mu.Lock()
	token := a.token
	a.token = ""
	a.mu.Unlock()

	if token == "" {
		return nil
	}
	return a.api.Logout(ctx, token)
}

func (a *Authority) CurrentPrincipal(ctx context.Context) (*session.Principal, error) {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()
	if token == "" {
		return nil, nil
	}

	sess, err := a.api.WhoAmI(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil || (sess.Active != nil && !*sess.Active) || sess.Identity == nil {
		a.mu.Lock()
		if a.token == token {
			a.token = ""
		}
		a.mu.Unlock()
		a.logger.Debug("held session is no longer valid")
		return nil, nil
	}
	return principalOf(sess.Identity), nil
}

func (a *Authority) setToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

// principalOf flattens traits and public metadata into principal metadata. Traits win.
func principalOf(ident *wireIdentity) *session.Principal {
	md := make(map[string]interface{}, len(ident.Traits)+len(ident.MetadataPublic))
	for k, v := range ident.MetadataPublic {
		md[k] = v
	}
	email := ""
	for k, v := range ident.Traits {
		if k == "email" {
			email, _ = v.(string)
			continue
		}
		md[k] = v
	}
	return &session.Principal{ID: ident.ID, Email: email, Metadata: md}
}
