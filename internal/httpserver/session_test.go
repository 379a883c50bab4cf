package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rcmarket/marketplace/internal/domain"
	"github.com/rcmarket/marketplace/internal/session"
)

func TestLoginHandler_Success(t *testing.T) {
	sess := &stubSession{}
	router := newTestRouter(t, fullDeps(sess))

	rec := do(router, http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"Abcdefg1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"email":"user@example.com"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestLoginHandler_Rejected(t *testing.T) {
	sess := &stubSession{loginErr: &session.AuthError{Message: "Invalid login credentials"}}
	router := newTestRouter(t, fullDeps(sess))

	rec := do(router, http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"bad"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["error"]; got != "Invalid login credentials" {
		t.Fatalf("expected authority message verbatim, got %v", got)
	}
}

func TestLoginHandler_InternalFault(t *testing.T) {
	fault := session.Internal(errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	sess := &stubSession{loginErr: &session.AuthError{Message: "an error occurred", Err: fault}}
	router := newTestRouter(t, fullDeps(sess))

	rec := do(router, http.MethodPost, "/auth/login", `{"email":"user@example.com","password":"Abcdefg1"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["error"]; got != "an error occurred" {
		t.Fatalf("expected generic message, got %v", got)
	}
}

func TestLoginHandler_MissingFields(t *testing.T) {
	router := newTestRouter(t, fullDeps(&stubSession{}))
	rec := do(router, http.MethodPost, "/auth/login", `{"email":"user@example.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterHandler(t *testing.T) {
	router := newTestRouter(t, fullDeps(&stubSession{}))
	rec := do(router, http.MethodPost, "/auth/register", `{"name":"Ann","email":"ann@example.com","password":"Abcdefg1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"needsEmailConfirmation":false`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRegisterHandler_AuthorityError(t *testing.T) {
	sess := &stubSession{registerErr: &session.AuthError{Message: "User already registered"}}
	router := newTestRouter(t, fullDeps(sess))
	rec := do(router, http.MethodPost, "/auth/register", `{"email":"ann@example.com","password":"Abcdefg1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "User already registered" {
		t.Fatalf("unexpected message %v", got)
	}
}

func TestLogoutHandler(t *testing.T) {
	sess := &stubSession{identity: &domain.Identity{ID: "u1", Email: "a@b.c"}}
	router := newTestRouter(t, fullDeps(sess))

	rec := do(router, http.MethodPost, "/auth/logout", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !sess.loggedOut {
		t.Fatalf("expected logout to reach the session")
	}
}

func TestMeHandler_Unauthorized(t *testing.T) {
	router := newTestRouter(t, fullDeps(&stubSession{}))
	rec := do(router, http.MethodGet, "/me", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestMeHandler_Success(t *testing.T) {
	sess := &stubSession{identity: &domain.Identity{ID: "u1", Email: "me@example.com", Name: "me"}}
	router := newTestRouter(t, fullDeps(sess))
	rec := do(router, http.MethodGet, "/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"email":"me@example.com"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUpdateMeHandler(t *testing.T) {
	sess := &stubSession{identity: &domain.Identity{ID: "u1", Email: "me@example.com", Name: "me"}}
	router := newTestRouter(t, fullDeps(sess))
	rec := do(router, http.MethodPatch, "/me", `{"location":"Pune"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["location"]; got != "Pune" {
		t.Fatalf("expected merged location, got %v", got)
	}
}

func TestUpdateMeHandler_NotLoggedIn(t *testing.T) {
	router := newTestRouter(t, fullDeps(&stubSession{}))
	rec := do(router, http.MethodPatch, "/me", `{"name":"x"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestChangePasswordHandler(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "not implemented", err: session.ErrPasswordChangeNotImplemented, want: http.StatusNotImplemented},
		{name: "wrong current password", err: session.ErrCurrentPasswordIncorrect, want: http.StatusBadRequest},
		{name: "no session", err: session.ErrNotLoggedIn, want: http.StatusUnauthorized},
		{name: "unexpected", err: &session.AuthError{Message: "an error occurred"}, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, fullDeps(&stubSession{passwordErr: tc.err}))
			rec := do(router, http.MethodPost, "/auth/password", `{"currentPassword":"old","newPassword":"NewPass1"}`)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSessionState(t *testing.T) {
	sess := &stubSession{}
	router := newTestRouter(t, fullDeps(sess))

	rec := do(router, http.MethodGet, "/session", "")
	if body := decodeBody(t, rec); body["authenticated"] != false || body["user"] != nil {
		t.Fatalf("expected anonymous snapshot, got %v", body)
	}

	sess.identity = &domain.Identity{ID: "u1", Email: "a@b.c", Name: "a"}
	rec = do(router, http.MethodPost, "/session/refresh", "")
	if body := decodeBody(t, rec); body["authenticated"] != true {
		t.Fatalf("expected authenticated snapshot, got %v", body)
	}
	if sess.resolved != 1 {
		t.Fatalf("expected one resolve, got %d", sess.resolved)
	}
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed chan struct{}
}

func (r *flushRecorder) Flush() {
	r.ResponseRecorder.Flush()
	r.flushed <- struct{}{}
}

func waitFlush(t *testing.T, rec *flushRecorder) {
	t.Helper()
	select {
	case <-rec.flushed:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not flush")
	}
}

func TestSessionEvents_StreamsChangesAndUnsubscribes(t *testing.T) {
	sess := &stubSession{
		subscribed:  make(chan struct{}),
		unsubscribe: make(chan struct{}),
	}
	router := newTestRouter(t, fullDeps(sess))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/session/events", nil).WithContext(ctx)
	rec := &flushRecorder{ResponseRecorder: httptest.NewRecorder(), flushed: make(chan struct{}, 4)}
	done := make(chan struct{})
	go func() {
		router.ServeHTTP(rec, req)
		close(done)
	}()

	select {
	case <-sess.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream never subscribed")
	}
	waitFlush(t, rec)

	sess.mu.Lock()
	notify := sess.notify
	sess.mu.Unlock()
	notify(session.ChangeTopic)
	waitFlush(t, rec)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not end after cancel")
	}
	select {
	case <-sess.unsubscribe:
	default:
		t.Fatalf("expected unsubscribe on disconnect")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event:ready") {
		t.Fatalf("expected ready event, got %q", body)
	}
	if !strings.Contains(body, "event:"+session.ChangeTopic+"\ndata:"+session.ChangeTopic) {
		t.Fatalf("expected payload-free change event, got %q", body)
	}
	if strings.Contains(body, "email") {
		t.Fatalf("events must not carry identity data: %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}
}
