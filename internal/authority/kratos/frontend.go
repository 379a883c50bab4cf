package kratos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	kratos "github.com/ory/kratos-client-go"
	"github.com/rcmarket/marketplace/internal/session"
)

type wireIdentity struct {
	ID             string                 `json:"id"`
	Traits         map[string]interface{} `json:"traits"`
	MetadataPublic map[string]interface{} `json:"metadata_public"`
}

type wireSession struct {
	ID       string        `json:"id"`
	Active   *bool         `json:"active"`
	Identity *wireIdentity `json:"identity"`
}

// nativeResult is the part of a native login or registration response we keep.
type nativeResult struct {
	SessionToken *string       `json:"session_token"`
	Session      *wireSession  `json:"session"`
	Identity     *wireIdentity `json:"identity"`
}

// frontend is the slice of the Kratos public API the authority drives.
type frontend interface {
	Register(ctx context.Context, traits map[string]interface{}, password string) (*nativeResult, error)
	Login(ctx context.Context, identifier, password string) (*nativeResult, error)
	Logout(ctx context.Context, sessionToken string) error
	WhoAmI(ctx context.Context, sessionToken string) (*wireSession, error)
}

type sdkFrontend struct {
	client *kratos.APIClient
}

func newSDKFrontend(publicURL string, timeout time.Duration) *sdkFrontend {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{URL: publicURL},
	}
	configuration.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &sdkFrontend{client: kratos.NewAPIClient(configuration)}
}

func (f *sdkFrontend) Register(ctx context.Context, traits map[string]interface{}, password string) (*nativeResult, error) {
	flow, _, err := f.client.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return nil, apiError("create registration flow", err)
	}

	method := kratos.UpdateRegistrationFlowWithPasswordMethod{
		Method:   "password",
		Password: password,
		Traits:   traits,
	}
	resp, _, err := f.client.FrontendAPI.
		UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(kratos.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&method)).
		Execute()
	if err != nil {
		return nil, apiError("submit registration flow", err)
	}
	var out nativeResult
	if err := recode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *sdkFrontend) Login(ctx context.Context, identifier, password string) (*nativeResult, error) {
	flow, _, err := f.client.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, apiError("create login flow", err)
	}

	method := kratos.UpdateLoginFlowWithPasswordMethod{
		Method:     "password",
		Identifier: identifier,
		Password:   password,
	}
	resp, _, err := f.client.FrontendAPI.
		UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(kratos.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&method)).
		Execute()
	if err != nil {
		return nil, apiError("submit login flow", err)
	}
	var out nativeResult
	if err := recode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *sdkFrontend) Logout(ctx context.Context, sessionToken string) error {
	_, err := f.client.FrontendAPI.
		PerformNativeLogout(ctx).
		PerformNativeLogoutBody(kratos.PerformNativeLogoutBody{SessionToken: sessionToken}).
		Execute()
	if err != nil {
		return apiError("native logout", err)
	}
	return nil
}

// WhoAmI returns nil without error when Kratos reports no valid session.
func (f *sdkFrontend) WhoAmI(ctx context.Context, sessionToken string) (*wireSession, error) {
	sess, resp, err := f.client.FrontendAPI.ToSession(ctx).XSessionToken(sessionToken).Execute()
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, nil
		}
		return nil, apiError("to session", err)
	}
	var out wireSession
	if err := recode(sess, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// recode converts an SDK model into a local wire struct through its JSON form.
func recode(in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode kratos response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode kratos response: %w", err)
	}
	return nil
}

// apiError turns an SDK error into one whose text is Kratos' user-facing message when
// the response body carries one.
func apiError(op string, err error) error {
	var apiErr *kratos.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		if msg := messageFromBody(apiErr.Body()); msg != "" {
			return &rejectionError{msg: msg, op: op, err: err}
		}
	}
	return session.Internal(fmt.Errorf("kratos %s: %w", op, err))
}

type rejectionError struct {
	msg string
	op  string
	err error
}

func (e *rejectionError) Error() string { return e.msg }

func (e *rejectionError) Unwrap() error { return e.err }

type uiText struct {
	Text string `json:"text"`
}

type errorBody struct {
	UI struct {
		Messages []uiText `json:"messages"`
		Nodes    []struct {
			Messages []uiText `json:"messages"`
		} `json:"nodes"`
	} `json:"ui"`
	Error struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// messageFromBody picks the first human-readable message out of a Kratos error body:
// flow-level UI messages, then field messages, then the generic error.
func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	for _, m := range eb.UI.Messages {
		if m.Text != "" {
			return m.Text
		}
	}
	for _, n := range eb.UI.Nodes {
		for _, m := range n.Messages {
			if m.Text != "" {
				return m.Text
			}
		}
	}
	if eb.Error.Reason != "" {
		return eb.Error.Reason
	}
	return eb.Error.Message
}
