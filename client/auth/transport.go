package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// RoundTripper injects the session's bearer token into outbound MCP requests
// and, on a 401, asks the coordinator to re-authenticate before replaying the
// request once.
type RoundTripper struct {
	client     *Client
	serverName string
	transport  http.RoundTripper
}

// RoundTripper returns a bearer-injecting transport for a server within this
// context.
func (c *Client) RoundTripper(serverName string, base http.RoundTripper) *RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RoundTripper{client: c, serverName: serverName, transport: base}
}

func (t *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	attempt := clone(req)
	if token, err := t.client.Token(ctx, t.serverName); err == nil {
		attempt.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}
	resp, err := t.transport.RoundTrip(attempt)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	resp.Body.Close()

	// 401: drive the coordinator; a Local blocking profile completes the
	// flow here, a Remote one leaves the session pending for the caller.
	session, err := t.client.Connect(ctx, t.serverName)
	if err != nil {
		return nil, err
	}
	token, err := t.client.Token(ctx, t.serverName)
	if err != nil {
		if session.RequiresUserAction() {
			return nil, &PendingAuthorizationError{Challenge: &AuthChallenge{
				ContextID:        session.ContextID,
				ServerName:       session.ServerName,
				AuthorizationURL: session.AuthorizationURL(),
				State:            session.State(),
			}}
		}
		return nil, err
	}
	retry := clone(req)
	retry.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return t.transport.RoundTrip(retry)
}

// PendingAuthorizationError signals that the request cannot proceed until the
// user completes the carried authorization challenge.
type PendingAuthorizationError struct {
	Challenge *AuthChallenge
}

func (e *PendingAuthorizationError) Error() string {
	return "authorization pending: " + e.Challenge.AuthorizationURL
}

// IsPendingAuthorization extracts a pending challenge from an error chain.
func IsPendingAuthorization(err error) (*AuthChallenge, bool) {
	var pendingErr *PendingAuthorizationError
	if errors.As(err, &pendingErr) {
		return pendingErr.Challenge, true
	}
	return nil, false
}

func clone(r *http.Request) *http.Request {
	cloned := r.Clone(r.Context())
	// deep-copy body for idempotent replay
	if r.Body != nil {
		buf, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewBuffer(buf))
		cloned.Body = io.NopCloser(bytes.NewBuffer(buf))
	}
	return cloned
}

// TokenSource adapts the coordinator to golang.org/x/oauth2 consumers.
func (c *Client) TokenSource(ctx context.Context, serverName string) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, client: c, serverName: serverName}
}

type tokenSource struct {
	ctx        context.Context
	client     *Client
	serverName string
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	token, err := s.client.Token(s.ctx, s.serverName)
	if err != nil {
		return nil, err
	}
	return token.OAuth2(), nil
}
