package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/mcp-auth/client/auth/store"
	"github.com/viant/mcp-auth/oauth"
	"github.com/viant/mcp-auth/oauth/meta"
	"github.com/viant/mcp-auth/oauth/mock"
)

// testEnv wires a mock authorization server and a bearer-protected MCP
// resource server together.
type testEnv struct {
	authServer *mock.HTTPTestAuthorizationServer
	mcpServer  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	authServer, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	env := &testEnv{authServer: authServer}
	env.mcpServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/.well-known/oauth-protected-resource") {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(&meta.ProtectedResourceMetadata{
				Resource:             env.mcpServer.URL + "/",
				AuthorizationServers: []string{authServer.Issuer},
			})
			return
		}
		if r.Header.Get("Authorization") == "" {
			metadataURL := env.mcpServer.URL + "/.well-known/oauth-protected-resource/mcp"
			w.Header().Set("WWW-Authenticate", oauth.BuildChallenge("", "", metadataURL))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(func() {
		env.mcpServer.Close()
		authServer.Close()
	})
	return env
}

func (e *testEnv) config() *Config {
	return &Config{
		ClientName:  "test-agent",
		Servers:     map[string]*ServerConfig{"srv": {URL: e.mcpServer.URL + "/mcp"}},
		RedirectURI: "http://localhost:8080/oauth/callback",
	}
}

// authorize simulates the user approving the authorization request and
// returns the callback parameters.
func (e *testEnv) authorize(t *testing.T, authorizationURL string) map[string]string {
	t.Helper()
	params, err := e.tryAuthorize(authorizationURL)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	return params
}

func (e *testEnv) tryAuthorize(authorizationURL string) (map[string]string, error) {
	client := &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(authorizationURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	location := resp.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("authorize returned no redirect, status %d", resp.StatusCode)
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"code":  parsed.Query().Get("code"),
		"state": parsed.Query().Get("state"),
	}, nil
}

func TestRemote_FullAuthorizationCodeFlow(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()

	// unauthenticated connect yields a pending authorization
	session, err := remote.Connect(context.Background(), "alice", "srv")
	assert.NoError(t, err)
	assert.Equal(t, StatusAuthPending, session.Status())
	assert.True(t, session.RequiresUserAction())

	authorizationURL := session.AuthorizationURL()
	parsed, err := url.Parse(authorizationURL)
	assert.NoError(t, err)
	query := parsed.Query()
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.NotEmpty(t, query.Get("code_challenge"))
	assert.NotEmpty(t, query.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/oauth/callback", query.Get("redirect_uri"))
	assert.Equal(t, env.mcpServer.URL+"/", query.Get("resource"))
	assert.Equal(t, session.State(), query.Get("state"))

	// the pending record holds the verifier bound to the presented challenge
	pending := &store.Pending{}
	ok, err := store.GetJSON(context.Background(), remote.Storage(), store.PendingKey("alice", "srv"), pending)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, query.Get("code_challenge"), oauth.ChallengeS256(pending.Verifier))

	// user completes authorization; callback redeems the code
	params := env.authorize(t, authorizationURL)
	event, err := remote.CompleteAuthorization(context.Background(), params)
	assert.NoError(t, err)
	assert.True(t, event.Success)
	assert.Equal(t, StatusConnected, session.Status())

	token, err := remote.Token(context.Background(), "alice", "srv")
	assert.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)

	// repeat connect now reaches the server
	session, err = remote.Connect(context.Background(), "alice", "srv")
	assert.NoError(t, err)
	assert.Equal(t, StatusConnected, session.Status())
}

func TestRemote_StateSingleUse(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()

	session, err := remote.Connect(context.Background(), "alice", "srv")
	assert.NoError(t, err)
	params := env.authorize(t, session.AuthorizationURL())

	_, err = remote.CompleteAuthorization(context.Background(), params)
	assert.NoError(t, err)

	// replaying the same state is rejected with invalid_request
	_, err = remote.CompleteAuthorization(context.Background(), params)
	var protocolErr *oauth.ProtocolError
	assert.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, "invalid_request", protocolErr.Code)
}

func TestRemote_UserDenied(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()

	var events []*CompletionEvent
	remote.Subscribe(SubscriberFunc(func(event *CompletionEvent) {
		events = append(events, event)
	}))

	session, err := remote.Connect(context.Background(), "alice", "srv")
	assert.NoError(t, err)

	_, err = remote.CompleteAuthorization(context.Background(), map[string]string{
		"state":             session.State(),
		"error":             "access_denied",
		"error_description": "user declined",
	})
	assert.Error(t, err)
	assert.Equal(t, StatusAuthFailed, session.Status())
	if assert.Len(t, events, 1) {
		assert.False(t, events[0].Success)
		assert.Equal(t, "access_denied", events[0].Reason)
	}
	// a failed session may retry
	assert.True(t, session.CanRetry())
}

func TestCoordinator_MultiUserIsolation(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()
	manager := NewClientManager(remote.Coordinator)

	alice := manager.Client("alice")
	bob := manager.Client("bob")

	aliceSession, err := alice.Connect(context.Background(), "srv")
	assert.NoError(t, err)
	bobSession, err := bob.Connect(context.Background(), "srv")
	assert.NoError(t, err)

	// challenges are scoped per context
	aliceChallenges, err := alice.AuthChallenges(context.Background())
	assert.NoError(t, err)
	assert.Len(t, aliceChallenges, 1)
	assert.Equal(t, "alice", aliceChallenges[0].ContextID)
	assert.NotEqual(t, aliceChallenges[0].AuthorizationURL, bobSession.AuthorizationURL())

	_, err = remote.CompleteAuthorization(context.Background(), env.authorize(t, aliceSession.AuthorizationURL()))
	assert.NoError(t, err)
	_, err = remote.CompleteAuthorization(context.Background(), env.authorize(t, bobSession.AuthorizationURL()))
	assert.NoError(t, err)

	// distinct token records under distinct keys
	aliceData, ok, err := remote.Storage().Get(context.Background(), store.TokenKey("alice", "srv"))
	assert.NoError(t, err)
	assert.True(t, ok)
	bobData, ok, err := remote.Storage().Get(context.Background(), store.TokenKey("bob", "srv"))
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, string(aliceData), string(bobData))

	aliceToken, err := alice.Token(context.Background(), "srv")
	assert.NoError(t, err)
	bobToken, err := bob.Token(context.Background(), "srv")
	assert.NoError(t, err)
	assert.NotEqual(t, aliceToken.AccessToken, bobToken.AccessToken)
}

func TestCoordinator_PendingTTL(t *testing.T) {
	env := newTestEnv(t)
	config := env.config()
	config.PendingTTL = 10 * time.Millisecond
	remote, err := NewRemote(config)
	assert.NoError(t, err)
	defer remote.Close()

	var events []*CompletionEvent
	remote.Subscribe(SubscriberFunc(func(event *CompletionEvent) {
		events = append(events, event)
	}))

	session, err := remote.Connect(context.Background(), "alice", "srv")
	assert.NoError(t, err)
	state := session.State()
	params := env.authorize(t, session.AuthorizationURL())

	time.Sleep(20 * time.Millisecond)
	remote.sweep()

	assert.Equal(t, StatusAuthFailed, session.Status())
	if assert.Len(t, events, 1) {
		assert.Equal(t, "timeout", events[0].Reason)
	}
	// the state reverse index is gone; a late callback is invalid_request
	_, ok, err := remote.Storage().Get(context.Background(), store.StateKey(state))
	assert.NoError(t, err)
	assert.False(t, ok)
	_, err = remote.CompleteAuthorization(context.Background(), params)
	var protocolErr *oauth.ProtocolError
	assert.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, "invalid_request", protocolErr.Code)
}

func TestCoordinator_Cancel(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()

	session, err := remote.Connect(context.Background(), "alice", "srv")
	assert.NoError(t, err)
	assert.NoError(t, remote.CancelAuthorization(context.Background(), "alice", "srv"))
	assert.Equal(t, StatusAuthFailed, session.Status())
	assert.EqualError(t, session.LastError(), "cancelled")

	_, ok, err := remote.Storage().Get(context.Background(), store.PendingKey("alice", "srv"))
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCoordinator_RegistrationCachedPerZone(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()

	first, err := remote.Connect(context.Background(), "alice", "srv")
	assert.NoError(t, err)
	second, err := remote.Connect(context.Background(), "bob", "srv")
	assert.NoError(t, err)

	firstID := url.Values{}
	secondID := url.Values{}
	if parsed, err := url.Parse(first.AuthorizationURL()); err == nil {
		firstID = parsed.Query()
	}
	if parsed, err := url.Parse(second.AuthorizationURL()); err == nil {
		secondID = parsed.Query()
	}
	// one registration per (zone, app name), shared across contexts
	assert.Equal(t, firstID.Get("client_id"), secondID.Get("client_id"))

	registered := &oauth.RegisteredClient{}
	zoneKey := (&oauth.Zone{URL: env.authServer.Issuer}).Key()
	ok, err := store.GetJSON(context.Background(), remote.Storage(), store.ClientKey(zoneKey, "test-agent"), registered)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, firstID.Get("client_id"), registered.ClientID)
}

func TestCoordinator_TokenRefresh(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()

	// seed an expired record carrying a refresh token
	expired := &storedToken{
		Token: oauth.Token{
			AccessToken:  "stale",
			TokenType:    "Bearer",
			RefreshToken: "refresh_1",
			ExpiresAt:    time.Now().Add(-time.Minute),
		},
		Issuer: env.authServer.Issuer,
	}
	key := store.TokenKey("alice", "srv")
	assert.NoError(t, store.SetJSON(context.Background(), remote.Storage(), key, expired))

	refreshed, err := remote.Token(context.Background(), "alice", "srv")
	assert.NoError(t, err)
	assert.NotEqual(t, "stale", refreshed.AccessToken)
	assert.True(t, refreshed.Valid())

	// the stored record was replaced, not mutated
	record := &storedToken{}
	ok, err := store.GetJSON(context.Background(), remote.Storage(), key, record)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, refreshed.AccessToken, record.AccessToken)
}

func TestCoordinator_ExpiredTokenWithoutRefresh(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()

	expired := &storedToken{
		Token: oauth.Token{
			AccessToken: "stale",
			TokenType:   "Bearer",
			ExpiresAt:   time.Now().Add(-time.Minute),
		},
		Issuer: env.authServer.Issuer,
	}
	key := store.TokenKey("alice", "srv")
	assert.NoError(t, store.SetJSON(context.Background(), remote.Storage(), key, expired))

	_, err = remote.Token(context.Background(), "alice", "srv")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	// the expired record was lazily discarded
	_, ok, err := remote.Storage().Get(context.Background(), key)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCoordinator_ConnectionFailed(t *testing.T) {
	env := newTestEnv(t)
	config := env.config()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	config.Servers["down"] = &ServerConfig{URL: failing.URL}

	remote, err := NewRemote(config)
	assert.NoError(t, err)
	defer remote.Close()

	session, err := remote.Connect(context.Background(), "alice", "down")
	assert.Error(t, err)
	assert.Equal(t, StatusConnectionFailed, session.Status())
	assert.True(t, session.CanRetry())
}

func TestRemote_CallbackHandler(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()

	session, err := remote.Connect(context.Background(), "alice", "srv")
	assert.NoError(t, err)
	params := env.authorize(t, session.AuthorizationURL())

	handler := remote.CallbackHandler()
	request := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/oauth/callback?code=%s&state=%s", params["code"], params["state"]), nil)
	recorder := httptest.NewRecorder()
	handler(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"complete"`)

	// replay yields a 4xx JSON document
	recorder = httptest.NewRecorder()
	handler(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "invalid_request")
}
