package auth

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/mcp-auth/client/auth/store"
	"github.com/viant/mcp-auth/oauth"
)

func TestRoundTripper_InjectsBearer(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()
	manager := NewClientManager(remote.Coordinator)
	alice := manager.Client("alice")

	// seed a valid token so the transport can attach it
	record := &storedToken{
		Token: oauth.Token{
			AccessToken: "T1",
			TokenType:   "Bearer",
			ExpiresAt:   time.Now().Add(time.Hour),
		},
		Issuer: env.authServer.Issuer,
	}
	assert.NoError(t, store.SetJSON(context.Background(), remote.Storage(), store.TokenKey("alice", "srv"), record))

	httpClient := &http.Client{Transport: alice.RoundTripper("srv", nil)}
	resp, err := httpClient.Get(env.mcpServer.URL + "/mcp")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ok")
}

func TestRoundTripper_PendingAuthorization(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()
	manager := NewClientManager(remote.Coordinator)
	alice := manager.Client("alice")

	httpClient := &http.Client{Transport: alice.RoundTripper("srv", nil)}
	_, err = httpClient.Get(env.mcpServer.URL + "/mcp")
	assert.Error(t, err)
	challenge, ok := IsPendingAuthorization(err)
	assert.True(t, ok)
	if assert.NotNil(t, challenge) {
		assert.Equal(t, "alice", challenge.ContextID)
		assert.NotEmpty(t, challenge.AuthorizationURL)
	}
}

func TestTokenSource(t *testing.T) {
	env := newTestEnv(t)
	remote, err := NewRemote(env.config())
	assert.NoError(t, err)
	defer remote.Close()
	manager := NewClientManager(remote.Coordinator)
	alice := manager.Client("alice")

	record := &storedToken{
		Token: oauth.Token{
			AccessToken: "T1",
			TokenType:   "Bearer",
			ExpiresAt:   time.Now().Add(time.Hour),
		},
		Issuer: env.authServer.Issuer,
	}
	assert.NoError(t, store.SetJSON(context.Background(), remote.Storage(), store.TokenKey("alice", "srv"), record))

	source := alice.TokenSource(context.Background(), "srv")
	token, err := source.Token()
	assert.NoError(t, err)
	assert.Equal(t, "T1", token.AccessToken)
	assert.True(t, token.Valid())
}
