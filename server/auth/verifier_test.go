package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/mcp-auth/oauth"
	"github.com/viant/mcp-auth/oauth/mock"
)

func newTestVerifier(t *testing.T, server *mock.HTTPTestAuthorizationServer, resource string, skew time.Duration) *Verifier {
	t.Helper()
	return NewVerifier(server.Issuer, resource, server.Issuer+"/jwks", skew, 15*time.Minute, nil)
}

func TestVerifier_ValidToken(t *testing.T) {
	server, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer server.Close()

	verifier := newTestVerifier(t, server, "http://srv:8000/", time.Minute)
	raw, err := server.MintToken("alice", "http://srv:8000/", time.Hour)
	assert.NoError(t, err)

	claims, err := verifier.VerifyToken(context.Background(), raw)
	assert.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, server.Issuer, claims.Issuer)
	assert.Contains(t, claims.Audience, "http://srv:8000/")
}

func TestVerifier_ExpiredToken(t *testing.T) {
	server, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer server.Close()

	verifier := newTestVerifier(t, server, "http://srv:8000/", time.Minute)

	// exp = now - 120 with clock_skew = 60 must be rejected
	raw, err := server.MintToken("alice", "http://srv:8000/", -2*time.Minute)
	assert.NoError(t, err)
	_, err = verifier.VerifyToken(context.Background(), raw)
	var authErr *oauth.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid_token", authErr.Reason)
}

func TestVerifier_ClockSkewTolerance(t *testing.T) {
	server, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer server.Close()

	verifier := newTestVerifier(t, server, "http://srv:8000/", time.Minute)

	// expired by less than the skew still validates
	raw, err := server.MintToken("alice", "http://srv:8000/", -30*time.Second)
	assert.NoError(t, err)
	_, err = verifier.VerifyToken(context.Background(), raw)
	assert.NoError(t, err)
}

func TestVerifier_AudienceIsolation(t *testing.T) {
	server, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer server.Close()

	// token issued for resource R validates only against R's verifier
	raw, err := server.MintToken("alice", "https://a.example", time.Hour)
	assert.NoError(t, err)

	verifierA := newTestVerifier(t, server, "https://a.example", time.Minute)
	_, err = verifierA.VerifyToken(context.Background(), raw)
	assert.NoError(t, err)

	verifierB := newTestVerifier(t, server, "https://b.example", time.Minute)
	_, err = verifierB.VerifyToken(context.Background(), raw)
	var authErr *oauth.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestVerifier_UntrustedIssuer(t *testing.T) {
	server, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer server.Close()
	other, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer other.Close()

	// signed by another zone's key: signature lookup fails against our JWKS
	raw, err := other.MintToken("alice", "http://srv:8000/", time.Hour)
	assert.NoError(t, err)
	verifier := newTestVerifier(t, server, "http://srv:8000/", time.Minute)
	_, err = verifier.VerifyToken(context.Background(), raw)
	var authErr *oauth.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestVerifier_RequiredScopes(t *testing.T) {
	server, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer server.Close()

	verifier := newTestVerifier(t, server, "http://srv:8000/", time.Minute).WithRequiredScopes("read")
	raw, err := server.MintTokenWithClaims("alice", "http://srv:8000/", time.Hour, map[string]interface{}{"scope": "read write"})
	assert.NoError(t, err)
	claims, err := verifier.VerifyToken(context.Background(), raw)
	assert.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, claims.Scopes())

	raw, err = server.MintTokenWithClaims("alice", "http://srv:8000/", time.Hour, map[string]interface{}{"scope": "write"})
	assert.NoError(t, err)
	_, err = verifier.VerifyToken(context.Background(), raw)
	var authErr *oauth.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, "insufficient_scope", authErr.Reason)
}

func TestVerifier_DelegationChain(t *testing.T) {
	server, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer server.Close()

	chain := map[string]interface{}{"sub": "mcp-server", "act": map[string]interface{}{"sub": "gateway"}}
	raw, err := server.MintTokenWithClaims("alice", "http://srv:8000/", time.Hour, map[string]interface{}{"act": chain})
	assert.NoError(t, err)

	verifier := newTestVerifier(t, server, "http://srv:8000/", time.Minute)
	claims, err := verifier.VerifyToken(context.Background(), raw)
	assert.NoError(t, err)
	assert.NotNil(t, claims.DelegationChain)
	actual, ok := claims.DelegationChain.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "mcp-server", actual["sub"])
}

func TestJWKSCache_RefreshCoalescing(t *testing.T) {
	server, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer server.Close()

	var fetches int32
	upstream, _ := url.Parse(server.Issuer)
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		time.Sleep(200 * time.Millisecond) // keep the fetch in flight while readers pile up
		proxy.ServeHTTP(w, r)
	}))
	defer counting.Close()

	cache := newJWKSCache(15*time.Minute, nil)
	jwksURI := counting.URL + "/jwks"

	var wg sync.WaitGroup
	start := make(chan struct{})
	readers := 16
	errs := make([]error, readers)
	for i := 0; i < readers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = cache.Key(context.Background(), jwksURI, server.KeyID)
		}()
	}
	close(start)
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	// N concurrent readers observing the same unknown kid coalesce to one fetch
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestJWKSCache_UnknownKid(t *testing.T) {
	server, err := mock.NewHTTPTestAuthorizationServer()
	if err != nil {
		t.Fatalf("failed to create mock server: %v", err)
	}
	defer server.Close()

	cache := newJWKSCache(15*time.Minute, nil)
	_, err = cache.Key(context.Background(), server.Issuer+"/jwks", "no_such_kid")
	if err == nil {
		t.Fatal("expected unknown kid to fail after one forced refresh")
	}
	assert.Contains(t, err.Error(), "no_such_kid")
}
