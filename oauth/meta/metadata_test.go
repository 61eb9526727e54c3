package meta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchAuthorizationServerMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, AuthorizationServerPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"issuer":                   "https://zone.example",
			"token_endpoint":           "https://zone.example/oauth2/token",
			"jwks_uri":                 "https://zone.example/jwks",
			"grant_types_supported":    []string{"authorization_code", "urn:ietf:params:oauth:grant-type:token-exchange"},
			"scopes_supported":         []string{"openid"},
			"response_types_supported": []string{"code"},
		})
	}))
	defer server.Close()

	document, err := FetchAuthorizationServerMetadata(context.Background(), server.URL, nil)
	assert.NoError(t, err)
	assert.Equal(t, "https://zone.example", document.Issuer)
	assert.Equal(t, "https://zone.example/jwks", document.JSONWebKeySetURI)
	assert.True(t, document.SupportsGrant("urn:ietf:params:oauth:grant-type:token-exchange"))
	assert.False(t, document.SupportsGrant("password"))
}

func TestFetchAuthorizationServerMetadata_MissingIssuer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()
	_, err := FetchAuthorizationServerMetadata(context.Background(), server.URL, nil)
	assert.Error(t, err)
}

func TestFetchProtectedResourceMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&ProtectedResourceMetadata{
			Resource:             "http://srv:8000/",
			AuthorizationServers: []string{"https://zone.example"},
		})
	}))
	defer server.Close()

	document, err := FetchProtectedResourceMetadata(context.Background(), server.URL+"/.well-known/oauth-protected-resource/mcp", nil)
	assert.NoError(t, err)
	assert.Equal(t, "http://srv:8000/", document.Resource)
	assert.Equal(t, []string{"https://zone.example"}, document.AuthorizationServers)
}

func TestFetchProtectedResourceMetadata_NoAuthorizationServers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resource":"http://srv:8000/"}`))
	}))
	defer server.Close()
	_, err := FetchProtectedResourceMetadata(context.Background(), server.URL, nil)
	assert.Error(t, err)
}

func TestFetchMalformedDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()
	_, err := FetchAuthorizationServerMetadata(context.Background(), server.URL, nil)
	assert.Error(t, err)
}
