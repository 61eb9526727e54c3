// Package meta defines the discovery documents consumed and published by the
// module: RFC 8414 authorization-server metadata, RFC 9728 protected-resource
// metadata and JSON Web Key Sets, together with context-aware fetchers.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Well-known paths for discovery documents.
const (
	AuthorizationServerPath = "/.well-known/oauth-authorization-server"
	ProtectedResourcePath   = "/.well-known/oauth-protected-resource"
)

// AuthorizationServerMetadata is the RFC 8414 discovery document. The
// document is never mutated after fetch.
type AuthorizationServerMetadata struct {
	Issuer                             string   `json:"issuer"`
	AuthorizationEndpoint              string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                      string   `json:"token_endpoint,omitempty"`
	RegistrationEndpoint               string   `json:"registration_endpoint,omitempty"`
	IntrospectionEndpoint              string   `json:"introspection_endpoint,omitempty"`
	RevocationEndpoint                 string   `json:"revocation_endpoint,omitempty"`
	PushedAuthorizationRequestEndpoint string   `json:"pushed_authorization_request_endpoint,omitempty"`
	JSONWebKeySetURI                   string   `json:"jwks_uri,omitempty"`
	GrantTypesSupported                []string `json:"grant_types_supported,omitempty"`
	ResponseTypesSupported             []string `json:"response_types_supported,omitempty"`
	CodeChallengeMethodsSupported      []string `json:"code_challenge_methods_supported,omitempty"`
	ScopesSupported                    []string `json:"scopes_supported,omitempty"`
	TokenEndpointAuthMethodsSupported  []string `json:"token_endpoint_auth_methods_supported,omitempty"`
}

// SupportsGrant reports whether the server advertises the grant type; an
// absent grant_types_supported list implies no statement either way.
func (m *AuthorizationServerMetadata) SupportsGrant(grantType string) bool {
	for _, candidate := range m.GrantTypesSupported {
		if candidate == grantType {
			return true
		}
	}
	return false
}

// ProtectedResourceMetadata is the RFC 9728 document emitted for every
// protected endpoint path.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	JSONWebKeySetURI       string   `json:"jwks_uri,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
}

// JSONWebKey is a single member of a JWKS document.
type JSONWebKey struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`
	// EC
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// JSONWebKeySet is an RFC 7517 key set.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// FetchAuthorizationServerMetadata retrieves the RFC 8414 document for the
// given issuer base URL.
func FetchAuthorizationServerMetadata(ctx context.Context, issuer string, client *http.Client) (*AuthorizationServerMetadata, error) {
	metadataURL := strings.TrimSuffix(issuer, "/") + AuthorizationServerPath
	ret := &AuthorizationServerMetadata{}
	if err := fetchJSON(ctx, metadataURL, client, ret); err != nil {
		return nil, err
	}
	if ret.Issuer == "" {
		return nil, fmt.Errorf("metadata at %s missing issuer", metadataURL)
	}
	return ret, nil
}

// FetchProtectedResourceMetadata retrieves an RFC 9728 document from an
// absolute URL, typically taken from a WWW-Authenticate resource_metadata
// parameter.
func FetchProtectedResourceMetadata(ctx context.Context, metadataURL string, client *http.Client) (*ProtectedResourceMetadata, error) {
	if _, err := url.Parse(metadataURL); err != nil {
		return nil, fmt.Errorf("invalid resource metadata URL %q: %w", metadataURL, err)
	}
	ret := &ProtectedResourceMetadata{}
	if err := fetchJSON(ctx, metadataURL, client, ret); err != nil {
		return nil, err
	}
	if len(ret.AuthorizationServers) == 0 {
		return nil, fmt.Errorf("resource metadata at %s lists no authorization servers", metadataURL)
	}
	return ret, nil
}

// FetchJSONWebKeySet retrieves a JWKS document.
func FetchJSONWebKeySet(ctx context.Context, jwksURI string, client *http.Client) (*JSONWebKeySet, error) {
	ret := &JSONWebKeySet{}
	if err := fetchJSON(ctx, jwksURI, client, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func fetchJSON(ctx context.Context, URL string, client *http.Client, target interface{}) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s returned %d", URL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", URL, err)
	}
	if err = json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("malformed document at %s: %w", URL, err)
	}
	return nil
}
