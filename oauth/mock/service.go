// Package mock provides a test double for an OAuth 2.0 authorization server
// covering the endpoints this module consumes: metadata discovery, authorize
// with PKCE, token (authorization-code, refresh, client-credentials and
// RFC 8693 exchange), RFC 7591 registration, introspection, revocation and
// RFC 9126 pushed authorization requests.
package mock

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
)

// issuedCode tracks a single-use authorization code and its PKCE binding.
type issuedCode struct {
	clientID      string
	redirectURI   string
	codeChallenge string
	resource      string
	used          bool
}

// AuthorizationService simulates an OAuth 2.0 authorization server.
type AuthorizationService struct {
	PrivateKey       *rsa.PrivateKey
	KeyID            string
	Issuer           string
	ClientID         string
	ClientSecret     string
	AuthorizedScopes []string

	// DeniedResources maps a resource to the protocol error code returned by
	// token exchange, e.g. "invalid_target".
	DeniedResources map[string]string
	// FailTokenWith, when non-zero, makes the token endpoint return this
	// HTTP status (with a plain body) until the counter drains.
	FailTokenWith  int
	FailTokenTimes int

	mux        sync.Mutex
	codes      map[string]*issuedCode
	registered map[string]string // client_id -> client_secret
	revoked    map[string]bool
	pushed     map[string]map[string][]string
	counter    int
}

// Option mutates a service during construction.
type Option func(*AuthorizationService)

// WithClient sets the pre-provisioned confidential client.
func WithClient(id, secret string) Option {
	return func(s *AuthorizationService) {
		s.ClientID = id
		s.ClientSecret = secret
	}
}

// WithDeniedResource makes token exchange fail for resource with the code.
func WithDeniedResource(resource, errorCode string) Option {
	return func(s *AuthorizationService) {
		s.DeniedResources[resource] = errorCode
	}
}

// NewAuthorizationService creates a mock server with a fresh RSA signing key.
func NewAuthorizationService(options ...Option) (*AuthorizationService, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %v", err)
	}
	kidBytes := make([]byte, 8)
	_, _ = rand.Read(kidBytes)
	service := &AuthorizationService{
		PrivateKey:       privateKey,
		KeyID:            base64.RawURLEncoding.EncodeToString(kidBytes),
		ClientID:         "test_client_id",
		ClientSecret:     "test_client_secret",
		AuthorizedScopes: []string{"openid", "profile", "email"},
		DeniedResources:  map[string]string{},
		codes:            map[string]*issuedCode{},
		registered:       map[string]string{},
		revoked:          map[string]bool{},
		pushed:           map[string]map[string][]string{},
	}
	for _, option := range options {
		option(service)
	}
	return service, nil
}

// Register registers HTTP handlers for all mock endpoints onto the mux.
func (m *AuthorizationService) Register(mux *http.ServeMux) {
	mux.HandleFunc("/.well-known/oauth-authorization-server", m.metadataHandler)
	mux.HandleFunc("/authorize", m.authorizeHandler)
	mux.HandleFunc("/token", m.tokenHandler)
	mux.HandleFunc("/register", m.registerHandler)
	mux.HandleFunc("/introspect", m.introspectHandler)
	mux.HandleFunc("/revoke", m.revokeHandler)
	mux.HandleFunc("/par", m.parHandler)
	mux.HandleFunc("/jwks", m.jwksHandler)
}

// Handler returns an http.Handler for all mock endpoints.
func (m *AuthorizationService) Handler() http.Handler {
	mux := http.NewServeMux()
	m.Register(mux)
	return mux
}

func (m *AuthorizationService) nextID(prefix string) string {
	m.counter++
	return fmt.Sprintf("%s_%d", prefix, m.counter)
}

// validClient reports whether the presented credentials match the
// pre-provisioned client or a dynamically registered one.
func (m *AuthorizationService) validClient(id, secret string) bool {
	if id == m.ClientID && secret == m.ClientSecret {
		return true
	}
	registeredSecret, ok := m.registered[id]
	return ok && registeredSecret == secret
}

// knownClient reports whether the client id exists (public clients included).
func (m *AuthorizationService) knownClient(id string) bool {
	if id == m.ClientID {
		return true
	}
	_, ok := m.registered[id]
	return ok
}
