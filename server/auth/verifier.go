package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viant/mcp-auth/oauth"
	"github.com/viant/mcp-auth/oauth/meta"
)

// Claims is the validated projection of an inbound access token.
type Claims struct {
	Issuer    string
	Subject   string
	ClientID  string
	Audience  []string
	Scope     string
	ExpiresAt time.Time
	// DelegationChain mirrors the act claim chain verbatim when present.
	DelegationChain interface{}
	Raw             jwt.MapClaims
}

// Scopes splits the space-delimited scope claim.
func (c *Claims) Scopes() []string {
	if c.Scope == "" {
		return nil
	}
	return strings.Fields(c.Scope)
}

// Verifier validates JWT bearer tokens issued by a zone for one resource.
type Verifier struct {
	issuer         string
	resource       string
	skew           time.Duration
	requiredScopes []string
	httpClient     *http.Client
	cache          *jwksCache
	parser         *jwt.Parser

	mux     sync.Mutex
	jwksURI string
}

// NewVerifier creates a verifier for the configured zone issuer and resource
// URL. The jwksURI may be empty; it is then discovered from the zone's
// RFC 8414 document on first use.
func NewVerifier(issuer, resource, jwksURI string, skew, cacheTTL time.Duration, httpClient *http.Client) *Verifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if skew <= 0 || skew > maxClockSkew {
		skew = maxClockSkew
	}
	return &Verifier{
		issuer:     strings.TrimSuffix(issuer, "/"),
		resource:   resource,
		skew:       skew,
		httpClient: httpClient,
		cache:      newJWKSCache(cacheTTL, httpClient),
		jwksURI:    jwksURI,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}),
			jwt.WithLeeway(skew),
			jwt.WithExpirationRequired(),
		),
	}
}

// WithRequiredScopes makes validation demand every listed scope.
func (v *Verifier) WithRequiredScopes(scopes ...string) *Verifier {
	v.requiredScopes = scopes
	return v
}

// VerifyToken parses and validates a bearer token: signature via the zone
// JWKS, issuer, audience (must contain the resource URL), expiry and
// not-before with the configured skew.
func (v *Verifier) VerifyToken(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, &oauth.AuthenticationError{Reason: "missing token"}
	}
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token header missing kid")
		}
		jwksURI, err := v.resolveJWKSURI(ctx)
		if err != nil {
			return nil, err
		}
		return v.cache.Key(ctx, jwksURI, kid)
	})
	if err != nil || !token.Valid {
		return nil, &oauth.AuthenticationError{Reason: "invalid_token", Err: err}
	}
	issuer, _ := claims.GetIssuer()
	if strings.TrimSuffix(issuer, "/") != v.issuer {
		return nil, &oauth.AuthenticationError{Reason: "invalid_token", Err: fmt.Errorf("issuer %q not trusted", issuer)}
	}
	audience, _ := claims.GetAudience()
	if !containsAudience(audience, v.resource) {
		return nil, &oauth.AuthenticationError{Reason: "invalid_token", Err: fmt.Errorf("token audience does not include %q", v.resource)}
	}
	scope, _ := claims["scope"].(string)
	if err := v.checkScopes(scope); err != nil {
		return nil, err
	}
	ret := &Claims{
		Issuer:          issuer,
		Audience:        audience,
		Scope:           scope,
		DelegationChain: claims["act"],
		Raw:             claims,
	}
	ret.Subject, _ = claims.GetSubject()
	ret.ClientID, _ = claims["client_id"].(string)
	if expiry, err := claims.GetExpirationTime(); err == nil && expiry != nil {
		ret.ExpiresAt = expiry.Time
	}
	return ret, nil
}

func (v *Verifier) checkScopes(scope string) error {
	if len(v.requiredScopes) == 0 {
		return nil
	}
	granted := map[string]bool{}
	for _, value := range strings.Fields(scope) {
		granted[value] = true
	}
	for _, required := range v.requiredScopes {
		if !granted[required] {
			return &oauth.AuthenticationError{Reason: "insufficient_scope", Err: fmt.Errorf("missing scope %q", required)}
		}
	}
	return nil
}

// resolveJWKSURI discovers the jwks_uri from the zone metadata when not
// explicitly configured.
func (v *Verifier) resolveJWKSURI(ctx context.Context) (string, error) {
	v.mux.Lock()
	defer v.mux.Unlock()
	if v.jwksURI != "" {
		return v.jwksURI, nil
	}
	document, err := meta.FetchAuthorizationServerMetadata(ctx, v.issuer, v.httpClient)
	if err != nil {
		return "", err
	}
	if document.JSONWebKeySetURI == "" {
		return "", fmt.Errorf("zone %s metadata missing jwks_uri", v.issuer)
	}
	v.jwksURI = document.JSONWebKeySetURI
	return v.jwksURI, nil
}

// containsAudience matches the resource URL exactly, ignoring a single
// trailing slash difference.
func containsAudience(audience []string, resource string) bool {
	normalized := strings.TrimSuffix(resource, "/")
	for _, candidate := range audience {
		if strings.TrimSuffix(candidate, "/") == normalized {
			return true
		}
	}
	return false
}
