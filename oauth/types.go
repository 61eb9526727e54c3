package oauth

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// RFC 8693 Section 3 token type identifiers.
const (
	TokenTypeAccessToken  = "urn:ietf:params:oauth:token-type:access_token"
	TokenTypeRefreshToken = "urn:ietf:params:oauth:token-type:refresh_token"
	TokenTypeIDToken      = "urn:ietf:params:oauth:token-type:id_token"
	TokenTypeJWT          = "urn:ietf:params:oauth:token-type:jwt"
)

// Grant type identifiers used by the token endpoint.
const (
	GrantTokenExchange     = "urn:ietf:params:oauth:grant-type:token-exchange"
	GrantAuthorizationCode = "authorization_code"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

// Token is an immutable access-token record. A refreshed or re-exchanged
// token replaces the record, it never mutates it.
type Token struct {
	AccessToken     string    `json:"access_token"`
	TokenType       string    `json:"token_type"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
	Scope           string    `json:"scope,omitempty"`
	Resource        string    `json:"resource,omitempty"`
	IssuedTokenType string    `json:"issued_token_type,omitempty"`
}

// Valid reports whether the token is usable now.
func (t *Token) Valid() bool {
	return t != nil && t.AccessToken != "" && !t.Expired(0)
}

// Expired reports whether the token expires within the given margin. A zero
// ExpiresAt means the server did not bound the lifetime.
func (t *Token) Expired(margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(t.ExpiresAt) <= margin
}

// OAuth2 converts the record for use with golang.org/x/oauth2 consumers.
func (t *Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}

// tokenResponse is the wire form of a token endpoint response.
type tokenResponse struct {
	AccessToken     string `json:"access_token"`
	TokenType       string `json:"token_type"`
	ExpiresIn       int    `json:"expires_in"`
	RefreshToken    string `json:"refresh_token"`
	Scope           string `json:"scope"`
	IssuedTokenType string `json:"issued_token_type"`
}

func (r *tokenResponse) token(resource string) *Token {
	ret := &Token{
		AccessToken:     r.AccessToken,
		TokenType:       r.TokenType,
		RefreshToken:    r.RefreshToken,
		Scope:           r.Scope,
		Resource:        resource,
		IssuedTokenType: r.IssuedTokenType,
	}
	if ret.TokenType == "" {
		ret.TokenType = "Bearer"
	}
	if r.ExpiresIn > 0 {
		ret.ExpiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return ret
}

// ExchangeRequest carries RFC 8693 token-exchange parameters. When both
// Resource and Audience are set both are sent verbatim and the authorization
// server chooses.
type ExchangeRequest struct {
	SubjectToken       string
	SubjectTokenType   string
	ActorToken         string
	ActorTokenType     string
	Resource           string
	Audience           string
	Scope              string
	RequestedTokenType string
}

func (r *ExchangeRequest) values() (url.Values, error) {
	if r.SubjectToken == "" {
		return nil, NewConfigError("token exchange requires subject token")
	}
	values := url.Values{}
	values.Set("grant_type", GrantTokenExchange)
	values.Set("subject_token", r.SubjectToken)
	subjectType := r.SubjectTokenType
	if subjectType == "" {
		subjectType = TokenTypeAccessToken
	}
	values.Set("subject_token_type", subjectType)
	if r.ActorToken != "" {
		values.Set("actor_token", r.ActorToken)
		actorType := r.ActorTokenType
		if actorType == "" {
			actorType = TokenTypeAccessToken
		}
		values.Set("actor_token_type", actorType)
	}
	if r.Resource != "" {
		values.Set("resource", r.Resource)
	}
	if r.Audience != "" {
		values.Set("audience", r.Audience)
	}
	if r.Scope != "" {
		values.Set("scope", r.Scope)
	}
	if r.RequestedTokenType != "" {
		values.Set("requested_token_type", r.RequestedTokenType)
	}
	return values, nil
}

// CodeExchangeRequest redeems an authorization code, optionally with a PKCE
// verifier and an RFC 8707 resource indicator.
type CodeExchangeRequest struct {
	Code         string
	CodeVerifier string
	RedirectURI  string
	ClientID     string
	Resource     string
}

func (r *CodeExchangeRequest) values() (url.Values, error) {
	if r.Code == "" {
		return nil, NewConfigError("authorization code exchange requires code")
	}
	values := url.Values{}
	values.Set("grant_type", GrantAuthorizationCode)
	values.Set("code", r.Code)
	if r.CodeVerifier != "" {
		values.Set("code_verifier", r.CodeVerifier)
	}
	if r.RedirectURI != "" {
		values.Set("redirect_uri", r.RedirectURI)
	}
	if r.ClientID != "" {
		values.Set("client_id", r.ClientID)
	}
	if r.Resource != "" {
		values.Set("resource", r.Resource)
	}
	return values, nil
}

// RegisterRequest carries RFC 7591 client metadata.
type RegisterRequest struct {
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
	JWKSURL                 string   `json:"jwks_uri,omitempty"`
}

// RegisteredClient is the RFC 7591 registration response. The secret is
// redacted from String() so records can be logged safely.
type RegisteredClient struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at,omitempty"`
	ClientSecretExpiresAt   int64    `json:"client_secret_expires_at,omitempty"`
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
	JWKSURL                 string   `json:"jwks_uri,omitempty"`
}

func (c *RegisteredClient) String() string {
	secret := ""
	if c.ClientSecret != "" {
		secret = " secret=[redacted]"
	}
	return "client " + c.ClientID + secret
}

// Introspection is the RFC 7662 response; Raw preserves vendor extensions.
type Introspection struct {
	Active    bool     `json:"active"`
	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	Audience  audience `json:"aud,omitempty"`
	Issuer    string   `json:"iss,omitempty"`
	ExpiresAt int64    `json:"exp,omitempty"`
	IssuedAt  int64    `json:"iat,omitempty"`
	NotBefore int64    `json:"nbf,omitempty"`
	JTI       string   `json:"jti,omitempty"`

	Raw map[string]interface{} `json:"-"`
}

// audience accepts both the string and the array JSON form of aud.
type audience []string

func (a *audience) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*a = audience{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = many
	return nil
}

// AuthorizationRequest carries the authorization-endpoint parameters used to
// build an authorization URL or an RFC 9126 pushed authorization request.
type AuthorizationRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Resource            string
}

func (r *AuthorizationRequest) values() (url.Values, error) {
	if r.ClientID == "" {
		return nil, NewConfigError("authorization request requires client id")
	}
	values := url.Values{}
	values.Set("client_id", r.ClientID)
	responseType := r.ResponseType
	if responseType == "" {
		responseType = "code"
	}
	values.Set("response_type", responseType)
	if r.RedirectURI != "" {
		values.Set("redirect_uri", r.RedirectURI)
	}
	if r.Scope != "" {
		values.Set("scope", r.Scope)
	}
	if r.State != "" {
		values.Set("state", r.State)
	}
	if r.CodeChallenge != "" {
		values.Set("code_challenge", r.CodeChallenge)
		method := r.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		values.Set("code_challenge_method", method)
	}
	if r.Resource != "" {
		values.Set("resource", r.Resource)
	}
	return values, nil
}

// PushedAuthorization is the RFC 9126 response.
type PushedAuthorization struct {
	RequestURI string `json:"request_uri"`
	ExpiresIn  int    `json:"expires_in"`
}

// Redact masks all but a short prefix of a token for log output.
func Redact(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + strings.Repeat("*", 4)
}
