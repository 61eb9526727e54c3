package mock

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viant/mcp-auth/oauth/meta"
)

// MintToken creates a signed JWT access token for the subject with the given
// audience and lifetime, carrying this server's kid and a unique jti.
func (m *AuthorizationService) MintToken(subject, audience string, expiry time.Duration) (string, error) {
	return m.MintTokenWithClaims(subject, audience, expiry, nil)
}

// MintTokenWithClaims additionally merges extra claims (e.g. an act chain).
func (m *AuthorizationService) MintTokenWithClaims(subject, audience string, expiry time.Duration, extra map[string]interface{}) (string, error) {
	now := time.Now()
	m.mux.Lock()
	jti := m.nextID("jti")
	m.mux.Unlock()
	claims := jwt.MapClaims{
		"iss": m.Issuer,
		"sub": subject,
		"aud": audience,
		"exp": now.Add(expiry).Unix(),
		"iat": now.Unix(),
		"jti": jti,
	}
	for key, value := range extra {
		claims[key] = value
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = m.KeyID
	return token.SignedString(m.PrivateKey)
}

// jwksHandler exposes the server's public key as a JWKS document.
func (m *AuthorizationService) jwksHandler(w http.ResponseWriter, _ *http.Request) {
	pubKey := m.PrivateKey.Public().(*rsa.PublicKey)
	nB64 := base64.RawURLEncoding.EncodeToString(pubKey.N.Bytes())
	eB64 := base64.RawURLEncoding.EncodeToString(new(big.Int).SetInt64(int64(pubKey.E)).Bytes())
	jwks := meta.JSONWebKeySet{Keys: []meta.JSONWebKey{
		{Kty: "RSA", Use: "sig", Alg: "RS256", Kid: m.KeyID, N: nB64, E: eB64},
	}}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jwks)
}
