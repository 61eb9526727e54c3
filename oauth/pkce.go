package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const verifierBytes = 64

// PKCE holds an RFC 7636 code verifier together with its S256 challenge.
type PKCE struct {
	CodeVerifier        string `json:"code_verifier"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
}

// NewPKCE generates a 64-byte cryptographically random verifier and derives
// the S256 challenge.
func NewPKCE() (*PKCE, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(buf)
	return &PKCE{
		CodeVerifier:        verifier,
		CodeChallenge:       ChallengeS256(verifier),
		CodeChallengeMethod: "S256",
	}, nil
}

// ChallengeS256 computes BASE64URL(SHA-256(verifier)) without padding.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewState generates a 128-bit opaque correlation string for the
// authorization request.
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
