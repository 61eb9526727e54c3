package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/viant/mcp-auth/oauth/meta"
	"golang.org/x/sync/singleflight"
)

// jwksCache caches verification keys per jwks_uri. Concurrent refreshers of
// the same URI coalesce to one in-flight fetch.
type jwksCache struct {
	ttl        time.Duration
	httpClient *http.Client
	group      singleflight.Group

	mux     sync.RWMutex
	entries map[string]*jwksEntry
}

type jwksEntry struct {
	keys    map[string]interface{}
	fetched time.Time
}

func newJWKSCache(ttl time.Duration, httpClient *http.Client) *jwksCache {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &jwksCache{
		ttl:        ttl,
		httpClient: httpClient,
		entries:    map[string]*jwksEntry{},
	}
}

// Key returns the public key for kid, refreshing the key set once when the
// kid is unknown or the cached set is stale.
func (c *jwksCache) Key(ctx context.Context, jwksURI, kid string) (interface{}, error) {
	if key, ok := c.lookup(jwksURI, kid); ok {
		return key, nil
	}
	if err := c.refresh(ctx, jwksURI); err != nil {
		return nil, err
	}
	if key, ok := c.lookup(jwksURI, kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown key id %q for %s", kid, jwksURI)
}

func (c *jwksCache) lookup(jwksURI, kid string) (interface{}, bool) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	entry, ok := c.entries[jwksURI]
	if !ok || time.Since(entry.fetched) > c.ttl {
		return nil, false
	}
	key, ok := entry.keys[kid]
	return key, ok
}

// refresh fetches the key set; concurrent callers for the same URI share one
// HTTP request via singleflight.
func (c *jwksCache) refresh(ctx context.Context, jwksURI string) error {
	_, err, _ := c.group.Do(jwksURI, func() (interface{}, error) {
		set, err := meta.FetchJSONWebKeySet(ctx, jwksURI, c.httpClient)
		if err != nil {
			return nil, err
		}
		keys := make(map[string]interface{}, len(set.Keys))
		for i := range set.Keys {
			jwk := &set.Keys[i]
			if jwk.Kid == "" {
				continue
			}
			key, err := publicKey(jwk)
			if err != nil { // skip keys this verifier cannot use
				continue
			}
			keys[jwk.Kid] = key
		}
		c.mux.Lock()
		c.entries[jwksURI] = &jwksEntry{keys: keys, fetched: time.Now()}
		c.mux.Unlock()
		return nil, nil
	})
	return err
}

// publicKey converts a JWK into a crypto public key.
func publicKey(jwk *meta.JSONWebKey) (interface{}, error) {
	switch jwk.Kty {
	case "RSA":
		return rsaPublicKey(jwk)
	case "EC":
		return ecdsaPublicKey(jwk)
	}
	return nil, fmt.Errorf("unsupported key type: %s", jwk.Kty)
}

func rsaPublicKey(jwk *meta.JSONWebKey) (*rsa.PublicKey, error) {
	if jwk.N == "" || jwk.E == "" {
		return nil, fmt.Errorf("missing RSA key parameters")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

func ecdsaPublicKey(jwk *meta.JSONWebKey) (*ecdsa.PublicKey, error) {
	if jwk.X == "" || jwk.Y == "" || jwk.Crv == "" {
		return nil, fmt.Errorf("missing EC key parameters")
	}
	xBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("failed to decode x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("failed to decode y coordinate: %w", err)
	}
	var curve elliptic.Curve
	switch jwk.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve: %s", jwk.Crv)
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
