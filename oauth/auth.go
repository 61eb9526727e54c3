package oauth

import (
	"net/http"
)

// AuthStrategy applies client authentication to an outbound request. A
// strategy mutates request headers only; it never reads response bodies.
type AuthStrategy interface {
	Apply(req *http.Request) error
}

// NoneAuth sends requests unauthenticated, e.g. for dynamic client
// registration against open registration endpoints.
type NoneAuth struct{}

func (NoneAuth) Apply(*http.Request) error { return nil }

// BasicAuth authenticates with HTTP Basic client credentials
// (RFC 6749 Section 2.3.1).
type BasicAuth struct {
	ClientID     string
	ClientSecret string
}

func (a *BasicAuth) Apply(req *http.Request) error {
	if a.ClientID == "" {
		return NewConfigError("basic auth requires client id")
	}
	req.SetBasicAuth(a.ClientID, a.ClientSecret)
	return nil
}

// BearerAuth authenticates with a fixed bearer token.
type BearerAuth struct {
	Token string
}

func (a *BearerAuth) Apply(req *http.Request) error {
	if a.Token == "" {
		return NewConfigError("bearer auth requires token")
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}

// PerZoneBasicAuth holds basic credentials per zone key; selecting a zone
// that is not configured is a configuration error.
type PerZoneBasicAuth struct {
	zones map[string]BasicAuth
}

func NewPerZoneBasicAuth(zones map[string]BasicAuth) *PerZoneBasicAuth {
	copied := make(map[string]BasicAuth, len(zones))
	for key, cred := range zones {
		copied[key] = cred
	}
	return &PerZoneBasicAuth{zones: copied}
}

// ForZone returns the strategy bound to the given zone key.
func (a *PerZoneBasicAuth) ForZone(zone string) (*BasicAuth, error) {
	cred, ok := a.zones[zone]
	if !ok {
		return nil, NewConfigError("no credentials configured for zone %q", zone)
	}
	return &cred, nil
}

// HasZone reports whether credentials exist for the zone key.
func (a *PerZoneBasicAuth) HasZone(zone string) bool {
	_, ok := a.zones[zone]
	return ok
}

// Apply without a zone selection is invalid; the client resolves a concrete
// zone first via ForZone.
func (a *PerZoneBasicAuth) Apply(*http.Request) error {
	return NewConfigError("per-zone auth requires a zone selection")
}
