package oauth

import (
	"strings"

	"github.com/viant/mcp-auth/oauth/meta"
)

// Endpoints holds explicit endpoint overrides. An unset field falls back to
// the RFC 8414 discovery result (when discovery is enabled) and then to the
// conventional default path relative to the base URL.
type Endpoints struct {
	Authorize  string `yaml:"authorize,omitempty" json:"authorize,omitempty"`
	Token      string `yaml:"token,omitempty" json:"token,omitempty"`
	Register   string `yaml:"register,omitempty" json:"register,omitempty"`
	Introspect string `yaml:"introspect,omitempty" json:"introspect,omitempty"`
	Revoke     string `yaml:"revoke,omitempty" json:"revoke,omitempty"`
	PAR        string `yaml:"par,omitempty" json:"par,omitempty"`
}

// Default endpoint paths relative to the zone base URL.
const (
	defaultAuthorizePath  = "/oauth2/authorize"
	defaultTokenPath      = "/oauth2/token"
	defaultRegisterPath   = "/oauth2/register"
	defaultIntrospectPath = "/oauth2/introspect"
	defaultRevokePath     = "/oauth2/revoke"
	defaultPARPath        = "/oauth2/par"
)

type endpointKind int

const (
	endpointAuthorize endpointKind = iota
	endpointToken
	endpointRegister
	endpointIntrospect
	endpointRevoke
	endpointPAR
)

func (k endpointKind) String() string {
	switch k {
	case endpointAuthorize:
		return "authorize"
	case endpointToken:
		return "token"
	case endpointRegister:
		return "register"
	case endpointIntrospect:
		return "introspect"
	case endpointRevoke:
		return "revoke"
	case endpointPAR:
		return "par"
	}
	return "unknown"
}

// resolve applies the strict precedence: explicit override, discovered
// metadata, hard-coded default. PAR and registration have no safe default
// when discovery yields nothing, except the conventional path.
func (e *Endpoints) resolve(kind endpointKind, baseURL string, discovered *meta.AuthorizationServerMetadata) string {
	var override, fromMetadata, fallback string
	switch kind {
	case endpointAuthorize:
		override, fallback = e.value(func(v *Endpoints) string { return v.Authorize }), defaultAuthorizePath
		if discovered != nil {
			fromMetadata = discovered.AuthorizationEndpoint
		}
	case endpointToken:
		override, fallback = e.value(func(v *Endpoints) string { return v.Token }), defaultTokenPath
		if discovered != nil {
			fromMetadata = discovered.TokenEndpoint
		}
	case endpointRegister:
		override, fallback = e.value(func(v *Endpoints) string { return v.Register }), defaultRegisterPath
		if discovered != nil {
			fromMetadata = discovered.RegistrationEndpoint
		}
	case endpointIntrospect:
		override, fallback = e.value(func(v *Endpoints) string { return v.Introspect }), defaultIntrospectPath
		if discovered != nil {
			fromMetadata = discovered.IntrospectionEndpoint
		}
	case endpointRevoke:
		override, fallback = e.value(func(v *Endpoints) string { return v.Revoke }), defaultRevokePath
		if discovered != nil {
			fromMetadata = discovered.RevocationEndpoint
		}
	case endpointPAR:
		override, fallback = e.value(func(v *Endpoints) string { return v.PAR }), defaultPARPath
		if discovered != nil {
			fromMetadata = discovered.PushedAuthorizationRequestEndpoint
		}
	}
	if override != "" {
		return override
	}
	if fromMetadata != "" {
		return fromMetadata
	}
	if baseURL == "" {
		return ""
	}
	return strings.TrimSuffix(baseURL, "/") + fallback
}

func (e *Endpoints) value(get func(*Endpoints) string) string {
	if e == nil {
		return ""
	}
	return get(e)
}
