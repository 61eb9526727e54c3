package auth

import (
	"net/http"
	"time"

	"github.com/viant/mcp-auth/oauth"
)

// Credential is the provider's own OAuth client identity used to authenticate
// token-exchange calls.
type Credential struct {
	ClientID     string `yaml:"clientID,omitempty" json:"clientID,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty" json:"clientSecret,omitempty"`
}

// Config configures a delegation Provider.
type Config struct {
	// Zone identifies the authorization-server tenant that issues inbound
	// tokens and performs exchanges.
	Zone oauth.Zone `yaml:"zone" json:"zone"`
	// ServerName is the human-readable MCP server name, reported by /status.
	ServerName string `yaml:"serverName,omitempty" json:"serverName,omitempty"`
	// ServerURL is the resource URL inbound tokens must be scoped to.
	ServerURL string `yaml:"serverURL" json:"serverURL"`
	// Credential authenticates the provider's exchange client; nil sends
	// exchanges unauthenticated.
	Credential *Credential `yaml:"credential,omitempty" json:"credential,omitempty"`
	// PerZoneCredentials supplies zone-specific credentials when tokens from
	// multiple zones land on one host.
	PerZoneCredentials map[string]oauth.BasicAuth `yaml:"perZoneCredentials,omitempty" json:"perZoneCredentials,omitempty"`
	// ZoneFromRequest optionally resolves a zone key from an inbound request
	// for multi-zone deployments; nil uses the configured zone.
	ZoneFromRequest func(r *http.Request) string `yaml:"-" json:"-"`
	// RequiredScopes, when set, must all be present in inbound tokens.
	RequiredScopes []string `yaml:"requiredScopes,omitempty" json:"requiredScopes,omitempty"`
	// ProtectedPath is the path the MCP application is mounted on.
	ProtectedPath string `yaml:"protectedPath,omitempty" json:"protectedPath,omitempty"`
	// JWKSCacheTTL bounds reuse of a fetched key set.
	JWKSCacheTTL time.Duration `yaml:"jwksCacheTTL,omitempty" json:"jwksCacheTTL,omitempty"`
	// ClockSkew tolerated on exp/nbf checks, capped at one minute.
	ClockSkew time.Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`
	// DiscoveryTTL bounds reuse of the mirrored zone discovery document.
	DiscoveryTTL time.Duration `yaml:"discoveryTTL,omitempty" json:"discoveryTTL,omitempty"`
	// MaxConcurrentExchanges bounds parallelism of multi-resource grants.
	MaxConcurrentExchanges int `yaml:"maxConcurrentExchanges,omitempty" json:"maxConcurrentExchanges,omitempty"`
	// Endpoints overrides the zone's OAuth endpoints.
	Endpoints *oauth.Endpoints `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`
	// Version reported by /status.
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
}

const maxClockSkew = time.Minute

func (c *Config) init() error {
	if c.ServerURL == "" {
		return oauth.NewConfigError("provider requires serverURL")
	}
	if _, err := c.Zone.BaseURL(); err != nil {
		return err
	}
	if c.ProtectedPath == "" {
		c.ProtectedPath = "/mcp"
	}
	if c.JWKSCacheTTL <= 0 {
		c.JWKSCacheTTL = 15 * time.Minute
	}
	if c.ClockSkew <= 0 || c.ClockSkew > maxClockSkew {
		c.ClockSkew = maxClockSkew
	}
	if c.DiscoveryTTL <= 0 {
		c.DiscoveryTTL = 15 * time.Minute
	}
	if c.MaxConcurrentExchanges <= 0 {
		c.MaxConcurrentExchanges = 8
	}
	if c.Version == "" {
		c.Version = oauth.Version
	}
	return nil
}

// authStrategy resolves the exchange-client strategy for a zone key.
func (c *Config) authStrategy(zoneKey string) (oauth.AuthStrategy, error) {
	if len(c.PerZoneCredentials) > 0 {
		return oauth.NewPerZoneBasicAuth(c.PerZoneCredentials).ForZone(zoneKey)
	}
	if c.Credential != nil {
		return &oauth.BasicAuth{ClientID: c.Credential.ClientID, ClientSecret: c.Credential.ClientSecret}, nil
	}
	return oauth.NoneAuth{}, nil
}
