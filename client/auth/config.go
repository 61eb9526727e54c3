package auth

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/viant/mcp-auth/oauth"
	"gopkg.in/yaml.v3"
)

// ServerConfig describes one upstream MCP server the coordinator connects to.
type ServerConfig struct {
	URL string `yaml:"url" json:"url"`
	// Transport names the MCP transport ("streamable", "sse"); opaque here.
	Transport string `yaml:"transport,omitempty" json:"transport,omitempty"`
	// Auth selects the auth mode; "oauth" (default) or "none".
	Auth string `yaml:"auth,omitempty" json:"auth,omitempty"`
	// Scope requested during authorization.
	Scope string `yaml:"scope,omitempty" json:"scope,omitempty"`
	// Zone optionally pins the authorization server instead of trusting the
	// server's RFC 9728 hint.
	Zone *oauth.Zone `yaml:"zone,omitempty" json:"zone,omitempty"`
}

// Config configures an auth coordinator.
type Config struct {
	// ClientName is the logical application name used for dynamic client
	// registration; registrations are cached per (zone, ClientName).
	ClientName string `yaml:"clientName,omitempty" json:"clientName,omitempty"`
	// Servers maps server name to its configuration.
	Servers map[string]*ServerConfig `yaml:"servers" json:"servers"`

	// RedirectURI is the externally reachable callback (Remote profile).
	RedirectURI string `yaml:"redirectURI,omitempty" json:"redirectURI,omitempty"`

	// Host, Port and CallbackPath configure the loopback listener (Local
	// profile). Port 0 auto-assigns.
	Host         string `yaml:"host,omitempty" json:"host,omitempty"`
	Port         int    `yaml:"port,omitempty" json:"port,omitempty"`
	CallbackPath string `yaml:"callbackPath,omitempty" json:"callbackPath,omitempty"`
	// AutoOpenBrowser opens the system browser on pending authorization.
	AutoOpenBrowser *bool `yaml:"autoOpenBrowser,omitempty" json:"autoOpenBrowser,omitempty"`
	// BlockUntilCallback makes Local Connect wait for the callback.
	BlockUntilCallback *bool `yaml:"blockUntilCallback,omitempty" json:"blockUntilCallback,omitempty"`

	// PendingTTL bounds how long an authorization may stay pending.
	PendingTTL time.Duration `yaml:"pendingTTL,omitempty" json:"pendingTTL,omitempty"`
	// TokenMargin is the pre-expiry safety margin on every token read.
	TokenMargin time.Duration `yaml:"tokenMargin,omitempty" json:"tokenMargin,omitempty"`
	// UsePAR routes authorization through RFC 9126 when the zone advertises
	// support. Off by default.
	UsePAR bool `yaml:"usePAR,omitempty" json:"usePAR,omitempty"`

	// Registration metadata.
	GrantTypes              []string `yaml:"grantTypes,omitempty" json:"grantTypes,omitempty"`
	TokenEndpointAuthMethod string   `yaml:"tokenEndpointAuthMethod,omitempty" json:"tokenEndpointAuthMethod,omitempty"`
	ClientJWKSURL           string   `yaml:"clientJWKSURL,omitempty" json:"clientJWKSURL,omitempty"`

	// OAuth2ConfigURL lists scy resource URLs with preconfigured oauth2
	// clients; when a zone matches, dynamic registration is skipped.
	OAuth2ConfigURL []string `yaml:"oauth2ConfigURL,omitempty" json:"oauth2ConfigURL,omitempty"`
	// EncryptionKey decrypts the scy resources above.
	EncryptionKey string `yaml:"encryptionKey,omitempty" json:"encryptionKey,omitempty"`

	// StorageURL, when set, persists coordinator state at this afs URL or
	// local path instead of in memory.
	StorageURL string `yaml:"storageURL,omitempty" json:"storageURL,omitempty"`
}

func (c *Config) init() error {
	if len(c.Servers) == 0 {
		return oauth.NewConfigError("coordinator requires at least one server")
	}
	for name, server := range c.Servers {
		if server == nil || server.URL == "" {
			return oauth.NewConfigError("server %q requires url", name)
		}
	}
	if c.ClientName == "" {
		c.ClientName = "MCPAuthClient"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.CallbackPath == "" {
		c.CallbackPath = "/oauth/callback"
	} else if !strings.HasPrefix(c.CallbackPath, "/") {
		c.CallbackPath = "/" + c.CallbackPath
	}
	if c.PendingTTL <= 0 {
		c.PendingTTL = 10 * time.Minute
	}
	if c.TokenMargin <= 0 {
		c.TokenMargin = 30 * time.Second
	}
	if len(c.GrantTypes) == 0 {
		c.GrantTypes = []string{oauth.GrantAuthorizationCode, oauth.GrantRefreshToken}
	}
	return nil
}

func (c *Config) autoOpenBrowser() bool {
	return c.AutoOpenBrowser == nil || *c.AutoOpenBrowser
}

func (c *Config) blockUntilCallback() bool {
	return c.BlockUntilCallback == nil || *c.BlockUntilCallback
}

// Server returns the configuration for a server name.
func (c *Config) Server(name string) (*ServerConfig, error) {
	server, ok := c.Servers[name]
	if !ok {
		return nil, oauth.NewConfigError("unknown server %q", name)
	}
	return server, nil
}

// LoadConfig reads a YAML coordinator configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	ret := &Config{}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return ret, nil
}
