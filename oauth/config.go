package oauth

import (
	"time"
)

// Version reported in the User-Agent header of outbound requests.
const Version = "0.1.0"

// Config controls transport behaviour of the client.
type Config struct {
	// Timeout is the per-call deadline applied when the caller's context has
	// no earlier one.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// MaxRetries bounds attempts for retriable failures; 0 disables retries.
	MaxRetries int `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
	// RetryBaseDelay is the initial backoff interval.
	RetryBaseDelay time.Duration `yaml:"retryBaseDelay,omitempty" json:"retryBaseDelay,omitempty"`
	// RetryMaxDelay caps a single backoff interval.
	RetryMaxDelay time.Duration `yaml:"retryMaxDelay,omitempty" json:"retryMaxDelay,omitempty"`
	// EnableDiscovery resolves endpoints from RFC 8414 metadata before
	// falling back to conventional defaults.
	EnableDiscovery bool `yaml:"enableDiscovery,omitempty" json:"enableDiscovery,omitempty"`
	// DiscoveryTTL bounds how long a fetched metadata document is reused.
	DiscoveryTTL time.Duration `yaml:"discoveryTTL,omitempty" json:"discoveryTTL,omitempty"`
	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty" json:"userAgent,omitempty"`
}

// DefaultConfig returns the enterprise defaults: 30s calls, 3 retries, 30s
// max backoff, discovery on with a 15 minute TTL.
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryBaseDelay:  250 * time.Millisecond,
		RetryMaxDelay:   30 * time.Second,
		EnableDiscovery: true,
		DiscoveryTTL:    15 * time.Minute,
		UserAgent:       "viant-mcp-auth/" + Version,
	}
}

func (c *Config) init() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 250 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 30 * time.Second
	}
	if c.DiscoveryTTL <= 0 {
		c.DiscoveryTTL = 15 * time.Minute
	}
	if c.UserAgent == "" {
		c.UserAgent = "viant-mcp-auth/" + Version
	}
}
