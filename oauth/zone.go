package oauth

import (
	"fmt"
	"net/url"
	"strings"
)

// Zone identifies an authorization-server tenant. A zone is addressed either
// by an explicit URL or by an ID combined with a base domain
// (https://{id}.{baseDomain}). Once configured a zone is immutable.
type Zone struct {
	ID         string `yaml:"id,omitempty" json:"id,omitempty"`
	URL        string `yaml:"url,omitempty" json:"url,omitempty"`
	BaseDomain string `yaml:"baseDomain,omitempty" json:"baseDomain,omitempty"`
}

// BaseURL resolves the zone base URL; the explicit URL wins over ID+domain.
func (z *Zone) BaseURL() (string, error) {
	if z.URL != "" {
		return strings.TrimSuffix(z.URL, "/"), nil
	}
	if z.ID == "" {
		return "", NewConfigError("zone requires url or id")
	}
	if z.BaseDomain == "" {
		return "", NewConfigError("zone %q requires baseDomain when url is not set", z.ID)
	}
	return fmt.Sprintf("https://%s.%s", z.ID, strings.TrimSuffix(z.BaseDomain, "/")), nil
}

// Key returns a stable cache key for the zone: the ID when present, otherwise
// the URL host.
func (z *Zone) Key() string {
	if z.ID != "" {
		return z.ID
	}
	if u, err := url.Parse(z.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return z.URL
}
