package oauth

import (
	"errors"
	"fmt"
)

// ConfigError indicates missing or inconsistent client configuration, e.g. an
// endpoint that resolved to nothing or an auth strategy without credentials
// for the requested zone. It is raised before any network I/O and is never
// retriable.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "oauth config: " + e.Message
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// NetworkError wraps DNS, TLS, socket or read/write failures. Retriable.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("oauth network: %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError represents a non-OAuth HTTP failure (the response body was not an
// RFC 6749 error document).
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("oauth http: %s returned %d", e.Endpoint, e.StatusCode)
}

// Retriable reports whether the status code warrants another attempt.
func (e *HTTPError) Retriable() bool {
	switch e.StatusCode {
	case 408, 425, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// ProtocolError is an RFC 6749 Section 5.2 error response.
type ProtocolError struct {
	Endpoint    string
	StatusCode  int
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

func (e *ProtocolError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth %s: %s", e.Code, e.Description)
	}
	return "oauth " + e.Code
}

// TokenExchangeError is a ProtocolError raised by the token endpoint for the
// token-exchange grant; it carries the target that failed so callers can
// attribute the failure to a resource.
type TokenExchangeError struct {
	ProtocolError
	Resource string
	Audience string
}

func (e *TokenExchangeError) Error() string {
	target := e.Resource
	if target == "" {
		target = e.Audience
	}
	return fmt.Sprintf("token exchange for %q: %s", target, e.ProtocolError.Error())
}

// AuthenticationError indicates that a presented bearer token was rejected
// (bad signature, wrong audience, expired, revoked). The delegation provider
// converts it into an RFC 6750 challenge.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication: %s: %v", e.Reason, e.Err)
	}
	return "authentication: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// IsRetriable classifies an error per the taxonomy: transport failures and
// HTTP statuses 408/425/429/500/502/503/504 are retriable, other statuses and
// configuration and protocol errors are not.
func IsRetriable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retriable()
	}
	return false
}
