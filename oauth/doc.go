// Package oauth implements the OAuth 2.0 client layer used by both the
// server-side delegation provider and the client-side auth coordinator.
//
// The package provides typed request/response records and context-aware
// callers for the standardized endpoints: token (authorization-code,
// client-credentials, refresh and RFC 8693 token exchange), RFC 7591 dynamic
// client registration, RFC 7662 introspection, RFC 7009 revocation and
// RFC 9126 pushed authorization requests, with RFC 8414 metadata discovery
// handled by the nested meta package.
//
// Errors raised by the package form a closed taxonomy (ConfigError,
// NetworkError, HTTPError, ProtocolError, TokenExchangeError) with a single
// IsRetriable classifier; retriable failures are retried with exponential
// backoff and full jitter at the call boundary.
package oauth
