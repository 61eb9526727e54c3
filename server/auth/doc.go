// Package auth wraps a protected MCP server with bearer-token verification
// and on-demand delegation.
//
// The Provider validates inbound JWT bearer tokens against the zone's JWKS,
// publishes the RFC 9728 protected-resource and RFC 8414 authorization-server
// metadata documents, and performs RFC 8693 token exchange to obtain
// resource-scoped downstream tokens on behalf of the authenticated caller.
// Delegation results are materialized into a per-request AccessContext that
// tool handlers read before using a downstream token.
package auth
