// Package auth implements the client-side auth coordinator for MCP clients.
//
// A Coordinator drives OAuth against one or more upstream MCP servers: on a
// 401 challenge it follows the RFC 9728 resource_metadata hint, registers a
// client with the zone via RFC 7591 (cached per zone and application name),
// runs the PKCE authorization-code flow and persists tokens through the
// store package. Per-(context, server) progress is tracked by a Session state
// machine; callbacks publish CompletionEvents to subscribers.
//
// Two profiles exist. Local runs a loopback callback listener, opens the
// system browser and blocks until the flow completes - suited to CLI and
// desktop processes. Remote returns authorization URLs to the embedding
// application and exposes a completion endpoint for its router - suited to
// multi-tenant services. ClientManager partitions everything by context id so
// tenants never observe each other's tokens.
package auth
