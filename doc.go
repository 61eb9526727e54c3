// Package mcpauth provides identity and delegation building blocks for
// authenticated Model Context Protocol (MCP) servers and clients.
//
// The module glues a low-level OAuth 2.0 client (token exchange per RFC 8693,
// dynamic client registration per RFC 7591, metadata discovery per RFC 8414,
// PKCE per RFC 7636) with two higher-level entry points:
//  1. server/auth.Provider – wraps a protected MCP server with bearer-token
//     verification, RFC 9728 protected-resource metadata and on-demand
//     downstream token exchange for tool handlers, and
//  2. client/auth.Coordinator – drives the authorization-code flow for an MCP
//     client against one or more upstream servers, owning per-context session
//     state, token persistence and completion events.
//
// The MCP wire protocol itself (JSON-RPC framing, tool/resource RPCs) is not
// part of this module; the provider mounts any http.Handler and the
// coordinator wraps any http.RoundTripper.
//
// Example:
//
//	provider, _ := auth.New(&auth.Config{
//		Zone:       oauth.Zone{URL: "https://acme.zone.example"},
//		ServerName: "docs",
//		ServerURL:  "https://docs.example/",
//	})
//	srv := http.Server{Handler: provider.App(mcpHandler)}
package mcpauth
