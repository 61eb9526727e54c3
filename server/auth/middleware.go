package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/viant/mcp-auth/oauth"
)

type contextKey string

const (
	claimsKey contextKey = "mcpauth.claims"
	tokenKey  contextKey = "mcpauth.token"
	accessKey contextKey = "mcpauth.access"
)

// ClaimsFromContext returns the verified claims placed by the middleware.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// RawTokenFromContext returns the raw inbound bearer token.
func RawTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// AccessFromContext returns the AccessContext materialized by a grant
// pre-handler, or nil when the handler declared no grant.
func AccessFromContext(ctx context.Context) *AccessContext {
	access, _ := ctx.Value(accessKey).(*AccessContext)
	return access
}

// Middleware enforces bearer authentication on every request and stores the
// verified claims and raw token in the request context.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, raw, err := p.Authenticate(r)
		if err != nil {
			p.unauthorized(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = context.WithValue(ctx, tokenKey, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithGrant is the pre-handler stage for a granted tool: it materializes the
// AccessContext from the declared resources, then runs the handler. The
// handler observes a fully populated context and must check HasErrors before
// using a token.
func (p *Provider) WithGrant(grant *ToolGrant, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zoneKey := p.config.Zone.Key()
		if p.config.ZoneFromRequest != nil {
			if requestZone := p.config.ZoneFromRequest(r); requestZone != "" {
				zoneKey = requestZone
			}
		}
		access := p.delegate(r.Context(), RawTokenFromContext(r.Context()), zoneKey, grant)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accessKey, access)))
	})
}

// unauthorized writes the RFC 6750 challenge. The error code is omitted when
// no token was presented at all.
func (p *Provider) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	errorCode, description := "invalid_token", ""
	var authErr *oauth.AuthenticationError
	if errors.As(err, &authErr) {
		switch authErr.Reason {
		case "missing token":
			errorCode = ""
		case "insufficient_scope":
			errorCode = "insufficient_scope"
		}
		if authErr.Err != nil {
			description = authErr.Err.Error()
		}
	}
	proto, host := extractProtoAndHost(r)
	metadataURL := fmt.Sprintf("%s://%s%s%s", proto, host, oauthProtectedResourcePath, p.config.ProtectedPath)
	w.Header().Set("WWW-Authenticate", oauth.BuildChallenge(errorCode, description, metadataURL))
	w.WriteHeader(http.StatusUnauthorized)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// extractProtoAndHost extracts the outer scheme/host the client saw. It
// understands both the RFC 7239 Forwarded header and the older
// X-Forwarded-Proto / X-Forwarded-Host headers.
func extractProtoAndHost(r *http.Request) (proto, host string) {
	if fwd := r.Header.Get("Forwarded"); fwd != "" {
		for _, part := range strings.Split(fwd, ";") {
			pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
			if len(pair) != 2 {
				continue
			}
			switch strings.ToLower(pair[0]) {
			case "proto":
				proto = strings.ToLower(pair[1])
			case "host":
				host = pair[1]
			}
		}
	}
	if proto == "" {
		proto = strings.ToLower(r.Header.Get("X-Forwarded-Proto"))
	}
	if host == "" {
		host = r.Header.Get("X-Forwarded-Host")
	}
	// take the first element in case a LB appended multiple values
	if idx := strings.IndexByte(host, ','); idx > 0 {
		host = host[:idx]
	}
	if idx := strings.IndexByte(proto, ','); idx > 0 {
		proto = proto[:idx]
	}
	if proto == "" {
		if r.TLS != nil {
			proto = "https"
		} else {
			proto = "http"
		}
	}
	if host == "" {
		host = r.Host
	}
	return proto, host
}
