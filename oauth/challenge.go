package oauth

import (
	"fmt"
	"net/http"
	"strings"
)

// Challenge is a parsed RFC 6750 WWW-Authenticate bearer challenge.
type Challenge struct {
	Scheme              string
	Error               string
	ErrorDescription    string
	Scope               string
	ResourceMetadataURL string
}

// BuildChallenge renders a bearer challenge header value. The error code is
// omitted when empty (missing-token case).
func BuildChallenge(errorCode, description, resourceMetadataURL string) string {
	parts := make([]string, 0, 3)
	if errorCode != "" {
		parts = append(parts, fmt.Sprintf("error=%q", errorCode))
	}
	if description != "" {
		parts = append(parts, fmt.Sprintf("error_description=%q", description))
	}
	if resourceMetadataURL != "" {
		parts = append(parts, fmt.Sprintf("resource_metadata=%q", resourceMetadataURL))
	}
	if len(parts) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(parts, ", ")
}

// ParseChallenge parses a WWW-Authenticate header value. Returns nil when the
// value is not a bearer challenge.
func ParseChallenge(header string) *Challenge {
	if header == "" {
		return nil
	}
	scheme := header
	params := ""
	if idx := strings.IndexByte(header, ' '); idx > 0 {
		scheme, params = header[:idx], header[idx+1:]
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return nil
	}
	ret := &Challenge{Scheme: "Bearer"}
	for _, part := range strings.Split(params, ",") {
		pair := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pair) != 2 {
			continue
		}
		value := strings.Trim(pair[1], `"`)
		switch strings.ToLower(pair[0]) {
		case "error":
			ret.Error = value
		case "error_description":
			ret.ErrorDescription = value
		case "scope":
			ret.Scope = value
		case "resource_metadata":
			ret.ResourceMetadataURL = value
		}
	}
	return ret
}

// ChallengeFromResponse extracts a bearer challenge from a 401 response, or
// nil when absent.
func ChallengeFromResponse(resp *http.Response) *Challenge {
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return nil
	}
	return ParseChallenge(resp.Header.Get("WWW-Authenticate"))
}
