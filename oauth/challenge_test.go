package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildChallenge(t *testing.T) {
	header := BuildChallenge("invalid_token", "token expired", "http://srv:8000/.well-known/oauth-protected-resource/mcp")
	assert.Equal(t, `Bearer error="invalid_token", error_description="token expired", resource_metadata="http://srv:8000/.well-known/oauth-protected-resource/mcp"`, header)

	// missing token: error code omitted
	header = BuildChallenge("", "", "http://srv:8000/.well-known/oauth-protected-resource/mcp")
	assert.Equal(t, `Bearer resource_metadata="http://srv:8000/.well-known/oauth-protected-resource/mcp"`, header)
}

func TestParseChallenge(t *testing.T) {
	challenge := ParseChallenge(`Bearer error="invalid_token", error_description="bad signature", resource_metadata="http://srv:8000/.well-known/oauth-protected-resource/mcp", scope="read write"`)
	if challenge == nil {
		t.Fatal("expected challenge")
	}
	assert.Equal(t, "invalid_token", challenge.Error)
	assert.Equal(t, "bad signature", challenge.ErrorDescription)
	assert.Equal(t, "http://srv:8000/.well-known/oauth-protected-resource/mcp", challenge.ResourceMetadataURL)

	assert.Nil(t, ParseChallenge(`Basic realm="legacy"`))
	assert.Nil(t, ParseChallenge(""))
}

func TestChallengeRoundTrip(t *testing.T) {
	header := BuildChallenge("invalid_token", "", "https://docs.example/.well-known/oauth-protected-resource")
	challenge := ParseChallenge(header)
	if challenge == nil {
		t.Fatal("expected challenge")
	}
	assert.Equal(t, "invalid_token", challenge.Error)
	assert.Equal(t, "https://docs.example/.well-known/oauth-protected-resource", challenge.ResourceMetadataURL)
}
