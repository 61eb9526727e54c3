package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/viant/mcp-auth/oauth/meta"
)

// DiscoverMetadata fetches the RFC 8414 document for the zone; a cached
// document within the discovery TTL is reused.
func (c *Client) DiscoverMetadata(ctx context.Context) (*meta.AuthorizationServerMetadata, error) {
	return c.Metadata(ctx)
}

// RegisterClient performs RFC 7591 dynamic client registration.
func (c *Client) RegisterClient(ctx context.Context, request *RegisterRequest) (*RegisteredClient, error) {
	endpoint, err := c.endpoint(ctx, endpointRegister)
	if err != nil {
		return nil, err
	}
	body, err := c.postJSON(ctx, endpoint, request)
	if err != nil {
		return nil, err
	}
	ret := &RegisteredClient{}
	if err = json.Unmarshal(body, ret); err != nil {
		return nil, fmt.Errorf("malformed registration response: %w", err)
	}
	if ret.ClientID == "" {
		return nil, &ProtocolError{Endpoint: endpoint, Code: "invalid_client_metadata", Description: "registration response missing client_id"}
	}
	return ret, nil
}

// ExchangeToken performs an RFC 8693 token exchange. Protocol failures are
// surfaced as TokenExchangeError carrying the target resource or audience.
func (c *Client) ExchangeToken(ctx context.Context, request *ExchangeRequest) (*Token, error) {
	values, err := request.values()
	if err != nil {
		return nil, err
	}
	token, err := c.token(ctx, values, request.Resource)
	if err != nil {
		var protocolErr *ProtocolError
		if errors.As(err, &protocolErr) {
			return nil, &TokenExchangeError{ProtocolError: *protocolErr, Resource: request.Resource, Audience: request.Audience}
		}
		return nil, err
	}
	return token, nil
}

// AuthorizationCode redeems an authorization code, sending the PKCE verifier
// when present.
func (c *Client) AuthorizationCode(ctx context.Context, request *CodeExchangeRequest) (*Token, error) {
	values, err := request.values()
	if err != nil {
		return nil, err
	}
	return c.token(ctx, values, request.Resource)
}

// ClientCredentials obtains a token via the client-credentials grant.
func (c *Client) ClientCredentials(ctx context.Context, scope, resource string) (*Token, error) {
	values := url.Values{}
	values.Set("grant_type", GrantClientCredentials)
	if scope != "" {
		values.Set("scope", scope)
	}
	if resource != "" {
		values.Set("resource", resource)
	}
	return c.token(ctx, values, resource)
}

// Refresh exchanges a refresh token for a fresh access token.
func (c *Client) Refresh(ctx context.Context, refreshToken, scope string) (*Token, error) {
	if refreshToken == "" {
		return nil, NewConfigError("refresh requires refresh token")
	}
	values := url.Values{}
	values.Set("grant_type", GrantRefreshToken)
	values.Set("refresh_token", refreshToken)
	if scope != "" {
		values.Set("scope", scope)
	}
	token, err := c.token(ctx, values, "")
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" { // provider may omit the rotated token
		token.RefreshToken = refreshToken
	}
	return token, nil
}

func (c *Client) token(ctx context.Context, values url.Values, resource string) (*Token, error) {
	endpoint, err := c.endpoint(ctx, endpointToken)
	if err != nil {
		return nil, err
	}
	body, err := c.postForm(ctx, endpoint, values)
	if err != nil {
		return nil, err
	}
	response := &tokenResponse{}
	if err = json.Unmarshal(body, response); err != nil {
		return nil, fmt.Errorf("malformed token response: %w", err)
	}
	if response.AccessToken == "" {
		return nil, &ProtocolError{Endpoint: endpoint, Code: "invalid_grant", Description: "token response missing access_token"}
	}
	return response.token(resource), nil
}

// Introspect calls the RFC 7662 introspection endpoint.
func (c *Client) Introspect(ctx context.Context, token, tokenTypeHint string) (*Introspection, error) {
	endpoint, err := c.endpoint(ctx, endpointIntrospect)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("token", token)
	if tokenTypeHint != "" {
		values.Set("token_type_hint", tokenTypeHint)
	}
	body, err := c.postForm(ctx, endpoint, values)
	if err != nil {
		return nil, err
	}
	ret := &Introspection{}
	if err = json.Unmarshal(body, ret); err != nil {
		return nil, fmt.Errorf("malformed introspection response: %w", err)
	}
	_ = json.Unmarshal(body, &ret.Raw)
	return ret, nil
}

// Revoke calls the RFC 7009 revocation endpoint. Revoking an unknown or
// already-revoked token succeeds.
func (c *Client) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	endpoint, err := c.endpoint(ctx, endpointRevoke)
	if err != nil {
		return err
	}
	values := url.Values{}
	values.Set("token", token)
	if tokenTypeHint != "" {
		values.Set("token_type_hint", tokenTypeHint)
	}
	_, err = c.postForm(ctx, endpoint, values)
	return err
}

// PushAuthorization submits an RFC 9126 pushed authorization request.
func (c *Client) PushAuthorization(ctx context.Context, request *AuthorizationRequest) (*PushedAuthorization, error) {
	endpoint, err := c.endpoint(ctx, endpointPAR)
	if err != nil {
		return nil, err
	}
	values, err := request.values()
	if err != nil {
		return nil, err
	}
	body, err := c.postForm(ctx, endpoint, values)
	if err != nil {
		return nil, err
	}
	ret := &PushedAuthorization{}
	if err = json.Unmarshal(body, ret); err != nil {
		return nil, fmt.Errorf("malformed par response: %w", err)
	}
	if ret.RequestURI == "" {
		return nil, &ProtocolError{Endpoint: endpoint, Code: "invalid_request", Description: "par response missing request_uri"}
	}
	return ret, nil
}

// AuthorizationURL builds the authorization-endpoint URL for the request.
func (c *Client) AuthorizationURL(ctx context.Context, request *AuthorizationRequest) (string, error) {
	endpoint, err := c.endpoint(ctx, endpointAuthorize)
	if err != nil {
		return "", err
	}
	values, err := request.values()
	if err != nil {
		return "", err
	}
	return endpoint + "?" + values.Encode(), nil
}

// AuthorizationURLFromRequestURI builds the authorization URL for a pushed
// request per RFC 9126 Section 4.
func (c *Client) AuthorizationURLFromRequestURI(ctx context.Context, clientID, requestURI string) (string, error) {
	endpoint, err := c.endpoint(ctx, endpointAuthorize)
	if err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set("client_id", clientID)
	values.Set("request_uri", requestURI)
	return endpoint + "?" + values.Encode(), nil
}
