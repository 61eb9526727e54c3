package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/viant/mcp-auth/oauth/meta"
)

// Client issues RFC-conformant requests against one authorization server
// (zone). The client is stateless apart from the cached discovery document
// and is safe for concurrent use.
type Client struct {
	zone       Zone
	baseURL    string
	config     *Config
	auth       AuthStrategy
	endpoints  *Endpoints
	httpClient *http.Client

	mux          sync.Mutex
	metadata     *meta.AuthorizationServerMetadata
	metadataTime time.Time
}

// Option mutates a Client during construction.
type Option func(*Client)

// WithAuth sets the client authentication strategy.
func WithAuth(auth AuthStrategy) Option {
	return func(c *Client) {
		c.auth = auth
	}
}

// WithHTTPClient sets the HTTP transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithEndpoints sets explicit endpoint overrides.
func WithEndpoints(endpoints *Endpoints) Option {
	return func(c *Client) {
		c.endpoints = endpoints
	}
}

// WithConfig sets transport configuration.
func WithConfig(config *Config) Option {
	return func(c *Client) {
		c.config = config
	}
}

// WithMetadata seeds the discovery cache, avoiding the initial metadata
// fetch. Intended for tests and for callers that already discovered the zone.
func WithMetadata(metadata *meta.AuthorizationServerMetadata) Option {
	return func(c *Client) {
		c.metadata = metadata
		c.metadataTime = time.Now()
	}
}

// New creates a client for the given zone.
func New(zone Zone, options ...Option) (*Client, error) {
	baseURL, err := zone.BaseURL()
	if err != nil {
		return nil, err
	}
	ret := &Client{
		zone:       zone,
		baseURL:    baseURL,
		config:     DefaultConfig(),
		auth:       NoneAuth{},
		httpClient: http.DefaultClient,
	}
	for _, option := range options {
		option(ret)
	}
	ret.config.init()
	if perZone, ok := ret.auth.(*PerZoneBasicAuth); ok {
		resolved, err := perZone.ForZone(zone.Key())
		if err != nil {
			return nil, err
		}
		ret.auth = resolved
	}
	return ret, nil
}

// Zone returns the zone this client is bound to.
func (c *Client) Zone() Zone { return c.zone }

// BaseURL returns the resolved zone base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Metadata returns the RFC 8414 discovery document for the zone, fetching it
// and caching it for DiscoveryTTL; a stale copy is returned when a refetch
// fails. It fetches regardless of EnableDiscovery, which only governs whether
// endpoint resolution consults the document.
func (c *Client) Metadata(ctx context.Context) (*meta.AuthorizationServerMetadata, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.metadata != nil && time.Since(c.metadataTime) < c.config.DiscoveryTTL {
		return c.metadata, nil
	}
	document, err := meta.FetchAuthorizationServerMetadata(ctx, c.baseURL, c.httpClient)
	if err != nil {
		if c.metadata != nil { // stale document beats no document
			return c.metadata, nil
		}
		return nil, &NetworkError{Endpoint: c.baseURL + meta.AuthorizationServerPath, Err: err}
	}
	c.metadata = document
	c.metadataTime = time.Now()
	return document, nil
}

// endpoint resolves the URL for an operation, raising ConfigError before any
// network call when nothing resolves.
func (c *Client) endpoint(ctx context.Context, kind endpointKind) (string, error) {
	var discovered *meta.AuthorizationServerMetadata
	if c.config.EnableDiscovery {
		discovered, _ = c.Metadata(ctx)
	}
	resolved := c.endpoints.resolve(kind, c.baseURL, discovered)
	if resolved == "" {
		return "", NewConfigError("no %v endpoint resolved for zone %q", kind, c.zone.Key())
	}
	return resolved, nil
}

// postForm sends an x-www-form-urlencoded POST with retries and returns the
// response body. The request is rebuilt per attempt; protocol errors are
// never retried.
func (c *Client) postForm(ctx context.Context, endpoint string, values url.Values) ([]byte, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.send(req, endpoint)
	}
	return c.retry(ctx, operation)
}

// postJSON sends a JSON POST (used by RFC 7591 registration).
func (c *Client) postJSON(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.send(req, endpoint)
	}
	return c.retry(ctx, operation)
}

// callContext applies the per-call deadline when the caller's context has no
// earlier one.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, has := ctx.Deadline(); has {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.Timeout)
}

func (c *Client) retry(ctx context.Context, operation backoff.Operation[[]byte]) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.config.RetryBaseDelay
	policy.MaxInterval = c.config.RetryMaxDelay
	policy.RandomizationFactor = 1 // full jitter
	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.config.MaxRetries+1)))
	return data, err
}

// send executes one attempt, applying the auth strategy and classifying the
// outcome; non-retriable outcomes are marked permanent for the retry loop.
func (c *Client) send(req *http.Request, endpoint string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if err := c.auth.Apply(req); err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	if protocolErr := parseProtocolError(endpoint, resp.StatusCode, body); protocolErr != nil {
		return nil, backoff.Permanent(protocolErr)
	}
	httpErr := &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	if httpErr.Retriable() {
		return nil, httpErr
	}
	return nil, backoff.Permanent(httpErr)
}

func parseProtocolError(endpoint string, statusCode int, body []byte) *ProtocolError {
	ret := &ProtocolError{}
	if err := json.Unmarshal(body, ret); err != nil || ret.Code == "" {
		return nil
	}
	ret.Endpoint = endpoint
	ret.StatusCode = statusCode
	return ret
}
