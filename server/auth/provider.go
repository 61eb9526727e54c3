package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/viant/mcp-auth/internal/collection"
	"github.com/viant/mcp-auth/oauth"
	"golang.org/x/sync/errgroup"
)

// ToolGrant declares that a tool requires downstream access tokens for the
// listed resources before its body runs. It is tool metadata consumed by the
// pre-handler stage, not a decorator.
type ToolGrant struct {
	Resources []string `yaml:"resources" json:"resources"`
	// MaxParallel bounds exchange concurrency; 0 uses the provider default.
	MaxParallel int `yaml:"maxParallel,omitempty" json:"maxParallel,omitempty"`
}

// Grant declares a single-resource delegation.
func Grant(resource string) *ToolGrant {
	return &ToolGrant{Resources: []string{resource}}
}

// GrantMulti declares a delegation for several resources; exchanges run
// concurrently.
func GrantMulti(resources ...string) *ToolGrant {
	return &ToolGrant{Resources: resources}
}

// Provider wraps a protected MCP server with bearer authentication, metadata
// endpoints and per-tool token exchange.
type Provider struct {
	config     *Config
	verifier   *Verifier
	httpClient *http.Client
	logger     *slog.Logger
	clients    *collection.SyncMap[string, *oauth.Client]
	metadata   *metadataService
}

// Option mutates a Provider during construction.
type Option func(*Provider)

// WithHTTPClient sets the transport used for zone calls.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithLogger sets the provider logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithVerifier overrides the token verifier (tests, custom key handling).
func WithVerifier(verifier *Verifier) Option {
	return func(p *Provider) {
		p.verifier = verifier
	}
}

// New creates a delegation provider.
func New(config *Config, options ...Option) (*Provider, error) {
	if err := config.init(); err != nil {
		return nil, err
	}
	zoneURL, _ := config.Zone.BaseURL()
	ret := &Provider{
		config:     config,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		clients:    collection.NewSyncMap[string, *oauth.Client](),
	}
	for _, option := range options {
		option(ret)
	}
	if ret.verifier == nil {
		ret.verifier = NewVerifier(zoneURL, config.ServerURL, "", config.ClockSkew, config.JWKSCacheTTL, ret.httpClient)
		if len(config.RequiredScopes) > 0 {
			ret.verifier.WithRequiredScopes(config.RequiredScopes...)
		}
	}
	ret.metadata = newMetadataService(config, ret.httpClient)
	return ret, nil
}

// Verifier exposes the token verifier.
func (p *Provider) Verifier() *Verifier { return p.verifier }

// Authenticate validates the bearer token on an inbound request and returns
// the claims together with the raw token.
func (p *Provider) Authenticate(r *http.Request) (*Claims, string, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, "", &oauth.AuthenticationError{Reason: "missing token"}
	}
	claims, err := p.verifier.VerifyToken(r.Context(), raw)
	if err != nil {
		return nil, "", err
	}
	return claims, raw, nil
}

// exchangeClient returns the zone-bound OAuth client used for delegation,
// creating it on first use.
func (p *Provider) exchangeClient(zoneKey string) (*oauth.Client, error) {
	if client, ok := p.clients.Get(zoneKey); ok {
		return client, nil
	}
	strategy, err := p.config.authStrategy(zoneKey)
	if err != nil {
		return nil, err
	}
	zone := p.config.Zone
	if zoneKey != zone.Key() { // multi-zone request: zone id under same base domain
		zone = oauth.Zone{ID: zoneKey, BaseDomain: zone.BaseDomain}
	}
	client, err := oauth.New(zone,
		oauth.WithAuth(strategy),
		oauth.WithHTTPClient(p.httpClient),
		oauth.WithEndpoints(p.config.Endpoints))
	if err != nil {
		return nil, err
	}
	p.clients.Put(zoneKey, client)
	return client, nil
}

// Delegate performs the declared exchanges on behalf of the caller and
// returns a fully materialized AccessContext. Failures never abort: protocol
// errors land in the per-resource slot, terminal transport and configuration
// errors in the global slot, and the tool body is expected to consult
// HasErrors before using a token.
func (p *Provider) Delegate(ctx context.Context, subjectToken string, grant *ToolGrant) *AccessContext {
	return p.delegate(ctx, subjectToken, p.config.Zone.Key(), grant)
}

func (p *Provider) delegate(ctx context.Context, subjectToken, zoneKey string, grant *ToolGrant) *AccessContext {
	access := NewAccessContext()
	if grant == nil || len(grant.Resources) == 0 {
		return access
	}
	if subjectToken == "" {
		access.SetError(&Reason{Code: "authentication_required", Message: "no authentication token available"})
		return access
	}
	client, err := p.exchangeClient(zoneKey)
	if err != nil {
		access.SetError(&Reason{Code: "server_configuration", Message: err.Error()})
		return access
	}
	limit := grant.MaxParallel
	if limit <= 0 || limit > p.config.MaxConcurrentExchanges {
		limit = p.config.MaxConcurrentExchanges
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for _, resource := range grant.Resources {
		resource := resource
		group.Go(func() error {
			token, err := client.ExchangeToken(groupCtx, &oauth.ExchangeRequest{
				SubjectToken:       subjectToken,
				SubjectTokenType:   oauth.TokenTypeAccessToken,
				Resource:           resource,
				RequestedTokenType: oauth.TokenTypeAccessToken,
			})
			if err != nil {
				p.recordFailure(access, resource, err)
				return nil // per-resource failures are independent
			}
			if token.IssuedTokenType != "" && token.IssuedTokenType != oauth.TokenTypeAccessToken {
				access.SetResourceError(resource, &Reason{
					Code:    "unsupported_token_type",
					Message: "issued token type " + token.IssuedTokenType + " is not usable downstream",
				})
				return nil
			}
			access.SetToken(resource, token)
			return nil
		})
	}
	_ = group.Wait()
	return access
}

func (p *Provider) recordFailure(access *AccessContext, resource string, err error) {
	var exchangeErr *oauth.TokenExchangeError
	if errors.As(err, &exchangeErr) {
		access.SetResourceError(resource, &Reason{Code: exchangeErr.Code, Message: exchangeErr.Description})
		return
	}
	var protocolErr *oauth.ProtocolError
	if errors.As(err, &protocolErr) {
		access.SetResourceError(resource, &Reason{Code: protocolErr.Code, Message: protocolErr.Description})
		return
	}
	var configErr *oauth.ConfigError
	if errors.As(err, &configErr) {
		access.SetError(&Reason{Code: "server_configuration", Message: configErr.Message})
		return
	}
	// terminal transport failure after retries
	p.logger.Warn("token exchange failed", "resource", resource, "error", err)
	access.SetError(&Reason{Code: "exchange_unavailable", Message: err.Error()})
}
