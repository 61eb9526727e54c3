package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/viant/scy/auth/authorizer"
	"golang.org/x/sync/singleflight"

	"github.com/viant/mcp-auth/client/auth/store"
	"github.com/viant/mcp-auth/internal/collection"
	"github.com/viant/mcp-auth/oauth"
	"github.com/viant/mcp-auth/oauth/meta"
)

// ErrNotAuthenticated is returned when no usable token exists for a session
// and a new authorization is required.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthChallenge describes a pending authorization awaiting user completion.
type AuthChallenge struct {
	ContextID        string `json:"contextID"`
	ServerName       string `json:"serverName"`
	AuthorizationURL string `json:"authorizationURL"`
	State            string `json:"state"`
}

// storedToken couples a token record with its issuing zone so refresh can be
// routed without re-discovery.
type storedToken struct {
	oauth.Token
	Issuer string `json:"issuer"`
}

// Coordinator drives OAuth for an MCP client talking to one or more upstream
// MCP servers: discovery, dynamic client registration cached per zone, the
// PKCE authorization-code flow, token persistence and the per-(context,
// server) session state machine.
type Coordinator struct {
	config     *Config
	storage    store.Store
	httpClient *http.Client
	logger     *slog.Logger

	sessions      *collection.SyncMap[string, *Session]
	clients       *collection.SyncMap[string, *oauth.Client]
	registrations singleflight.Group

	subscribers   []Subscriber
	subscriberMux sync.Mutex
	deliveryMux   sync.Mutex

	waiterMux sync.Mutex
	waiters   map[string][]chan *CompletionEvent

	closeOnce sync.Once
	stop      chan struct{}

	// profileConnect lets a profile (Local) layer its own connect behaviour
	// over the base coordinator for clients obtained via ClientManager.
	profileConnect func(ctx context.Context, contextID, serverName string) (*Session, error)
}

// Option mutates a coordinator during construction.
type Option func(*Coordinator)

// WithStorage sets the storage backend.
func WithStorage(storage store.Store) Option {
	return func(c *Coordinator) {
		c.storage = storage
	}
}

// WithHTTPClient sets the transport used for server probes and zone calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Coordinator) {
		c.httpClient = client
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func newCoordinator(config *Config, options ...Option) (*Coordinator, error) {
	if config == nil {
		return nil, oauth.NewConfigError("coordinator requires config")
	}
	if err := config.init(); err != nil {
		return nil, err
	}
	ret := &Coordinator{
		config:     config,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		sessions:   collection.NewSyncMap[string, *Session](),
		clients:    collection.NewSyncMap[string, *oauth.Client](),
		waiters:    map[string][]chan *CompletionEvent{},
		stop:       make(chan struct{}),
	}
	for _, option := range options {
		option(ret)
	}
	if ret.storage == nil {
		if config.StorageURL != "" {
			fileStore, err := store.NewFileStore(config.StorageURL)
			if err != nil {
				return nil, err
			}
			ret.storage = fileStore
		} else {
			ret.storage = store.NewMemoryStore()
		}
	}
	if err := ret.loadPreconfiguredClients(context.Background()); err != nil {
		return nil, err
	}
	go ret.sweepLoop()
	return ret, nil
}

// Close stops background expiry sweeps.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	return nil
}

// Storage exposes the underlying store, e.g. to share tokens across
// coordinator instances.
func (c *Coordinator) Storage() store.Store { return c.storage }

func sessionKey(contextID, serverName string) string { return contextID + "/" + serverName }

// Session returns the session for (contextID, serverName), creating it on
// first use.
func (c *Coordinator) Session(contextID, serverName string) *Session {
	key := sessionKey(contextID, serverName)
	if existing, ok := c.sessions.Get(key); ok {
		return existing
	}
	created := newSession(contextID, serverName)
	c.sessions.Put(key, created)
	return created
}

// Sessions lists sessions scoped to one context.
func (c *Coordinator) Sessions(contextID string) []*Session {
	var ret []*Session
	c.sessions.Range(func(key string, session *Session) bool {
		if session.ContextID == contextID {
			ret = append(ret, session)
		}
		return true
	})
	return ret
}

// Connect drives the session toward an operational state. On a 401 challenge
// it prepares the authorization-code flow and leaves the session in
// StatusAuthPending for the caller (or profile) to complete.
func (c *Coordinator) Connect(ctx context.Context, contextID, serverName string) (*Session, error) {
	server, err := c.config.Server(serverName)
	if err != nil {
		return nil, err
	}
	session := c.Session(contextID, serverName)
	if session.RequiresUserAction() {
		return session, nil
	}
	if err = session.transition(StatusConnecting, nil); err != nil {
		return session, err
	}
	token, _ := c.Token(ctx, contextID, serverName)
	statusCode, challenge, err := c.probe(ctx, server.URL, token)
	if err != nil {
		_ = session.transition(StatusConnectionFailed, err)
		return session, err
	}
	switch {
	case statusCode == http.StatusUnauthorized:
		if err = session.transition(StatusAuthenticating, nil); err != nil {
			return session, err
		}
		authorizationURL, state, err := c.beginAuthorization(ctx, session, server, challenge)
		if err != nil {
			_ = session.transition(StatusAuthFailed, err)
			return session, err
		}
		session.setPending(authorizationURL, state)
		if err = session.transition(StatusAuthPending, nil); err != nil {
			return session, err
		}
		return session, nil
	case statusCode >= 500:
		err = fmt.Errorf("server %s returned %d", serverName, statusCode)
		_ = session.transition(StatusConnectionFailed, err)
		return session, err
	default:
		_ = session.transition(StatusConnected, nil)
		return session, nil
	}
}

// probe issues an unauthenticated-or-bearer GET against the MCP server,
// retrying transient 5xx responses with backoff.
func (c *Coordinator) probe(ctx context.Context, serverURL string, token *oauth.Token) (int, *oauth.Challenge, error) {
	var lastStatus int
	var lastChallenge *oauth.Challenge
	delay := 200 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL, nil)
		if err != nil {
			return 0, nil, err
		}
		if token != nil && token.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, &oauth.NetworkError{Endpoint: serverURL, Err: err}
		}
		lastStatus = resp.StatusCode
		lastChallenge = oauth.ChallengeFromResponse(resp)
		resp.Body.Close()
		if resp.StatusCode < 500 {
			return lastStatus, lastChallenge, nil
		}
	}
	return lastStatus, lastChallenge, nil
}

// beginAuthorization runs discovery, registration and PKCE setup and returns
// the authorization URL plus the correlation state. The pending record and
// the state reverse index are stored before the user is redirected.
func (c *Coordinator) beginAuthorization(ctx context.Context, session *Session, server *ServerConfig, challenge *oauth.Challenge) (string, string, error) {
	issuer, err := c.resolveIssuer(ctx, server, challenge)
	if err != nil {
		return "", "", err
	}
	zoneClient, err := c.zoneClient(issuer)
	if err != nil {
		return "", "", err
	}
	registered, err := c.ensureRegisteredClient(ctx, zoneClient)
	if err != nil {
		return "", "", err
	}
	pkce, err := oauth.NewPKCE()
	if err != nil {
		return "", "", err
	}
	state, err := oauth.NewState()
	if err != nil {
		return "", "", err
	}
	redirectURI := c.redirectURI()
	resource := baseResource(server.URL)
	pending := &store.Pending{
		Verifier:    pkce.CodeVerifier,
		State:       state,
		ClientID:    registered.ClientID,
		RedirectURI: redirectURI,
		Resource:    resource,
		Issuer:      issuer,
		Scope:       server.Scope,
		CreatedAt:   time.Now(),
	}
	if err = store.SetJSON(ctx, c.storage, store.PendingKey(session.ContextID, session.ServerName), pending); err != nil {
		return "", "", err
	}
	index := &store.StateIndex{ContextID: session.ContextID, ServerName: session.ServerName}
	if err = store.SetJSON(ctx, c.storage, store.StateKey(state), index); err != nil {
		return "", "", err
	}
	request := &oauth.AuthorizationRequest{
		ClientID:            registered.ClientID,
		RedirectURI:         redirectURI,
		ResponseType:        "code",
		Scope:               server.Scope,
		State:               state,
		CodeChallenge:       pkce.CodeChallenge,
		CodeChallengeMethod: pkce.CodeChallengeMethod,
		Resource:            resource,
	}
	if c.config.UsePAR {
		if metadata, err := zoneClient.Metadata(ctx); err == nil && metadata.PushedAuthorizationRequestEndpoint != "" {
			pushed, err := zoneClient.PushAuthorization(ctx, request)
			if err == nil {
				authorizationURL, err := zoneClient.AuthorizationURLFromRequestURI(ctx, registered.ClientID, pushed.RequestURI)
				return authorizationURL, state, err
			}
			c.logger.Warn("pushed authorization failed, falling back to plain request", "error", err)
		}
	}
	authorizationURL, err := zoneClient.AuthorizationURL(ctx, request)
	if err != nil {
		return "", "", err
	}
	return authorizationURL, state, nil
}

// resolveIssuer picks the authorization server: a configured zone wins,
// otherwise the first server listed by the RFC 9728 hint.
func (c *Coordinator) resolveIssuer(ctx context.Context, server *ServerConfig, challenge *oauth.Challenge) (string, error) {
	if server.Zone != nil {
		return server.Zone.BaseURL()
	}
	metadataURL := ""
	if challenge != nil {
		metadataURL = challenge.ResourceMetadataURL
	}
	if metadataURL == "" {
		metadataURL = baseResource(server.URL) + strings.TrimPrefix(meta.ProtectedResourcePath, "/")
	}
	document, err := meta.FetchProtectedResourceMetadata(ctx, metadataURL, c.httpClient)
	if err != nil {
		return "", err
	}
	return document.AuthorizationServers[0], nil
}

// zoneClient returns the cached OAuth client for an issuer.
func (c *Coordinator) zoneClient(issuer string) (*oauth.Client, error) {
	if client, ok := c.clients.Get(issuer); ok {
		return client, nil
	}
	client, err := oauth.New(oauth.Zone{URL: issuer}, oauth.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, err
	}
	c.clients.Put(issuer, client)
	return client, nil
}

// ensureRegisteredClient returns the (zone, app name) client record,
// registering via RFC 7591 at most once; concurrent first-callers coalesce.
func (c *Coordinator) ensureRegisteredClient(ctx context.Context, zoneClient *oauth.Client) (*oauth.RegisteredClient, error) {
	zone := zoneClient.Zone()
	key := store.ClientKey(zone.Key(), c.config.ClientName)
	registered := &oauth.RegisteredClient{}
	if ok, err := store.GetJSON(ctx, c.storage, key, registered); err != nil {
		return nil, err
	} else if ok {
		return registered, nil
	}
	result, err, _ := c.registrations.Do(key, func() (interface{}, error) {
		cached := &oauth.RegisteredClient{}
		if ok, err := store.GetJSON(ctx, c.storage, key, cached); err != nil {
			return nil, err
		} else if ok {
			return cached, nil
		}
		created, err := zoneClient.RegisterClient(ctx, &oauth.RegisterRequest{
			ClientName:              c.config.ClientName,
			RedirectURIs:            []string{c.redirectURI()},
			GrantTypes:              c.config.GrantTypes,
			ResponseTypes:           []string{"code"},
			TokenEndpointAuthMethod: c.config.TokenEndpointAuthMethod,
			JWKSURL:                 c.config.ClientJWKSURL,
		})
		if err != nil {
			return nil, err
		}
		if err = store.SetJSON(ctx, c.storage, key, created); err != nil {
			return nil, err
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*oauth.RegisteredClient), nil
}

// CompleteAuthorization consumes an authorization-server callback. The state
// is looked up exactly once and the pending record is single-use; a replayed
// or expired state yields invalid_request.
func (c *Coordinator) CompleteAuthorization(ctx context.Context, params map[string]string) (*CompletionEvent, error) {
	state := params["state"]
	if state == "" {
		return nil, &oauth.ProtocolError{Code: "invalid_request", Description: "missing state"}
	}
	index := &store.StateIndex{}
	if ok, err := store.ConsumeJSON(ctx, c.storage, store.StateKey(state), index); err != nil {
		return nil, err
	} else if !ok {
		return nil, &oauth.ProtocolError{Code: "invalid_request", Description: "unknown or replayed state"}
	}
	pending := &store.Pending{}
	if ok, err := store.ConsumeJSON(ctx, c.storage, store.PendingKey(index.ContextID, index.ServerName), pending); err != nil {
		return nil, err
	} else if !ok || pending.State != state {
		return nil, &oauth.ProtocolError{Code: "invalid_request", Description: "no pending authorization"}
	}
	session := c.Session(index.ContextID, index.ServerName)
	_ = session.transition(StatusAuthenticating, nil)

	if errorCode := params["error"]; errorCode != "" {
		cause := fmt.Errorf("authorization denied: %s %s", errorCode, params["error_description"])
		return c.fail(session, state, errorCode, cause), cause
	}
	code := params["code"]
	if code == "" {
		cause := &oauth.ProtocolError{Code: "invalid_request", Description: "missing code"}
		return c.fail(session, state, cause.Code, cause), cause
	}
	token, err := c.redeemCode(ctx, pending, code)
	if err != nil {
		return c.fail(session, state, reasonOf(err), err), err
	}
	record := &storedToken{Token: *token, Issuer: pending.Issuer}
	if err = store.SetJSON(ctx, c.storage, store.TokenKey(index.ContextID, index.ServerName), record); err != nil {
		// never report success for a token that was not durably written
		return c.fail(session, state, "storage_failure", err), err
	}
	_ = session.transition(StatusConnected, nil)
	event := &CompletionEvent{
		ContextID:  index.ContextID,
		ServerName: index.ServerName,
		State:      state,
		Success:    true,
		Metadata:   session.metadataCopy(),
	}
	c.publish(event)
	return event, nil
}

// redeemCode exchanges the authorization code, authenticating with the
// registered client credentials when present.
func (c *Coordinator) redeemCode(ctx context.Context, pending *store.Pending, code string) (*oauth.Token, error) {
	registered := &oauth.RegisteredClient{}
	key := store.ClientKey((&oauth.Zone{URL: pending.Issuer}).Key(), c.config.ClientName)
	_, err := store.GetJSON(ctx, c.storage, key, registered)
	if err != nil {
		return nil, err
	}
	var strategy oauth.AuthStrategy = oauth.NoneAuth{}
	if registered.ClientSecret != "" {
		strategy = &oauth.BasicAuth{ClientID: registered.ClientID, ClientSecret: registered.ClientSecret}
	}
	exchangeClient, err := oauth.New(oauth.Zone{URL: pending.Issuer},
		oauth.WithHTTPClient(c.httpClient),
		oauth.WithAuth(strategy))
	if err != nil {
		return nil, err
	}
	request := &oauth.CodeExchangeRequest{
		Code:         code,
		CodeVerifier: pending.Verifier,
		RedirectURI:  pending.RedirectURI,
		Resource:     pending.Resource,
	}
	if registered.ClientSecret == "" {
		request.ClientID = pending.ClientID
	}
	return exchangeClient.AuthorizationCode(ctx, request)
}

func (c *Coordinator) fail(session *Session, state, reason string, cause error) *CompletionEvent {
	_ = session.transition(StatusAuthFailed, cause)
	event := &CompletionEvent{
		ContextID:  session.ContextID,
		ServerName: session.ServerName,
		State:      state,
		Success:    false,
		Reason:     reason,
		Metadata:   session.metadataCopy(),
	}
	c.publish(event)
	return event
}

func reasonOf(err error) string {
	var protocolErr *oauth.ProtocolError
	if errors.As(err, &protocolErr) {
		return protocolErr.Code
	}
	if oauth.IsRetriable(err) {
		return "server_unavailable"
	}
	return "exchange_failed"
}

// Token returns a usable access token for the session, refreshing it behind
// the 30s pre-expiry margin when a refresh token is available. An expired,
// non-refreshable record is discarded and ErrNotAuthenticated returned.
func (c *Coordinator) Token(ctx context.Context, contextID, serverName string) (*oauth.Token, error) {
	key := store.TokenKey(contextID, serverName)
	record := &storedToken{}
	ok, err := store.GetJSON(ctx, c.storage, key, record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if !record.Expired(c.config.TokenMargin) {
		token := record.Token
		return &token, nil
	}
	if record.RefreshToken != "" {
		if refreshed, err := c.refresh(ctx, record); err == nil {
			replaced := &storedToken{Token: *refreshed, Issuer: record.Issuer}
			if err = store.SetJSON(ctx, c.storage, key, replaced); err != nil {
				return nil, err
			}
			return refreshed, nil
		}
		c.logger.Debug("token refresh failed, re-authentication required", "server", serverName)
	}
	// lazily discard the expired record and provoke a fresh 401
	_ = c.storage.Delete(ctx, key)
	session := c.Session(contextID, serverName)
	if session.Status() == StatusConnected {
		_ = session.transition(StatusConnecting, nil)
	}
	return nil, ErrNotAuthenticated
}

func (c *Coordinator) refresh(ctx context.Context, record *storedToken) (*oauth.Token, error) {
	zoneClient, err := c.zoneClient(record.Issuer)
	if err != nil {
		return nil, err
	}
	return zoneClient.Refresh(ctx, record.RefreshToken, record.Scope)
}

// GetAuthPending returns the pending challenge for a session, or nil when
// authorization completed or none is in flight.
func (c *Coordinator) GetAuthPending(ctx context.Context, contextID, serverName string) (*AuthChallenge, error) {
	session := c.Session(contextID, serverName)
	if !session.RequiresUserAction() {
		return nil, nil
	}
	return &AuthChallenge{
		ContextID:        contextID,
		ServerName:       serverName,
		AuthorizationURL: session.AuthorizationURL(),
		State:            session.State(),
	}, nil
}

// GetAuthChallenges lists pending challenges scoped to one context; another
// context's challenges are never visible.
func (c *Coordinator) GetAuthChallenges(ctx context.Context, contextID string) ([]*AuthChallenge, error) {
	var ret []*AuthChallenge
	for _, session := range c.Sessions(contextID) {
		if !session.RequiresUserAction() {
			continue
		}
		ret = append(ret, &AuthChallenge{
			ContextID:        session.ContextID,
			ServerName:       session.ServerName,
			AuthorizationURL: session.AuthorizationURL(),
			State:            session.State(),
		})
	}
	return ret, nil
}

// CancelAuthorization aborts a pending authorization, cleaning up the pending
// record and the state reverse index.
func (c *Coordinator) CancelAuthorization(ctx context.Context, contextID, serverName string) error {
	session := c.Session(contextID, serverName)
	if !session.RequiresUserAction() {
		return nil
	}
	state := session.State()
	_, _, _ = c.storage.Consume(ctx, store.PendingKey(contextID, serverName))
	if state != "" {
		_, _, _ = c.storage.Consume(ctx, store.StateKey(state))
	}
	cause := errors.New("cancelled")
	_ = session.transition(StatusAuthFailed, cause)
	c.publish(&CompletionEvent{
		ContextID:  contextID,
		ServerName: serverName,
		State:      state,
		Success:    false,
		Reason:     "cancelled",
		Metadata:   session.metadataCopy(),
	})
	return nil
}

// sweepLoop expires pending authorizations the user never completed.
func (c *Coordinator) sweepLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *Coordinator) sweep() {
	ctx := context.Background()
	c.sessions.Range(func(key string, session *Session) bool {
		if !session.RequiresUserAction() {
			return true
		}
		since := session.pendingSince()
		if since.IsZero() || time.Since(since) <= c.config.PendingTTL {
			return true
		}
		state := session.State()
		_, _, _ = c.storage.Consume(ctx, store.PendingKey(session.ContextID, session.ServerName))
		if state != "" {
			_, _, _ = c.storage.Consume(ctx, store.StateKey(state))
		}
		cause := errors.New("timeout")
		_ = session.transition(StatusAuthFailed, cause)
		c.publish(&CompletionEvent{
			ContextID:  session.ContextID,
			ServerName: session.ServerName,
			State:      state,
			Success:    false,
			Reason:     "timeout",
			Metadata:   session.metadataCopy(),
		})
		return true
	})
}

// waitForCompletion blocks until the callback for state arrives, the pending
// authorization expires, or ctx is cancelled.
func (c *Coordinator) waitForCompletion(ctx context.Context, state string) (*CompletionEvent, error) {
	waiter := make(chan *CompletionEvent, 1)
	c.waiterMux.Lock()
	c.waiters[state] = append(c.waiters[state], waiter)
	c.waiterMux.Unlock()
	defer func() {
		c.waiterMux.Lock()
		remaining := c.waiters[state][:0]
		for _, candidate := range c.waiters[state] {
			if candidate != waiter {
				remaining = append(remaining, candidate)
			}
		}
		if len(remaining) == 0 {
			delete(c.waiters, state)
		} else {
			c.waiters[state] = remaining
		}
		c.waiterMux.Unlock()
	}()
	select {
	case event := <-waiter:
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) signalWaiters(event *CompletionEvent) {
	c.waiterMux.Lock()
	waiters := c.waiters[event.State]
	delete(c.waiters, event.State)
	c.waiterMux.Unlock()
	for _, waiter := range waiters {
		waiter <- event
	}
}

// loadPreconfiguredClients seeds the registration cache from scy-managed
// oauth2 configs, so zones with provisioned clients skip dynamic
// registration.
func (c *Coordinator) loadPreconfiguredClients(ctx context.Context) error {
	for _, raw := range c.config.OAuth2ConfigURL {
		configURL := raw
		if c.config.EncryptionKey != "" {
			configURL += "|" + c.config.EncryptionKey
		}
		anAuthorizer := authorizer.New()
		oauthCfg := &authorizer.OAuthConfig{ConfigURL: configURL}
		if err := anAuthorizer.EnsureConfig(ctx, oauthCfg); err != nil {
			return fmt.Errorf("failed to load oauth2 config %q: %w", raw, err)
		}
		issuer, err := issuerBase(oauthCfg.Config.Endpoint.AuthURL)
		if err != nil {
			return err
		}
		record := &oauth.RegisteredClient{
			ClientID:     oauthCfg.Config.ClientID,
			ClientSecret: oauthCfg.Config.ClientSecret,
			RedirectURIs: []string{oauthCfg.Config.RedirectURL},
			GrantTypes:   c.config.GrantTypes,
		}
		key := store.ClientKey((&oauth.Zone{URL: issuer}).Key(), c.config.ClientName)
		if err = store.SetJSON(ctx, c.storage, key, record); err != nil {
			return err
		}
	}
	return nil
}

// redirectURI resolves the callback the authorization server redirects to.
func (c *Coordinator) redirectURI() string {
	if c.config.RedirectURI != "" {
		return c.config.RedirectURI
	}
	return fmt.Sprintf("http://%s:%d%s", c.config.Host, c.config.Port, c.config.CallbackPath)
}

// baseResource reduces a server URL to its scheme://host/ resource
// identifier.
func baseResource(serverURL string) string {
	parsed, err := url.Parse(serverURL)
	if err != nil || parsed.Host == "" {
		return serverURL
	}
	return parsed.Scheme + "://" + parsed.Host + "/"
}

func issuerBase(authURL string) (string, error) {
	parsed, err := url.Parse(authURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid auth url %q", authURL)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}
