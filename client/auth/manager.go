package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/viant/mcp-auth/internal/collection"
	"github.com/viant/mcp-auth/oauth"
)

// Client is a coordinator view bound to one context. All of its storage and
// session access is prefixed by the context id, so two clients never observe
// each other's tokens or pending records.
type Client struct {
	ContextID   string
	coordinator *Coordinator
}

// Connect drives the session for a server within this context, via the
// profile's connect behaviour when one is layered over the coordinator.
func (c *Client) Connect(ctx context.Context, serverName string) (*Session, error) {
	if c.coordinator.profileConnect != nil {
		return c.coordinator.profileConnect(ctx, c.ContextID, serverName)
	}
	return c.coordinator.Connect(ctx, c.ContextID, serverName)
}

// Token returns a usable token for a server within this context.
func (c *Client) Token(ctx context.Context, serverName string) (*oauth.Token, error) {
	return c.coordinator.Token(ctx, c.ContextID, serverName)
}

// AuthChallenges lists this context's pending authorizations.
func (c *Client) AuthChallenges(ctx context.Context) ([]*AuthChallenge, error) {
	return c.coordinator.GetAuthChallenges(ctx, c.ContextID)
}

// Session returns the session for a server within this context.
func (c *Client) Session(serverName string) *Session {
	return c.coordinator.Session(c.ContextID, serverName)
}

// ClientManager owns a cache of coordinator-bound clients keyed by context
// id, the isolation boundary between end users.
type ClientManager struct {
	coordinator *Coordinator
	clients     *collection.SyncMap[string, *Client]
}

// NewClientManager creates a manager over the coordinator.
func NewClientManager(coordinator *Coordinator) *ClientManager {
	return &ClientManager{
		coordinator: coordinator,
		clients:     collection.NewSyncMap[string, *Client](),
	}
}

// Client returns the client bound to contextID, creating it on first use. An
// empty contextID allocates a fresh one.
func (m *ClientManager) Client(contextID string) *Client {
	if contextID == "" {
		contextID = uuid.NewString()
	}
	return m.clients.GetOrPut(contextID, func() *Client {
		return &Client{ContextID: contextID, coordinator: m.coordinator}
	})
}

// Contexts lists context ids with an active client.
func (m *ClientManager) Contexts() []string {
	var ret []string
	m.clients.Range(func(key string, _ *Client) bool {
		ret = append(ret, key)
		return true
	})
	return ret
}
