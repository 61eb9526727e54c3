package auth

import (
	"fmt"
	"sync"

	"github.com/viant/mcp-auth/oauth"
)

// Reason describes why a delegation failed.
type Reason struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (r *Reason) String() string {
	if r.Message == "" {
		return r.Code
	}
	return r.Code + ": " + r.Message
}

// Access is the per-resource outcome of a delegation: exactly one of Token or
// Err is set.
type Access struct {
	Token *oauth.Token
	Err   *Reason
}

// AccessContext is the per-call projection of downstream delegations. It is
// populated before a granted tool body runs and consumed read-only by the
// tool.
type AccessContext struct {
	mux       sync.RWMutex
	resources map[string]*Access
	globalErr *Reason
}

// NewAccessContext creates an empty context.
func NewAccessContext() *AccessContext {
	return &AccessContext{resources: map[string]*Access{}}
}

// SetToken records a successful delegation; it clears any previous error for
// the resource.
func (c *AccessContext) SetToken(resource string, token *oauth.Token) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.resources[resource] = &Access{Token: token}
}

// SetResourceError records a per-resource failure; it clears any previous
// token for the resource.
func (c *AccessContext) SetResourceError(resource string, reason *Reason) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.resources[resource] = &Access{Err: reason}
}

// SetError records a failure affecting all resources.
func (c *AccessContext) SetError(reason *Reason) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.globalErr = reason
}

// HasError reports whether a global error is present.
func (c *AccessContext) HasError() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.globalErr != nil
}

// HasErrors reports whether a global or any per-resource error is present.
func (c *AccessContext) HasErrors() bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	if c.globalErr != nil {
		return true
	}
	for _, access := range c.resources {
		if access.Err != nil {
			return true
		}
	}
	return false
}

// HasResourceError reports whether the given resource failed.
func (c *AccessContext) HasResourceError(resource string) bool {
	c.mux.RLock()
	defer c.mux.RUnlock()
	access, ok := c.resources[resource]
	return ok && access.Err != nil
}

// GetError returns the global error, or nil.
func (c *AccessContext) GetError() *Reason {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.globalErr
}

// GetResourceErrors returns the failure reason for a resource, or nil.
func (c *AccessContext) GetResourceErrors(resource string) *Reason {
	c.mux.RLock()
	defer c.mux.RUnlock()
	if access, ok := c.resources[resource]; ok {
		return access.Err
	}
	return nil
}

// GetErrors returns all failure reasons keyed by resource; the global error
// is keyed by the empty string.
func (c *AccessContext) GetErrors() map[string]*Reason {
	c.mux.RLock()
	defer c.mux.RUnlock()
	ret := map[string]*Reason{}
	if c.globalErr != nil {
		ret[""] = c.globalErr
	}
	for resource, access := range c.resources {
		if access.Err != nil {
			ret[resource] = access.Err
		}
	}
	return ret
}

// Access returns the delegated token for the resource, or an error when the
// delegation failed or was never requested.
func (c *AccessContext) Access(resource string) (*oauth.Token, error) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	if c.globalErr != nil {
		return nil, fmt.Errorf("delegation failed: %s", c.globalErr)
	}
	access, ok := c.resources[resource]
	if !ok {
		return nil, fmt.Errorf("resource %q was not granted", resource)
	}
	if access.Err != nil {
		return nil, fmt.Errorf("delegation for %q failed: %s", resource, access.Err)
	}
	return access.Token, nil
}

// SuccessfulResources lists resources holding a token.
func (c *AccessContext) SuccessfulResources() []string {
	c.mux.RLock()
	defer c.mux.RUnlock()
	var ret []string
	for resource, access := range c.resources {
		if access.Token != nil {
			ret = append(ret, resource)
		}
	}
	return ret
}

// FailedResources lists resources holding a failure.
func (c *AccessContext) FailedResources() []string {
	c.mux.RLock()
	defer c.mux.RUnlock()
	var ret []string
	for resource, access := range c.resources {
		if access.Err != nil {
			ret = append(ret, resource)
		}
	}
	return ret
}

// Status summarizes the context: success, partial_error or error.
func (c *AccessContext) Status() string {
	if c.HasError() {
		return "error"
	}
	if c.HasErrors() {
		return "partial_error"
	}
	return "success"
}
