package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viant/mcp-auth/oauth"
)

// Remote is the multi-tenant coordinator profile: it never opens a browser,
// surfaces authorization URLs through GetAuthChallenges and exposes a
// framework-neutral completion endpoint the embedding application wires into
// its own router.
type Remote struct {
	*Coordinator
}

// NewRemote creates a Remote coordinator. The redirect URI must point at the
// route the embedding application connects to the completion endpoint.
func NewRemote(config *Config, options ...Option) (*Remote, error) {
	if config != nil && config.RedirectURI == "" {
		return nil, oauth.NewConfigError("remote coordinator requires redirectURI")
	}
	coordinator, err := newCoordinator(config, options...)
	if err != nil {
		return nil, err
	}
	return &Remote{Coordinator: coordinator}, nil
}

// CompletionEndpoint returns the framework-neutral callable processing an
// authorization callback parameter map.
func (r *Remote) CompletionEndpoint() func(ctx context.Context, params map[string]string) (*CompletionEvent, error) {
	return r.CompleteAuthorization
}

// CallbackHandler adapts the completion endpoint to net/http. It responds
// with {"status":"complete"} on success and a 4xx JSON document on error.
func (r *Remote) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		params := map[string]string{}
		for key, values := range request.URL.Query() {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
		event, err := r.CompleteAuthorization(request.Context(), params)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			status := http.StatusBadRequest
			var protocolErr *oauth.ProtocolError
			if !errors.As(err, &protocolErr) && oauth.IsRetriable(err) {
				status = http.StatusBadGateway
			}
			w.WriteHeader(status)
			payload := map[string]string{"status": "error", "error": err.Error()}
			if protocolErr != nil {
				payload["error"] = protocolErr.Code
				payload["error_description"] = protocolErr.Description
			}
			_ = json.NewEncoder(w).Encode(payload)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "complete", "state": event.State})
	}
}
