package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
)

// Local is the single-process coordinator profile: it runs a loopback HTTP
// listener for the authorization callback, opens the system browser and, by
// default, blocks Connect until the callback arrives.
type Local struct {
	*Coordinator

	serverMux sync.Mutex
	listener  net.Listener
	server    *http.Server
}

// NewLocal creates a Local coordinator.
func NewLocal(config *Config, options ...Option) (*Local, error) {
	coordinator, err := newCoordinator(config, options...)
	if err != nil {
		return nil, err
	}
	ret := &Local{Coordinator: coordinator}
	coordinator.profileConnect = ret.Connect
	return ret, nil
}

// Connect drives the session; when authorization is required it opens the
// browser and, with BlockUntilCallback (the default), waits for the callback
// and returns an operational session. With blocking disabled the caller
// polls GetAuthPending until it returns nil.
func (l *Local) Connect(ctx context.Context, contextID, serverName string) (*Session, error) {
	if err := l.ensureCallbackServer(); err != nil {
		return nil, err
	}
	session, err := l.Coordinator.Connect(ctx, contextID, serverName)
	if err != nil || !session.RequiresUserAction() {
		return session, err
	}
	if l.config.autoOpenBrowser() {
		if err := openBrowser(session.AuthorizationURL()); err != nil {
			l.logger.Warn("failed to open browser", "error", err)
		}
	}
	if !l.config.blockUntilCallback() {
		return session, nil
	}
	event, err := l.waitForCompletion(ctx, session.State())
	if err != nil {
		_ = l.CancelAuthorization(context.Background(), contextID, serverName)
		return session, err
	}
	if !event.Success {
		return session, fmt.Errorf("authorization failed: %s", event.Reason)
	}
	return session, nil
}

// ensureCallbackServer starts the loopback listener once; with Port 0 the
// kernel assigns one and the redirect URI follows it.
func (l *Local) ensureCallbackServer() error {
	l.serverMux.Lock()
	defer l.serverMux.Unlock()
	if l.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", l.config.Host, l.config.Port))
	if err != nil {
		return fmt.Errorf("failed to start callback listener: %w", err)
	}
	l.listener = listener
	l.config.Port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc(l.config.CallbackPath, l.callbackHandler)
	l.server = &http.Server{Handler: mux}
	go func() {
		if err := l.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Warn("callback server terminated", "error", err)
		}
	}()
	return nil
}

func (l *Local) callbackHandler(w http.ResponseWriter, r *http.Request) {
	params := map[string]string{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	_, err := l.CompleteAuthorization(r.Context(), params)
	w.Header().Set("Content-Type", "text/html")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprintf(w, "<html><body><h3>Authorization failed</h3><p>%s</p></body></html>", err)
		return
	}
	_, _ = fmt.Fprint(w, "<html><body><h3>Authorization complete</h3><p>You can close this window.</p></body></html>")
}

// Close stops the loopback listener and background sweeps.
func (l *Local) Close() error {
	l.serverMux.Lock()
	if l.server != nil {
		_ = l.server.Close()
		l.server = nil
		l.listener = nil
	}
	l.serverMux.Unlock()
	return l.Coordinator.Close()
}
