package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/viant/mcp-auth/oauth/meta"
)

const (
	oauthProtectedResourcePath   = "/.well-known/oauth-protected-resource"
	oauthAuthorizationServerPath = "/.well-known/oauth-authorization-server"
	statusPath                   = "/status"
)

// metadataService publishes the RFC 9728 and RFC 8414 discovery documents
// for the protected server and mirrors the upstream zone document.
type metadataService struct {
	config     *Config
	httpClient *http.Client

	mux          sync.Mutex
	mirrored     *meta.AuthorizationServerMetadata
	mirroredTime time.Time
}

func newMetadataService(config *Config, httpClient *http.Client) *metadataService {
	return &metadataService{config: config, httpClient: httpClient}
}

// RegisterHandlers mounts the well-known and status endpoints onto the mux.
func (s *metadataService) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc(oauthProtectedResourcePath, s.protectedResourceHandler)
	mux.HandleFunc(oauthProtectedResourcePath+"/", s.protectedResourceHandler)
	mux.HandleFunc(oauthAuthorizationServerPath, s.authorizationServerHandler)
	mux.HandleFunc(statusPath, s.statusHandler)
}

// protectedResourceHandler serves one document per protected path per
// RFC 9728 Section 3.3: the path suffix selects the resource.
func (s *metadataService) protectedResourceHandler(w http.ResponseWriter, r *http.Request) {
	zoneURL, _ := s.config.Zone.BaseURL()
	resource := strings.TrimSuffix(s.config.ServerURL, "/")
	if suffix := strings.TrimPrefix(r.URL.Path, oauthProtectedResourcePath); suffix != "" && suffix != "/" {
		resource += suffix
	}
	document := &meta.ProtectedResourceMetadata{
		Resource:               resource,
		AuthorizationServers:   []string{zoneURL},
		BearerMethodsSupported: []string{"header"},
	}
	if mirrored := s.mirror(r); mirrored != nil {
		document.JSONWebKeySetURI = mirrored.JSONWebKeySetURI
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(document)
}

// authorizationServerHandler mirrors the upstream zone's RFC 8414 document.
func (s *metadataService) authorizationServerHandler(w http.ResponseWriter, r *http.Request) {
	document := s.mirror(r)
	if document == nil {
		http.Error(w, "authorization server metadata unavailable", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(document)
}

func (s *metadataService) mirror(r *http.Request) *meta.AuthorizationServerMetadata {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.mirrored != nil && time.Since(s.mirroredTime) < s.config.DiscoveryTTL {
		return s.mirrored
	}
	zoneURL, _ := s.config.Zone.BaseURL()
	document, err := meta.FetchAuthorizationServerMetadata(r.Context(), zoneURL, s.httpClient)
	if err != nil {
		return s.mirrored // stale mirror beats none
	}
	s.mirrored = document
	s.mirroredTime = time.Now()
	return document
}

func (s *metadataService) statusHandler(w http.ResponseWriter, _ *http.Request) {
	identity := ""
	if s.config.Credential != nil {
		identity = s.config.Credential.ClientID
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":   "healthy",
		"service":  s.config.ServerName,
		"identity": identity,
		"version":  s.config.Version,
	})
}

// App composes the HTTP application: well-known metadata and status endpoints
// unprotected, the MCP application mounted on the protected path behind the
// bearer middleware.
func (p *Provider) App(mcp http.Handler) http.Handler {
	mux := http.NewServeMux()
	p.metadata.RegisterHandlers(mux)
	mux.Handle(p.config.ProtectedPath, p.Middleware(mcp))
	mux.Handle(p.config.ProtectedPath+"/", p.Middleware(mcp))
	return mux
}
