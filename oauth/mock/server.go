package mock

import "net/http/httptest"

// HTTPTestAuthorizationServer binds an AuthorizationService to an httptest
// server so the issuer URL is concrete.
type HTTPTestAuthorizationServer struct {
	*AuthorizationService
	Server *httptest.Server
}

// NewHTTPTestAuthorizationServer starts a mock authorization server.
func NewHTTPTestAuthorizationServer(options ...Option) (*HTTPTestAuthorizationServer, error) {
	service, err := NewAuthorizationService(options...)
	if err != nil {
		return nil, err
	}
	server := &HTTPTestAuthorizationServer{AuthorizationService: service}
	server.Server = httptest.NewServer(service.Handler())
	service.Issuer = server.Server.URL
	return server, nil
}

// Close shuts the underlying server down.
func (s *HTTPTestAuthorizationServer) Close() {
	if s.Server != nil {
		s.Server.Close()
	}
	s.Server = nil
}
