package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/viant/mcp-auth/oauth"
	"github.com/viant/mcp-auth/oauth/meta"
)

func (m *AuthorizationService) metadataHandler(w http.ResponseWriter, _ *http.Request) {
	metadata := meta.AuthorizationServerMetadata{
		Issuer:                             m.Issuer,
		AuthorizationEndpoint:              m.Issuer + "/authorize",
		TokenEndpoint:                      m.Issuer + "/token",
		RegistrationEndpoint:               m.Issuer + "/register",
		IntrospectionEndpoint:              m.Issuer + "/introspect",
		RevocationEndpoint:                 m.Issuer + "/revoke",
		PushedAuthorizationRequestEndpoint: m.Issuer + "/par",
		JSONWebKeySetURI:                   m.Issuer + "/jwks",
		ScopesSupported:                    m.AuthorizedScopes,
		ResponseTypesSupported:             []string{"code"},
		GrantTypesSupported:                []string{"authorization_code", "refresh_token", "client_credentials", oauth.GrantTokenExchange},
		TokenEndpointAuthMethodsSupported:  []string{"client_secret_basic", "client_secret_post", "none"},
		CodeChallengeMethodsSupported:      []string{"S256"},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(metadata)
}

func (m *AuthorizationService) authorizeHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	clientID := query.Get("client_id")
	m.mux.Lock()
	known := m.knownClient(clientID)
	m.mux.Unlock()
	if !known {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}
	redirectURI := query.Get("redirect_uri")
	if redirectURI == "" {
		http.Error(w, "Missing redirect URI", http.StatusBadRequest)
		return
	}
	m.mux.Lock()
	code := m.nextID("code")
	m.codes[code] = &issuedCode{
		clientID:      clientID,
		redirectURI:   redirectURI,
		codeChallenge: query.Get("code_challenge"),
		resource:      query.Get("resource"),
	}
	m.mux.Unlock()
	redirectURL := fmt.Sprintf("%s?code=%s&state=%s", redirectURI, code, query.Get("state"))
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (m *AuthorizationService) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m.mux.Lock()
	if m.FailTokenWith != 0 && m.FailTokenTimes > 0 {
		m.FailTokenTimes--
		status := m.FailTokenWith
		m.mux.Unlock()
		http.Error(w, "transient failure", status)
		return
	}
	m.mux.Unlock()
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "invalid form data")
		return
	}
	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID = r.FormValue("client_id")
		clientSecret = r.FormValue("client_secret")
	}
	switch r.FormValue("grant_type") {
	case "authorization_code":
		m.authorizationCodeGrant(w, r, clientID)
	case "refresh_token":
		m.refreshGrant(w, r, clientID, clientSecret)
	case "client_credentials":
		m.clientCredentialsGrant(w, r, clientID, clientSecret)
	case oauth.GrantTokenExchange:
		m.exchangeGrant(w, r, clientID, clientSecret)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "")
	}
}

// authorizationCodeGrant verifies single-use codes and the PKCE binding.
func (m *AuthorizationService) authorizationCodeGrant(w http.ResponseWriter, r *http.Request, clientID string) {
	code := r.FormValue("code")
	m.mux.Lock()
	issued, ok := m.codes[code]
	if ok && issued.used {
		ok = false
	}
	if ok {
		issued.used = true
	}
	m.mux.Unlock()
	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "unknown or consumed code")
		return
	}
	if issued.codeChallenge != "" {
		verifier := r.FormValue("code_verifier")
		if verifier == "" || oauth.ChallengeS256(verifier) != issued.codeChallenge {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
			return
		}
	}
	if clientID != "" && clientID != issued.clientID {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "code issued to another client")
		return
	}
	audience := issued.resource
	if audience == "" {
		audience = issued.clientID
	}
	m.writeTokenResponse(w, issued.clientID, audience, true)
}

func (m *AuthorizationService) refreshGrant(w http.ResponseWriter, r *http.Request, clientID, clientSecret string) {
	refreshToken := r.FormValue("refresh_token")
	m.mux.Lock()
	revoked := m.revoked[refreshToken]
	m.mux.Unlock()
	if refreshToken == "" || revoked {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "refresh token rejected")
		return
	}
	m.writeTokenResponse(w, clientID, clientID, true)
}

func (m *AuthorizationService) clientCredentialsGrant(w http.ResponseWriter, r *http.Request, clientID, clientSecret string) {
	m.mux.Lock()
	valid := m.validClient(clientID, clientSecret)
	m.mux.Unlock()
	if !valid {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "")
		return
	}
	audience := r.FormValue("resource")
	if audience == "" {
		audience = clientID
	}
	m.writeTokenResponse(w, clientID, audience, false)
}

// exchangeGrant implements RFC 8693: the issued token's audience is the
// requested resource, so audience isolation is observable in tests.
func (m *AuthorizationService) exchangeGrant(w http.ResponseWriter, r *http.Request, clientID, clientSecret string) {
	subjectToken := r.FormValue("subject_token")
	if subjectToken == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "subject_token required")
		return
	}
	m.mux.Lock()
	revoked := m.revoked[subjectToken]
	m.mux.Unlock()
	if revoked {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "subject token revoked")
		return
	}
	resource := r.FormValue("resource")
	if resource == "" {
		resource = r.FormValue("audience")
	}
	m.mux.Lock()
	errorCode, denied := m.DeniedResources[resource]
	m.mux.Unlock()
	if denied {
		writeOAuthError(w, http.StatusBadRequest, errorCode, "exchange denied for "+resource)
		return
	}
	accessToken, err := m.MintToken("exchanged_subject", resource, time.Hour)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	response := map[string]interface{}{
		"access_token":      accessToken,
		"token_type":        "Bearer",
		"expires_in":        3600,
		"issued_token_type": oauth.TokenTypeAccessToken,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (m *AuthorizationService) writeTokenResponse(w http.ResponseWriter, subject, audience string, withRefresh bool) {
	expiresIn := 3600
	accessToken, err := m.MintToken(subject, audience, time.Duration(expiresIn)*time.Second)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	response := map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
	}
	if withRefresh {
		m.mux.Lock()
		response["refresh_token"] = m.nextID("refresh")
		m.mux.Unlock()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (m *AuthorizationService) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	request := &oauth.RegisterRequest{}
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client_metadata", "malformed registration request")
		return
	}
	if len(request.RedirectURIs) == 0 && len(request.GrantTypes) == 0 {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client_metadata", "redirect_uris or grant_types required")
		return
	}
	m.mux.Lock()
	clientID := m.nextID("client")
	clientSecret := m.nextID("secret")
	m.registered[clientID] = clientSecret
	m.mux.Unlock()
	response := &oauth.RegisteredClient{
		ClientID:                clientID,
		ClientSecret:            clientSecret,
		ClientIDIssuedAt:        time.Now().Unix(),
		ClientName:              request.ClientName,
		RedirectURIs:            request.RedirectURIs,
		GrantTypes:              request.GrantTypes,
		TokenEndpointAuthMethod: request.TokenEndpointAuthMethod,
		Scope:                   request.Scope,
		JWKSURL:                 request.JWKSURL,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(response)
}

func (m *AuthorizationService) introspectHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	token := r.FormValue("token")
	m.mux.Lock()
	active := token != "" && !m.revoked[token]
	m.mux.Unlock()
	response := map[string]interface{}{"active": active}
	if active {
		response["iss"] = m.Issuer
		response["token_type"] = "Bearer"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// revokeHandler succeeds for unknown tokens per RFC 7009 Section 2.2.
func (m *AuthorizationService) revokeHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if token := r.FormValue("token"); token != "" {
		m.mux.Lock()
		m.revoked[token] = true
		m.mux.Unlock()
	}
	w.WriteHeader(http.StatusOK)
}

func (m *AuthorizationService) parHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	m.mux.Lock()
	requestURI := "urn:ietf:params:oauth:request_uri:" + m.nextID("par")
	m.pushed[requestURI] = r.PostForm
	m.mux.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"request_uri": requestURI,
		"expires_in":  90,
	})
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
