package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"familytree/internal/apperr"
	"familytree/internal/security"
)

const (
	oauthStateCookie    = "oauth_state"
	oauthProviderCookie = "oauth_provider"
	oauthCookieTTL      = 10 * time.Minute
)

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// GoogleProvider configures sign-in with Google. It is nil when no client is configured.
func GoogleProvider(clientID, clientSecret string) *OAuthProvider {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &OAuthProvider{
		Name: "google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

func (h *AuthHandler) provider(r *http.Request) (OAuthProvider, bool) {
	provider, ok := h.oauthProviders[r.PathValue("provider")]
	if !ok || provider.Config == nil || provider.Config.ClientID == "" {
		return OAuthProvider{}, false
	}
	return provider, true
}

// StartOAuth redirects to the provider's consent page
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		respondWithError(w, h.logger, apperr.NotFound("oauth provider %q", r.PathValue("provider")))
		return
	}

	state := security.GenerateSessionID()
	http.SetCookie(w, security.CreateTempCookie(r, oauthStateCookie, state, oauthCookieTTL))
	http.SetCookie(w, security.CreateTempCookie(r, oauthProviderCookie, provider.Name, oauthCookieTTL))

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, provider.Name)
	http.Redirect(w, r, config.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

// OAuthCallback completes the code exchange and signs the user in
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		respondWithError(w, h.logger, apperr.NotFound("oauth provider %q", r.PathValue("provider")))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, h.logger, apperr.BadRequest("missing authorization code"))
		return
	}
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		respondWithError(w, h.logger, apperr.BadRequest("invalid OAuth state"))
		return
	}
	if providerCookie, err := r.Cookie(oauthProviderCookie); err == nil && providerCookie.Value != provider.Name {
		respondWithError(w, h.logger, apperr.BadRequest("OAuth provider mismatch"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, provider.Name)
	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("oauth code exchange failed", "provider", provider.Name, "error", err)
		respondWithError(w, h.logger, apperr.BadRequest("failed to exchange OAuth code"))
		return
	}

	info, err := fetchUserInfo(ctx, provider, token)
	if err != nil {
		h.logger.Warn("oauth user info failed", "provider", provider.Name, "error", err)
		respondWithError(w, h.logger, apperr.BadRequest("failed to read OAuth profile"))
		return
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, oauthStateCookie))
	http.SetCookie(w, security.CreateDeleteCookie(r, oauthProviderCookie))

	session, user, err := h.authService.OAuthLogin(ctx, provider.Name, info.Subject, info.Email, info.Name)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	h.startSession(w, r, http.StatusOK, session, user)
}

func fetchUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: %w", provider.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info: status %d", provider.Name, resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info: %w", provider.Name, err)
	}
	if payload.ID == "" || payload.Email == "" {
		return oauthUserInfo{}, errors.New("profile has no id or email")
	}
	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}
