package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/mockupdesk/listing-server-go/internal/middleware"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/service"
)

type AuthHandler struct {
	oauthService   *service.OAuthService
	sessionService *service.SessionService
	frontendURL    string
	isProduction   bool
}

func NewAuthHandler(
	oauthService *service.OAuthService,
	sessionService *service.SessionService,
	frontendURL string,
	isProduction bool,
) *AuthHandler {
	return &AuthHandler{
		oauthService:   oauthService,
		sessionService: sessionService,
		frontendURL:    frontendURL,
		isProduction:   isProduction,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/google", h.GoogleAuth)
	r.Get("/google/callback", h.GoogleCallback)
	r.Get("/etsy", h.EtsyAuth)
	r.Get("/etsy/callback", h.EtsyCallback)
	r.Get("/status", h.Status)
	r.Post("/logout", h.Logout)

	return r
}

// GoogleAuth starts the sign-in flow: a plain redirect to the consent
// screen.
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.oauthService.GoogleAuthURL()
	if err != nil {
		if errors.Is(err, service.ErrProviderNotConfigured) {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "Google OAuth not configured"})
			return
		}
		log.Error().Err(err).Msg("failed to generate Google auth URL")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to initiate OAuth"})
		return
	}

	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		log.Warn().Str("error", errMsg).Msg("OAuth error from Google")
		h.redirectFrontend(w, r, "?error=oauth_denied")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectFrontend(w, r, "?error=missing_params")
		return
	}

	_, token, err := h.oauthService.HandleGoogleCallback(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("Google callback failed")
		h.redirectFrontend(w, r, "?error=oauth_failed")
		return
	}

	middleware.SetSessionCookie(w, token, h.isProduction)
	h.redirectFrontend(w, r, "")
}

// EtsyAuth starts the PKCE flow for the signed-in user.
func (h *AuthHandler) EtsyAuth(w http.ResponseWriter, r *http.Request) {
	user := h.sessionUser(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}

	authURL, err := h.oauthService.BeginMarketplaceAuth(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotConfigured) {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "Etsy OAuth not configured"})
			return
		}
		log.Error().Err(err).Msg("failed to begin Etsy auth")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to initiate OAuth"})
		return
	}

	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) EtsyCallback(w http.ResponseWriter, r *http.Request) {
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		log.Warn().Str("error", errMsg).Msg("OAuth error from Etsy")
		h.redirectFrontend(w, r, "?error=oauth_denied")
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.redirectFrontend(w, r, "?error=missing_params")
		return
	}

	if _, err := h.oauthService.CompleteMarketplaceAuth(r.Context(), code, state); err != nil {
		log.Error().Err(err).Msg("Etsy callback failed")
		if errors.Is(err, service.ErrInvalidState) {
			h.redirectFrontend(w, r, "?error=invalid_state")
			return
		}
		h.redirectFrontend(w, r, "?error=oauth_failed")
		return
	}

	h.redirectFrontend(w, r, "?etsy=connected")
}

func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := h.sessionUser(r)
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	connected, err := h.oauthService.ConnectedProviders(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load provider status")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"email":         user.Email,
		"etsyShopId":    user.EtsyShopID,
		"providers":     connected,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessionService.Logout(r.Context(), cookie.Value); err != nil {
			log.Warn().Err(err).Msg("logout failed")
		}
	}

	middleware.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) redirectFrontend(w http.ResponseWriter, r *http.Request, suffix string) {
	http.Redirect(w, r, h.frontendURL+"/"+suffix, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) sessionUser(r *http.Request) *model.User {
	cookie, err := r.Cookie(middleware.SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	user, err := h.sessionService.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return user
}
