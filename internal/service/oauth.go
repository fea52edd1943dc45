package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mockupdesk/listing-server-go/internal/audit"
	"github.com/mockupdesk/listing-server-go/internal/config"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/provider"
	"github.com/mockupdesk/listing-server-go/internal/repository"
	"github.com/mockupdesk/listing-server-go/internal/util"
)

var (
	ErrInvalidState          = errors.New("invalid or expired OAuth state")
	ErrTokenExchange         = errors.New("token exchange with provider failed")
	ErrProviderNotConfigured = errors.New("OAuth provider not configured")
)

// Endpoints are the provider authorization and token URLs. Zero values
// resolve to the public endpoints; tests point them at local servers.
type Endpoints struct {
	GoogleAuthURL  string
	GoogleTokenURL string
	EtsyAuthURL    string
	EtsyTokenURL   string
}

func (e *Endpoints) fill() {
	if e.GoogleAuthURL == "" {
		e.GoogleAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"
	}
	if e.GoogleTokenURL == "" {
		e.GoogleTokenURL = "https://oauth2.googleapis.com/token"
	}
	if e.EtsyAuthURL == "" {
		e.EtsyAuthURL = "https://www.etsy.com/oauth/connect"
	}
	if e.EtsyTokenURL == "" {
		e.EtsyTokenURL = "https://api.etsy.com/v3/public/oauth/token"
	}
}

// OAuthService owns both authorization flows: the plain code exchange for
// the Drive provider and the PKCE flow for the marketplace.
type OAuthService struct {
	cfg        *config.Config
	endpoints  Endpoints
	userRepo   repository.UserRepository
	tokenRepo  repository.ProviderTokenRepository
	stateRepo  repository.OAuthStateRepository
	sessionSvc *SessionService
	factory    *ProviderFactory
	httpClient *http.Client
	now        func() time.Time
}

func NewOAuthService(
	cfg *config.Config,
	endpoints Endpoints,
	userRepo repository.UserRepository,
	tokenRepo repository.ProviderTokenRepository,
	stateRepo repository.OAuthStateRepository,
	sessionSvc *SessionService,
	factory *ProviderFactory,
	httpClient *http.Client,
) *OAuthService {
	endpoints.fill()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.ProviderRequestTimeout}
	}
	return &OAuthService{
		cfg:        cfg,
		endpoints:  endpoints,
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		stateRepo:  stateRepo,
		sessionSvc: sessionSvc,
		factory:    factory,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Tests use this to age correlation
// entries without sleeping.
func (s *OAuthService) WithClock(now func() time.Time) *OAuthService {
	s.now = now
	return s
}

// Drive (simple authorization-code flow)

// GoogleAuthURL builds the consent redirect from static configuration.
// prompt=consent forces re-issue of a refresh token on reconnect.
func (s *OAuthService) GoogleAuthURL() (string, error) {
	if s.cfg.GoogleClientID == "" {
		return "", ErrProviderNotConfigured
	}

	params := url.Values{
		"client_id":     {s.cfg.GoogleClientID},
		"redirect_uri":  {s.cfg.GoogleRedirectURI},
		"response_type": {"code"},
		"scope":         {"https://www.googleapis.com/auth/drive.readonly https://www.googleapis.com/auth/userinfo.email"},
		"access_type":   {"offline"},
		"prompt":        {"consent"},
	}

	return s.endpoints.GoogleAuthURL + "?" + params.Encode(), nil
}

// HandleGoogleCallback exchanges the code, resolves the account email, and
// creates the user on first contact. Returns the user and a session token.
func (s *OAuthService) HandleGoogleCallback(ctx context.Context, code string) (*model.User, string, error) {
	creds, err := s.exchangeGoogleCode(ctx, code)
	if err != nil {
		return nil, "", err
	}

	email, err := s.factory.DriveFromCredentials(*creds).UserEmail(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fetch account email: %w", err)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		user, err = s.userRepo.Create(ctx, model.CreateUserParams{Email: email})
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("userId", user.ID).Str("email", email).Msg("user created")
	}

	if err := s.saveCredentials(ctx, user.ID, model.ProviderGoogle, creds); err != nil {
		return nil, "", err
	}

	token, err := s.sessionSvc.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	audit.Log(audit.Event{Type: audit.EventLogin, UserID: user.ID, Provider: model.ProviderGoogle})
	return user, token, nil
}

func (s *OAuthService) exchangeGoogleCode(ctx context.Context, code string) (*provider.Credentials, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {s.cfg.GoogleClientID},
		"client_secret": {s.cfg.GoogleClientSecret},
		"redirect_uri":  {s.cfg.GoogleRedirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoints.GoogleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return s.readTokenResponse(req, model.ProviderGoogle)
}

// Marketplace (PKCE flow)

// BeginMarketplaceAuth starts the PKCE flow for the user. Correlation
// entries older than the TTL are purged first; there is no background
// timer for this.
func (s *OAuthService) BeginMarketplaceAuth(ctx context.Context, userID string) (string, error) {
	if s.cfg.EtsyAPIKey == "" {
		return "", ErrProviderNotConfigured
	}

	if purged, err := s.stateRepo.PurgeExpired(ctx, s.now()); err != nil {
		log.Error().Err(err).Msg("failed to purge expired oauth states")
	} else if purged > 0 {
		log.Debug().Int64("count", purged).Msg("purged expired oauth states")
	}

	verifier, err := util.GenerateCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	state, err := util.GenerateToken()
	if err != nil {
		return "", err
	}

	_, err = s.stateRepo.Insert(ctx, model.CreateOAuthStateParams{
		State:        state,
		Provider:     model.ProviderEtsy,
		CodeVerifier: &verifier,
		UserID:       &userID,
		ExpiresAt:    s.now().Add(config.OAuthStateTTL),
	})
	if err != nil {
		return "", err
	}

	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {s.cfg.EtsyAPIKey},
		"redirect_uri":          {s.cfg.EtsyRedirectURI},
		"scope":                 {"listings_w listings_r shops_r"},
		"state":                 {state},
		"code_challenge":        {util.CodeChallengeS256(verifier)},
		"code_challenge_method": {"S256"},
	}

	return s.endpoints.EtsyAuthURL + "?" + params.Encode(), nil
}

// CompleteMarketplaceAuth consumes the correlation entry and exchanges the
// code. An absent, reused, or expired state fails with ErrInvalidState;
// the user must restart the flow. Callers must not retry the exchange:
// a stale code cannot be reused.
func (s *OAuthService) CompleteMarketplaceAuth(ctx context.Context, code, state string) (*model.User, error) {
	entry, err := s.stateRepo.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.ExpiresAt.Before(s.now()) {
		audit.Log(audit.Event{Type: audit.EventStateRejected, Provider: model.ProviderEtsy})
		return nil, ErrInvalidState
	}
	if entry.CodeVerifier == nil || entry.UserID == nil {
		return nil, ErrInvalidState
	}

	user, err := s.userRepo.FindByID(ctx, *entry.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidState
	}

	creds, err := s.exchangeEtsyCode(ctx, code, *entry.CodeVerifier)
	if err != nil {
		return nil, err
	}
	if err := s.saveCredentials(ctx, user.ID, model.ProviderEtsy, creds); err != nil {
		return nil, err
	}

	// Shop lookup is best-effort: publishing re-checks the shop id anyway.
	s.recordShop(ctx, user, *creds)

	audit.Log(audit.Event{Type: audit.EventProviderConnected, UserID: user.ID, Provider: model.ProviderEtsy})
	return user, nil
}

func (s *OAuthService) exchangeEtsyCode(ctx context.Context, code, verifier string) (*provider.Credentials, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     s.cfg.EtsyAPIKey,
		"redirect_uri":  s.cfg.EtsyRedirectURI,
		"code":          code,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoints.EtsyTokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return s.readTokenResponse(req, model.ProviderEtsy)
}

func (s *OAuthService) readTokenResponse(req *http.Request, providerName string) (*provider.Credentials, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s token endpoint: %w", providerName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s token response: %w", providerName, err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("provider", providerName).Msg("token exchange failed")
		return nil, fmt.Errorf("%s returned status %d: %w", providerName, resp.StatusCode, ErrTokenExchange)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode %s token response: %w", providerName, err)
	}

	creds := &provider.Credentials{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}
	if tokenResp.ExpiresIn > 0 {
		expiry := s.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
		creds.ExpiresAt = &expiry
	}
	if tokenResp.Scope != "" {
		creds.Scope = &tokenResp.Scope
	}
	return creds, nil
}

func (s *OAuthService) saveCredentials(ctx context.Context, userID, providerName string, creds *provider.Credentials) error {
	_, err := s.tokenRepo.Save(ctx, model.SaveProviderTokenParams{
		UserID:       userID,
		Provider:     providerName,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.ExpiresAt,
		Scope:        creds.Scope,
	})
	return err
}

// ConnectedProviders reports which providers hold live credentials for
// the user.
func (s *OAuthService) ConnectedProviders(ctx context.Context, userID string) (map[string]bool, error) {
	connected := make(map[string]bool, 2)
	for _, providerName := range []string{model.ProviderGoogle, model.ProviderEtsy} {
		token, err := s.tokenRepo.FindByUserAndProvider(ctx, userID, providerName)
		if err != nil {
			return nil, err
		}
		connected[providerName] = token != nil
	}
	return connected, nil
}

func (s *OAuthService) recordShop(ctx context.Context, user *model.User, creds provider.Credentials) {
	shops, err := s.factory.MarketplaceFromCredentials(user.ID, creds).ListShops(ctx)
	if err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("shop lookup failed after connect")
		return
	}
	if len(shops) == 0 {
		log.Warn().Str("userId", user.ID).Msg("no shops on connected marketplace account")
		return
	}

	shopID := strconv.FormatInt(shops[0].ShopID, 10)
	if err := s.userRepo.UpdateEtsyShopID(ctx, user.ID, shopID); err != nil {
		log.Error().Err(err).Str("userId", user.ID).Msg("failed to record shop id")
		return
	}
	user.EtsyShopID = &shopID
}
