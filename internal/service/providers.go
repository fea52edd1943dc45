package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mockupdesk/listing-server-go/internal/audit"
	"github.com/mockupdesk/listing-server-go/internal/config"
	apperrors "github.com/mockupdesk/listing-server-go/internal/errors"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/provider"
	"github.com/mockupdesk/listing-server-go/internal/repository"
)

// ProviderFactory builds per-user authenticated clients backed by the
// provider_tokens table. Refreshed pairs are persisted through the same
// repository before the retried call goes out.
type ProviderFactory struct {
	cfg        *config.Config
	tokenRepo  repository.ProviderTokenRepository
	httpClient *http.Client

	// URL overrides for tests; zero values mean the public endpoints.
	DriveConfig       provider.DriveConfig
	MarketplaceConfig provider.MarketplaceConfig
}

func NewProviderFactory(cfg *config.Config, tokenRepo repository.ProviderTokenRepository, httpClient *http.Client) *ProviderFactory {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.ProviderRequestTimeout}
	}
	return &ProviderFactory{
		cfg:        cfg,
		tokenRepo:  tokenRepo,
		httpClient: httpClient,
		DriveConfig: provider.DriveConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
		},
		MarketplaceConfig: provider.MarketplaceConfig{
			APIKey: cfg.EtsyAPIKey,
		},
	}
}

func (f *ProviderFactory) DriveForUser(ctx context.Context, userID string) (*provider.DriveClient, error) {
	creds, err := f.credentials(ctx, userID, model.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	store := &repoTokenStore{repo: f.tokenRepo, userID: userID, provider: model.ProviderGoogle}
	return provider.NewDriveClient(f.DriveConfig, *creds, store, f.httpClient), nil
}

func (f *ProviderFactory) MarketplaceForUser(ctx context.Context, userID string) (*provider.MarketplaceClient, error) {
	creds, err := f.credentials(ctx, userID, model.ProviderEtsy)
	if err != nil {
		return nil, err
	}
	return f.MarketplaceFromCredentials(userID, *creds), nil
}

// DriveFromCredentials builds a client around a credential pair that is
// not yet bound to a user (used during the callback exchange, before the
// user row exists). Refreshes are kept in memory only.
func (f *ProviderFactory) DriveFromCredentials(creds provider.Credentials) *provider.DriveClient {
	return provider.NewDriveClient(f.DriveConfig, creds, discardTokenStore{}, f.httpClient)
}

func (f *ProviderFactory) MarketplaceFromCredentials(userID string, creds provider.Credentials) *provider.MarketplaceClient {
	store := &repoTokenStore{repo: f.tokenRepo, userID: userID, provider: model.ProviderEtsy}
	return provider.NewMarketplaceClient(f.MarketplaceConfig, creds, store, f.httpClient)
}

func (f *ProviderFactory) credentials(ctx context.Context, userID, providerName string) (*provider.Credentials, error) {
	token, err := f.tokenRepo.FindByUserAndProvider(ctx, userID, providerName)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if token == nil {
		return nil, apperrors.ProviderNotLinked(providerName)
	}
	return &provider.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
		Scope:        token.Scope,
	}, nil
}

// MapError translates provider-layer failures to the API error taxonomy.
// An exhausted refresh invalidates the stored credential so later requests
// fail fast until the user reconnects. The provider is read off the error
// itself, so a multi-provider operation invalidates the right credential.
func (f *ProviderFactory) MapError(ctx context.Context, userID string, err error) error {
	if err == nil {
		return nil
	}

	var authErr *provider.AuthError
	if errors.As(err, &authErr) {
		if invErr := f.tokenRepo.Invalidate(ctx, userID, authErr.Provider); invErr != nil {
			log.Error().Err(invErr).Str("userId", userID).Str("provider", authErr.Provider).
				Msg("failed to invalidate exhausted credential")
		}
		audit.Log(audit.Event{Type: audit.EventTokenInvalidated, UserID: userID, Provider: authErr.Provider})
		return apperrors.AuthExpired(authErr.Provider).WithCause(err)
	}

	var reqErr *provider.RequestError
	if errors.As(err, &reqErr) {
		return apperrors.ProviderRequestFailed(reqErr.Provider, reqErr.Status, reqErr.Body).WithCause(err)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrCodeProvider, "provider call failed", err)
}

// repoTokenStore persists refreshed credential pairs for one user+provider.
type repoTokenStore struct {
	repo     repository.ProviderTokenRepository
	userID   string
	provider string
}

func (s *repoTokenStore) Save(ctx context.Context, creds provider.Credentials) error {
	_, err := s.repo.Save(ctx, model.SaveProviderTokenParams{
		UserID:       s.userID,
		Provider:     s.provider,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.ExpiresAt,
		Scope:        creds.Scope,
	})
	if err == nil {
		audit.Log(audit.Event{Type: audit.EventTokenRefreshed, UserID: s.userID, Provider: s.provider})
	}
	return err
}

type discardTokenStore struct{}

func (discardTokenStore) Save(context.Context, provider.Credentials) error { return nil }
