package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

type ProviderTokenRepository interface {
	FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.ProviderToken, error)
	// Save replaces the credential set wholesale, clearing any prior
	// invalidation. Used at callback exchange and after every refresh.
	Save(ctx context.Context, params model.SaveProviderTokenParams) (*model.ProviderToken, error)
	// Invalidate marks the credential unusable after an irrecoverable 401.
	// The row is kept for diagnostics; the user must re-authorize.
	Invalidate(ctx context.Context, userID, provider string) error
}

type providerTokenRepo struct {
	db *sqlx.DB
}

func NewProviderTokenRepository(db *sqlx.DB) ProviderTokenRepository {
	return &providerTokenRepo{db: db}
}

func (r *providerTokenRepo) FindByUserAndProvider(ctx context.Context, userID, provider string) (*model.ProviderToken, error) {
	var token model.ProviderToken
	err := r.db.GetContext(ctx, &token, `
		SELECT * FROM provider_tokens
		WHERE user_id = $1 AND provider = $2 AND invalidated = false
	`, userID, provider)
	return HandleNotFound(&token, err)
}

func (r *providerTokenRepo) Save(ctx context.Context, params model.SaveProviderTokenParams) (*model.ProviderToken, error) {
	var token model.ProviderToken
	err := r.db.GetContext(ctx, &token, `
		INSERT INTO provider_tokens (user_id, provider, access_token, refresh_token, expires_at, scope)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, provider) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at,
		    scope = EXCLUDED.scope,
		    invalidated = false,
		    updated_at = NOW()
		RETURNING *
	`, params.UserID, params.Provider, params.AccessToken, params.RefreshToken, params.ExpiresAt, params.Scope)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *providerTokenRepo) Invalidate(ctx context.Context, userID, provider string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE provider_tokens
		SET invalidated = true, updated_at = NOW()
		WHERE user_id = $1 AND provider = $2
	`, userID, provider)
	return err
}
