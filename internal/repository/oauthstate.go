package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mockupdesk/listing-server-go/internal/model"
)

// OAuthStateRepository is the keyed correlation store for PKCE flows.
// Consume is a single DELETE ... RETURNING, so a state token can never be
// accepted twice even under concurrent callbacks.
type OAuthStateRepository interface {
	Insert(ctx context.Context, params model.CreateOAuthStateParams) (*model.OAuthState, error)
	Consume(ctx context.Context, state string) (*model.OAuthState, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type oauthStateRepo struct {
	db *sqlx.DB
}

func NewOAuthStateRepository(db *sqlx.DB) OAuthStateRepository {
	return &oauthStateRepo{db: db}
}

func (r *oauthStateRepo) Insert(ctx context.Context, params model.CreateOAuthStateParams) (*model.OAuthState, error) {
	var oauthState model.OAuthState
	err := r.db.GetContext(ctx, &oauthState, `
		INSERT INTO oauth_states (state, provider, code_verifier, user_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.State, params.Provider, params.CodeVerifier, params.UserID, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &oauthState, nil
}

func (r *oauthStateRepo) Consume(ctx context.Context, state string) (*model.OAuthState, error) {
	var oauthState model.OAuthState
	err := r.db.GetContext(ctx, &oauthState, `
		DELETE FROM oauth_states
		WHERE state = $1
		RETURNING *
	`, state)
	return HandleNotFound(&oauthState, err)
}

func (r *oauthStateRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM oauth_states WHERE expires_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
