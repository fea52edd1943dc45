package model

import "time"

const (
	ProviderGoogle = "google"
	ProviderEtsy   = "etsy"
)

// ProviderToken holds the current credential set for one provider of one
// user. Replaced wholesale on refresh; invalidated (not deleted) when a
// refresh is rejected.
type ProviderToken struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"userId"`
	Provider     string     `db:"provider" json:"provider"`
	AccessToken  string     `db:"access_token" json:"-"`
	RefreshToken string     `db:"refresh_token" json:"-"`
	ExpiresAt    *time.Time `db:"expires_at" json:"-"`
	Scope        *string    `db:"scope" json:"scope,omitempty"`
	Invalidated  bool       `db:"invalidated" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

type SaveProviderTokenParams struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        *string
}

// OAuthState is the server-side correlation entry for a PKCE flow.
// Read-once: consuming the state deletes the row in the same statement.
type OAuthState struct {
	ID           string    `db:"id"`
	State        string    `db:"state"`
	Provider     string    `db:"provider"`
	CodeVerifier *string   `db:"code_verifier"`
	UserID       *string   `db:"user_id"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
}

type CreateOAuthStateParams struct {
	State        string
	Provider     string
	CodeVerifier *string
	UserID       *string
	ExpiresAt    time.Time
}
