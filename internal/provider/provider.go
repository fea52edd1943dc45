package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Credentials is one provider's current token pair for one user.
// Replaced wholesale on refresh; a refresh may rotate the refresh token.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        *string
}

// TokenStore persists a refreshed credential pair. Save is called before
// the retried request is issued, so a crash between refresh and retry
// cannot orphan the session.
type TokenStore interface {
	Save(ctx context.Context, creds Credentials) error
}

// ErrAuthExpired means the refresh token was exhausted: either the refresh
// itself was rejected, or the retried request was unauthorized again.
// The user must re-authorize the provider from scratch.
var ErrAuthExpired = errors.New("provider authorization expired")

// AuthError wraps ErrAuthExpired with the provider it happened on, so the
// caller can invalidate the right stored credential.
type AuthError struct {
	Provider string
}

func (e *AuthError) Error() string {
	return e.Provider + ": authorization expired"
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuthExpired
}

// RequestError is any non-2xx, non-401 provider response, surfaced with
// status and body for diagnostics. The caller decides whether to retry.
type RequestError struct {
	Provider string
	Status   int
	Body     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.Status, e.Body)
}
