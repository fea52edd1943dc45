package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockupdesk/listing-server-go/internal/config"
	apperrors "github.com/mockupdesk/listing-server-go/internal/errors"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/provider"
)

func newTestFactory(tokenRepo *memTokenRepo) *ProviderFactory {
	return NewProviderFactory(&config.Config{EtsyAPIKey: "key"}, tokenRepo, nil)
}

func seedToken(t *testing.T, repo *memTokenRepo, userID, providerName string) {
	t.Helper()
	_, err := repo.Save(context.Background(), model.SaveProviderTokenParams{
		UserID:       userID,
		Provider:     providerName,
		AccessToken:  "at",
		RefreshToken: "rt",
	})
	require.NoError(t, err)
}

func TestMapErrorAuthExpiredInvalidatesCredential(t *testing.T) {
	tokenRepo := newMemTokenRepo()
	factory := newTestFactory(tokenRepo)
	seedToken(t, tokenRepo, "user-1", model.ProviderEtsy)
	seedToken(t, tokenRepo, "user-1", model.ProviderGoogle)

	mapped := factory.MapError(context.Background(), "user-1", &provider.AuthError{Provider: model.ProviderEtsy})

	assert.Equal(t, apperrors.ErrCodeAuthExpired, apperrors.GetCode(mapped))

	// Only the failing provider's credential is invalidated.
	etsy, _ := tokenRepo.FindByUserAndProvider(context.Background(), "user-1", model.ProviderEtsy)
	assert.Nil(t, etsy)
	google, _ := tokenRepo.FindByUserAndProvider(context.Background(), "user-1", model.ProviderGoogle)
	assert.NotNil(t, google)
}

func TestMapErrorRequestFailure(t *testing.T) {
	factory := newTestFactory(newMemTokenRepo())

	mapped := factory.MapError(context.Background(), "user-1",
		&provider.RequestError{Provider: "etsy", Status: 503, Body: "down"})

	appErr, ok := apperrors.AsAppError(mapped)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeProvider, appErr.Code)
	details := appErr.Details.(map[string]any)
	assert.Equal(t, 503, details["status"])
}

func TestMapErrorPassesThroughAppErrors(t *testing.T) {
	factory := newTestFactory(newMemTokenRepo())
	orig := apperrors.ProviderNotLinked("google")

	assert.Same(t, orig, factory.MapError(context.Background(), "user-1", orig).(*apperrors.AppError))
}

func TestMapErrorWrapsUnknown(t *testing.T) {
	factory := newTestFactory(newMemTokenRepo())

	mapped := factory.MapError(context.Background(), "user-1", errors.New("dial tcp: timeout"))
	assert.Equal(t, apperrors.ErrCodeProvider, apperrors.GetCode(mapped))

	assert.NoError(t, factory.MapError(context.Background(), "user-1", nil))
}

func TestProviderForUserRequiresLinkedCredential(t *testing.T) {
	factory := newTestFactory(newMemTokenRepo())

	_, err := factory.DriveForUser(context.Background(), "user-1")
	assert.Equal(t, apperrors.ErrCodeProviderNotLinked, apperrors.GetCode(err))

	_, err = factory.MarketplaceForUser(context.Background(), "user-1")
	assert.Equal(t, apperrors.ErrCodeProviderNotLinked, apperrors.GetCode(err))
}
