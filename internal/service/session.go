package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mockupdesk/listing-server-go/internal/config"
	"github.com/mockupdesk/listing-server-go/internal/model"
	"github.com/mockupdesk/listing-server-go/internal/repository"
	"github.com/mockupdesk/listing-server-go/internal/util"
)

type SessionService struct {
	sessionRepo   repository.SessionRepository
	userRepo      repository.UserRepository
	sessionSecret string
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	sessionSecret string,
) *SessionService {
	return &SessionService{
		sessionRepo:   sessionRepo,
		userRepo:      userRepo,
		sessionSecret: sessionSecret,
	}
}

// CreateSession opens a cookie session for the user and returns the raw
// token. Only the HMAC of the token is stored server-side.
func (s *SessionService) CreateSession(ctx context.Context, userID string) (string, error) {
	token, err := util.GenerateToken()
	if err != nil {
		return "", err
	}

	_, err = s.sessionRepo.Create(ctx, model.CreateSessionParams{
		TokenHash: util.HmacSHA256(s.sessionSecret, token),
		UserID:    userID,
		ExpiresAt: time.Now().Add(config.SessionMaxAge),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *SessionService) ValidateSession(ctx context.Context, token string) (*model.User, error) {
	tokenHash := util.HmacSHA256(s.sessionSecret, token)
	session, err := s.sessionRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil || session == nil {
		return nil, err
	}
	return s.userRepo.FindByID(ctx, session.UserID)
}

func (s *SessionService) Logout(ctx context.Context, token string) error {
	tokenHash := util.HmacSHA256(s.sessionSecret, token)
	session, _ := s.sessionRepo.FindByTokenHash(ctx, tokenHash)
	if session != nil {
		log.Info().Str("userId", session.UserID).Msg("session closed")
		return s.sessionRepo.Delete(ctx, session.ID)
	}
	return nil
}
