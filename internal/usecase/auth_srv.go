package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/pkg/clock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSessionTTL = 24 * time.Hour

// AuthService stores the bearer sessions the identity provider resolves.
type AuthService interface {
	IssueSession(ctx context.Context, req *request.IssueSessionRequest) (*response.SessionResponse, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	sessions repository.SessionRepository
	clock    clock.Clock
	log      *zap.Logger
}

func NewAuthService(sessions repository.SessionRepository, clk clock.Clock, log *zap.Logger) AuthService {
	return &authService{
		sessions: sessions,
		clock:    clk,
		log:      log.With(zap.String("service", "auth")),
	}
}

func (s *authService) IssueSession(ctx context.Context, req *request.IssueSessionRequest) (*response.SessionResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Issue session validation failed", zap.Error(err))
		return nil, err
	}

	ttl := defaultSessionTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}

	now := s.clock.Now()
	session := &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		Subject:   req.Subject,
		Email:     strings.ToLower(req.Email),
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		s.log.Error("Failed to create session", zap.Error(err), zap.String("subject", req.Subject))
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("Session issued", zap.String("subject", session.Subject))

	return &response.SessionResponse{
		Token:     session.Token,
		Subject:   session.Subject,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return ErrUnauthenticated
	}

	err := s.sessions.Revoke(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUnauthenticated
	}
	if err != nil {
		s.log.Error("Failed to revoke session", zap.Error(err))
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}
