package usecase

import (
	"context"
	"fmt"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"

	"go.uber.org/zap"
)

// IdentityProvider resolves a bearer token to the caller's identity.
type IdentityProvider interface {
	Resolve(ctx context.Context, token string) (*entity.Identity, error)
}

type sessionIdentityProvider struct {
	sessions repository.SessionRepository
	log      *zap.Logger
}

func NewSessionIdentityProvider(sessions repository.SessionRepository, log *zap.Logger) IdentityProvider {
	return &sessionIdentityProvider{
		sessions: sessions,
		log:      log.With(zap.String("service", "identity")),
	}
}

func (p *sessionIdentityProvider) Resolve(ctx context.Context, token string) (*entity.Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	session, err := p.sessions.FindValidSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if session == nil {
		return nil, ErrUnauthenticated
	}

	return &entity.Identity{Subject: session.Subject, Email: session.Email}, nil
}

func requireIdentity(identity entity.Identity) error {
	if identity.Subject == "" {
		return ErrUnauthenticated
	}
	return nil
}
