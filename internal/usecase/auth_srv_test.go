package usecase

import (
	"testing"
	"time"

	"event-ticketing/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	session, err := env.svc.Auth.IssueSession(env.ctx, &request.IssueSessionRequest{
		Subject:    "buyer-42",
		Email:      "Mixed@Example.com",
		TTLMinutes: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, "mixed@example.com", session.Email)
	assert.Equal(t, testStart.Add(time.Hour), session.ExpiresAt)

	identity, err := env.svc.Identity.Resolve(env.ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "buyer-42", identity.Subject)
	assert.Equal(t, "mixed@example.com", identity.Email)

	require.NoError(t, env.svc.Auth.Logout(env.ctx, session.Token))
	_, err = env.svc.Identity.Resolve(env.ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.ErrorIs(t, env.svc.Auth.Logout(env.ctx, session.Token), ErrUnauthenticated)
	assert.ErrorIs(t, env.svc.Auth.Logout(env.ctx, "not-a-token"), ErrUnauthenticated)
}

func TestAuth_SessionExpires(t *testing.T) {
	env := newTestEnv(t)

	session, err := env.svc.Auth.IssueSession(env.ctx, &request.IssueSessionRequest{
		Subject: "buyer-42",
		Email:   "buyer@example.com",
	})
	require.NoError(t, err)

	env.clock.Advance(24 * time.Hour)
	_, err = env.svc.Identity.Resolve(env.ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.svc.Identity.Resolve(env.ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.svc.Auth.IssueSession(env.ctx, &request.IssueSessionRequest{Subject: "x", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrValidation)
}
