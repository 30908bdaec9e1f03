package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioia-backend/internal/store"
)

const adminEmail = "admin@studioia.com"

func newTestService() *Service {
	sessions := store.NewSessionStore(store.NewMemoryKV())
	return NewService(sessions, "test-secret", adminEmail, nil)
}

func TestAuthenticateCreatesUserOnce(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, admin, err := svc.Authenticate(ctx, "new@example.com")
	require.NoError(t, err)
	assert.False(t, admin)
	assert.Equal(t, "new@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())
	firstCreatedAt := user.CreatedAt

	// Second authentication must not create a duplicate nor touch createdAt.
	svc.now = func() time.Time { return firstCreatedAt.Add(time.Hour) }
	again, _, err := svc.Authenticate(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, firstCreatedAt.Equal(again.CreatedAt))

	users, err := svc.AllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	current, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "new@example.com", current.Email)
}

func TestAuthenticateEmailIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, _, err := svc.Authenticate(ctx, "User@Example.com")
	require.NoError(t, err)
	_, _, err = svc.Authenticate(ctx, "user@example.com")
	require.NoError(t, err)

	users, err := svc.AllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2, "lookups are by exact string match")
}

func TestAuthenticateAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, admin, err := svc.Authenticate(ctx, adminEmail)
	require.NoError(t, err)
	assert.True(t, admin)
}

func TestSignupVerification(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	code, err := svc.BeginSignup("signup@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)

	// Wrong code: retryable mismatch, no user created.
	_, _, err = svc.Verify(ctx, "signup@example.com", "000000")
	assert.ErrorIs(t, err, ErrVerificationMismatch)

	users, err := svc.AllUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	// Right code still works after the failed attempt.
	user, _, err := svc.Verify(ctx, "signup@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, "signup@example.com", user.Email)

	// The pending sign-up is consumed.
	_, _, err = svc.Verify(ctx, "signup@example.com", code)
	assert.ErrorIs(t, err, ErrNoPendingSignup)
}

func TestResendInvalidatesPreviousCode(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	first, err := svc.BeginSignup("signup@example.com")
	require.NoError(t, err)

	second, err := svc.Resend("signup@example.com")
	require.NoError(t, err)

	if first != second {
		_, _, err = svc.Verify(ctx, "signup@example.com", first)
		assert.ErrorIs(t, err, ErrVerificationMismatch)
	}

	_, _, err = svc.Verify(ctx, "signup@example.com", second)
	assert.NoError(t, err)
}

func TestResendWithoutPendingSignup(t *testing.T) {
	svc := newTestService()

	_, err := svc.Resend("nobody@example.com")
	assert.ErrorIs(t, err, ErrNoPendingSignup)
}

func TestLogoutClearsCurrentUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, _, err := svc.Authenticate(ctx, "user@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx))

	current, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}
