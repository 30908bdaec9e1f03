package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioia-backend/internal/models"
)

func TestCurrentUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(NewMemoryKV())

	user, err := s.LoadCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user, "no current user before any save")

	saved := &models.User{Email: "p@example.com", CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, s.SaveCurrentUser(ctx, saved))

	user, err = s.LoadCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, saved.Email, user.Email)
	assert.True(t, saved.CreatedAt.Equal(user.CreatedAt))

	require.NoError(t, s.ClearCurrentUser(ctx))

	user, err = s.LoadCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAllUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(NewMemoryKV())

	users, err := s.LoadAllUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	want := []models.User{
		{Email: "a@example.com", CreatedAt: time.Now().UTC().Truncate(time.Second)},
		{Email: "b@example.com", CreatedAt: time.Now().UTC().Truncate(time.Second)},
	}
	require.NoError(t, s.SaveAllUsers(ctx, want))

	users, err = s.LoadAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@example.com", users[0].Email)
	assert.Equal(t, "b@example.com", users[1].Email)
}

func TestLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(NewMemoryKV())

	require.NoError(t, s.SaveCurrentUser(ctx, &models.User{Email: "first@example.com"}))
	require.NoError(t, s.SaveCurrentUser(ctx, &models.User{Email: "second@example.com"}))

	user, err := s.LoadCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", user.Email)
}
