package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"studioia-backend/internal/models"
)

const (
	currentUserKey = "current_user"
	usersKey       = "users"
)

// SessionStore persists the current-user record and the full user
// collection as structured text under two logical keys.
type SessionStore struct {
	kv KV
}

func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// LoadCurrentUser returns nil with no error when no user is signed in.
func (s *SessionStore) LoadCurrentUser(ctx context.Context) (*models.User, error) {
	data, err := s.kv.Get(ctx, currentUserKey)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode current user: %w", err)
	}
	return &user, nil
}

func (s *SessionStore) SaveCurrentUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, currentUserKey, data)
}

func (s *SessionStore) ClearCurrentUser(ctx context.Context) error {
	return s.kv.Delete(ctx, currentUserKey)
}

// LoadAllUsers returns an empty slice when the collection was never saved.
func (s *SessionStore) LoadAllUsers(ctx context.Context) ([]models.User, error) {
	data, err := s.kv.Get(ctx, usersKey)
	if errors.Is(err, ErrKeyNotFound) {
		return []models.User{}, nil
	}
	if err != nil {
		return nil, err
	}

	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (s *SessionStore) SaveAllUsers(ctx context.Context, users []models.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, usersKey, data)
}
