package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"studioia-backend/internal/models"
	"studioia-backend/internal/store"
)

var (
	// ErrVerificationMismatch is retryable: the pending sign-up survives a
	// wrong code.
	ErrVerificationMismatch = errors.New("verification code does not match")

	ErrNoPendingSignup = errors.New("no pending sign-up for this email")
)

type pendingSignup struct {
	codeHash  []byte
	createdAt time.Time
}

// Service implements the authentication policy: users are looked up by
// exact email and created on first sight, in both login and sign-up modes.
// Sign-ups additionally pass a 6-digit code check before being finalized.
type Service struct {
	store      *store.SessionStore
	jwtSecret  string
	adminEmail string
	logger     *zap.Logger

	// mu serializes lookup-or-create so two near-simultaneous sign-ups with
	// the same new email resolve first-writer-wins without a duplicate.
	mu      sync.Mutex
	pending map[string]pendingSignup

	now func() time.Time
}

func NewService(sessions *store.SessionStore, jwtSecret, adminEmail string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      sessions,
		jwtSecret:  jwtSecret,
		adminEmail: adminEmail,
		logger:     logger,
		pending:    make(map[string]pendingSignup),
		now:        time.Now,
	}
}

// Authenticate resolves an email to a user record, creating and persisting
// one if the email was never seen, and saves it as the current user.
// The second return value reports admin status.
func (s *Service) Authenticate(ctx context.Context, email string) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticateLocked(ctx, email)
}

func (s *Service) authenticateLocked(ctx context.Context, email string) (*models.User, bool, error) {
	users, err := s.store.LoadAllUsers(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load users: %w", err)
	}

	var user *models.User
	for i := range users {
		if users[i].Email == email {
			user = &users[i]
			break
		}
	}

	if user == nil {
		users = append(users, models.User{Email: email, CreatedAt: s.now()})
		user = &users[len(users)-1]
		if err := s.store.SaveAllUsers(ctx, users); err != nil {
			return nil, false, fmt.Errorf("failed to persist users: %w", err)
		}
		s.logger.Info("registered new user", zap.String("email", email))
	}

	if err := s.store.SaveCurrentUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to persist current user: %w", err)
	}

	return user, user.Email == s.adminEmail, nil
}

// BeginSignup issues a fresh 6-digit verification code for the email and
// returns it for the simulated delivery channel. Only a bcrypt hash of the
// code is kept.
func (s *Service) BeginSignup(email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash verification code: %w", err)
	}

	s.mu.Lock()
	s.pending[email] = pendingSignup{codeHash: hash, createdAt: s.now()}
	s.mu.Unlock()

	s.logger.Info("verification code issued (simulated delivery)", zap.String("email", email))
	return code, nil
}

// Resend regenerates the code for an email with a sign-up in progress,
// invalidating the previous one.
func (s *Service) Resend(email string) (string, error) {
	s.mu.Lock()
	_, ok := s.pending[email]
	s.mu.Unlock()
	if !ok {
		return "", ErrNoPendingSignup
	}
	return s.BeginSignup(email)
}

// Verify finalizes a pending sign-up. A wrong code returns
// ErrVerificationMismatch and keeps the pending sign-up alive for a retry.
func (s *Service) Verify(ctx context.Context, email, code string) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[email]
	if !ok {
		return nil, false, ErrNoPendingSignup
	}

	if err := bcrypt.CompareHashAndPassword(p.codeHash, []byte(code)); err != nil {
		return nil, false, ErrVerificationMismatch
	}

	delete(s.pending, email)
	return s.authenticateLocked(ctx, email)
}

// Logout clears the persisted current user.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.ClearCurrentUser(ctx)
}

// CurrentUser returns the persisted current user, nil when signed out.
func (s *Service) CurrentUser(ctx context.Context) (*models.User, error) {
	return s.store.LoadCurrentUser(ctx)
}

// AllUsers returns every registered user, for the admin table.
func (s *Service) AllUsers(ctx context.Context) ([]models.User, error) {
	return s.store.LoadAllUsers(ctx)
}

// IssueToken signs a session token carrying the email and admin flag.
func (s *Service) IssueToken(email string, admin bool) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"admin": admin,
		"exp":   s.now().Add(time.Hour * 24).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
