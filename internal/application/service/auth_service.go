package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
)

var (
	// ErrBadCredentials is returned for an unknown user or wrong password.
	// The two cases are indistinguishable on purpose.
	ErrBadCredentials = errors.New("invalid user id or password")

	// ErrAccountLocked is returned while the lockout window is active.
	ErrAccountLocked = errors.New("account temporarily locked")
)

// LoginResult is the issued token plus the profile the portal shows.
type LoginResult struct {
	Token string
	User  *entity.User
}

// AuthService authenticates portal accounts.
type AuthService interface {
	Login(ctx context.Context, userID, password string) (*LoginResult, error)
}

type authServiceImpl struct {
	userRepo port.UserRepository
	tokens   *auth.TokenManager
	attempts *auth.AttemptTracker
	logger   Logger

	now func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo port.UserRepository, tokens *auth.TokenManager, attempts *auth.AttemptTracker, logger Logger) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		tokens:   tokens,
		attempts: attempts,
		logger:   logger,
		now:      time.Now,
	}
}

// Login verifies the credentials and issues a session token. Consecutive
// failures lock the account for the tracker's window.
func (s *authServiceImpl) Login(ctx context.Context, userID, password string) (*LoginResult, error) {
	now := s.now()
	if s.attempts.Blocked(userID, now) {
		s.logger.Info("Login blocked by lockout", "user_id", userID)
		return nil, ErrAccountLocked
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.attempts.Failed(userID, now)
		s.logger.Info("Login failed", "user_id", userID, "attempts", s.attempts.Count(userID, now))
		return nil, ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.attempts.Failed(userID, now)
		s.logger.Info("Login failed", "user_id", userID, "attempts", s.attempts.Count(userID, now))
		return nil, ErrBadCredentials
	}

	s.attempts.Reset(userID)

	token, err := s.tokens.Issue(user.UserID, user.Role, now)
	if err != nil {
		s.logger.Error("Failed to issue token", "error", err, "user_id", userID)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("Login succeeded", "user_id", userID, "role", user.Role)
	return &LoginResult{Token: token, User: user}, nil
}
