package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// AuthService implements login on top of the account store.
type AuthService struct {
	accounts ports.AccountRepository
	hasher   ports.PasswordHasher
	issuer   ports.TokenIssuer
	log      zerolog.Logger
}

func NewAuthService(accounts ports.AccountRepository, hasher ports.PasswordHasher, issuer ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{accounts: accounts, hasher: hasher, issuer: issuer, log: log}
}

// Login verifies the credentials and returns a signed token. Unknown users,
// wrong passwords and deactivated accounts all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.accounts.FindUserByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if s.hasher.Compare(user.CredentialHash, password) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.log.Info().Str("username", username).Msg("login refused for inactive account")
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// EnsureAdmin creates the bootstrap admin account when no user named username
// exists. An existing user is left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}
	_, err := s.accounts.FindUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("ensure admin: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	now := time.Now().UTC()
	admin := &domain.User{
		ID:             uuid.NewString(),
		Username:       username,
		CredentialHash: hash,
		Role:           domain.RoleAdmin,
		IsActive:       true,
		IsFirstLogin:   true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.accounts.CreateUser(ctx, admin); err != nil && !errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("ensure admin: %w", err)
	}
	s.log.Info().Str("username", username).Msg("admin account ensured")
	return nil
}

var _ ports.AuthService = (*AuthService)(nil)
