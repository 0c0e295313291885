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
	"github.com/soundledger/royalty-service/internal/pkg/metrics"
	"github.com/soundledger/royalty-service/internal/pkg/validation"
)

type accountService struct {
	tx        ports.TxManager
	accounts  ports.AccountRepository
	validator *validation.Validator
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewAccountService returns an AccountService. accounts serves reads outside
// transactions; every write goes through tx.
func NewAccountService(
	tx ports.TxManager,
	accounts ports.AccountRepository,
	validator *validation.Validator,
	m *metrics.Metrics,
	log zerolog.Logger,
) ports.AccountService {
	return &accountService{
		tx:        tx,
		accounts:  accounts,
		validator: validator,
		metrics:   m,
		log:       log,
	}
}

// CreateAccount persists the user and its single role profile in one transaction.
func (s *accountService) CreateAccount(ctx context.Context, input ports.CreateAccountInput) (acc *domain.Account, err error) {
	defer func() { s.metrics.Account("create", metrics.Result(err)) }()

	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	if err := validateProfileForRole(input.Role, input.Profile); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:             uuid.NewString(),
		Username:       input.Username,
		CredentialHash: input.CredentialHash,
		Role:           input.Role,
		IsActive:       true,
		IsFirstLogin:   true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	acc = &domain.Account{User: user}

	p := input.Profile
	switch input.Role {
	case domain.RoleArtist:
		acc.Artist = &domain.ArtistProfile{
			UserID:    user.ID,
			FullName:  p.FullName,
			Email:     p.Email,
			Phone:     p.Phone,
			StageName: p.StageName,
			Genre:     p.Genre,
			CreatedAt: now,
			UpdatedAt: now,
		}
	case domain.RoleManager:
		acc.Manager = &domain.ManagerProfile{
			UserID:               user.ID,
			FullName:             p.FullName,
			Email:                p.Email,
			Phone:                p.Phone,
			Company:              p.Company,
			CommissionPercentage: *p.CommissionPercentage,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
	}

	err = s.tx.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Accounts.CreateUser(ctx, user); err != nil {
			return err
		}
		if acc.Artist != nil {
			return repos.Accounts.CreateArtistProfile(ctx, acc.Artist)
		}
		return repos.Accounts.CreateManagerProfile(ctx, acc.Manager)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("username", input.Username).Msg("account creation rolled back")
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Str("role", user.Role.String()).Msg("account created")
	return acc, nil
}

// UpdateProfile applies a partial update to the profile matching the stored role.
func (s *accountService) UpdateProfile(ctx context.Context, input ports.UpdateProfileInput) (acc *domain.Account, err error) {
	defer func() { s.metrics.Account("update_profile", metrics.Result(err)) }()

	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if input.Patch.Empty() {
		return nil, fmt.Errorf("update profile: %w", domain.Validationf("no profile fields to update"))
	}

	now := time.Now().UTC()
	err = s.tx.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		user, err := repos.Accounts.FindUserByUsername(ctx, input.Username)
		if err != nil {
			return err
		}
		if user.Role != input.ClaimedRole {
			return fmt.Errorf("%w: account is %s, not %s", domain.ErrRoleMismatch, user.Role, input.ClaimedRole)
		}
		acc = &domain.Account{User: user}

		switch user.Role {
		case domain.RoleArtist:
			cur, err := repos.Accounts.FindArtistProfile(ctx, user.ID)
			if err != nil {
				return err
			}
			next, err := input.Patch.ApplyToArtist(*cur)
			if err != nil {
				return err
			}
			next.UpdatedAt = now
			if err := repos.Accounts.UpdateArtistProfile(ctx, &next); err != nil {
				return err
			}
			acc.Artist = &next
		case domain.RoleManager:
			cur, err := repos.Accounts.FindManagerProfile(ctx, user.ID)
			if err != nil {
				return err
			}
			next, err := input.Patch.ApplyToManager(*cur)
			if err != nil {
				return err
			}
			next.UpdatedAt = now
			if err := repos.Accounts.UpdateManagerProfile(ctx, &next); err != nil {
				return err
			}
			acc.Manager = &next
		default:
			return fmt.Errorf("%w: %s accounts have no profile", domain.ErrRoleMismatch, user.Role)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.log.Info().Str("username", input.Username).Msg("profile updated")
	return acc, nil
}

// DeleteAccount removes the profile and then the user. Users that are party to
// an active collaboration cannot be deleted.
func (s *accountService) DeleteAccount(ctx context.Context, username string) (err error) {
	defer func() { s.metrics.Account("delete", metrics.Result(err)) }()

	if username == "" {
		return fmt.Errorf("delete account: %w", domain.Validationf("username is required"))
	}

	err = s.tx.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		user, err := repos.Accounts.FindUserByUsername(ctx, username)
		if err != nil {
			return err
		}

		active, err := repos.Collaborations.CountActiveByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: user is party to %d active collaboration(s)", domain.ErrConflict, active)
		}

		switch user.Role {
		case domain.RoleArtist:
			err = repos.Accounts.DeleteArtistProfile(ctx, user.ID)
		case domain.RoleManager:
			err = repos.Accounts.DeleteManagerProfile(ctx, user.ID)
		}
		if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
			return err
		}
		return repos.Accounts.DeleteUser(ctx, user.ID)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	s.log.Info().Str("username", username).Msg("account deleted")
	return nil
}

func (s *accountService) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	user, err := s.accounts.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	acc := &domain.Account{User: user}

	switch user.Role {
	case domain.RoleArtist:
		acc.Artist, err = s.accounts.FindArtistProfile(ctx, user.ID)
	case domain.RoleManager:
		acc.Manager, err = s.accounts.FindManagerProfile(ctx, user.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

// UpdateCredential replaces the credential hash and ends the first-login state.
func (s *accountService) UpdateCredential(ctx context.Context, username, credentialHash string) error {
	if credentialHash == "" {
		return fmt.Errorf("update credential: %w", domain.Validationf("credential hash is required"))
	}
	err := s.updateUser(ctx, username, func(u *domain.User) {
		u.CredentialHash = credentialHash
		u.IsFirstLogin = false
	})
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	s.log.Info().Str("username", username).Msg("credential updated")
	return nil
}

func (s *accountService) SetActive(ctx context.Context, username string, active bool) error {
	err := s.updateUser(ctx, username, func(u *domain.User) { u.IsActive = active })
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	s.log.Info().Str("username", username).Bool("active", active).Msg("account activation changed")
	return nil
}

func (s *accountService) updateUser(ctx context.Context, username string, mutate func(*domain.User)) error {
	return s.tx.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		user, err := repos.Accounts.FindUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		mutate(user)
		user.UpdatedAt = time.Now().UTC()
		return repos.Accounts.UpdateUser(ctx, user)
	})
}

func validateProfileForRole(role domain.Role, p ports.ProfileInput) error {
	switch role {
	case domain.RoleArtist:
		if p.Company != "" || p.CommissionPercentage != nil {
			return domain.Validationf("company and commission apply to managers only")
		}
	case domain.RoleManager:
		if p.StageName != "" || p.Genre != "" {
			return domain.Validationf("stage name and genre apply to artists only")
		}
		if p.CommissionPercentage == nil {
			return domain.Validationf("commission percentage is required for managers")
		}
		return domain.ValidateCommission(*p.CommissionPercentage)
	default:
		return domain.Validationf("role must be artist or manager, got %q", role)
	}
	return nil
}
