package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

// Actor is the verified caller identity established by the authentication layer.
type Actor struct {
	UserID   string
	Username string
	Role     domain.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// ProfileInput carries the profile fields supplied at account creation.
// Company and CommissionPercentage apply to managers, StageName and Genre to artists.
type ProfileInput struct {
	FullName             string `validate:"required,max=128"`
	Email                string `validate:"required,email"`
	Phone                string `validate:"omitempty,max=32"`
	StageName            string `validate:"omitempty,max=128"`
	Genre                string `validate:"omitempty,max=64"`
	Company              string `validate:"omitempty,max=128"`
	CommissionPercentage *decimal.Decimal
}

// CreateAccountInput carries everything needed to provision a user and its profile.
type CreateAccountInput struct {
	Username       string      `validate:"required,min=3,max=64"`
	CredentialHash string      `validate:"required"`
	Role           domain.Role `validate:"required,oneof=artist manager"`
	Profile        ProfileInput
}

// UpdateProfileInput carries a partial profile update. ClaimedRole is the role
// the caller believes the account has; it must match the stored role.
type UpdateProfileInput struct {
	Username    string      `validate:"required"`
	ClaimedRole domain.Role `validate:"required,oneof=artist manager"`
	Patch       domain.ProfilePatch
}

// AccountService provisions users together with their role profile.
type AccountService interface {
	CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error)
	UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.Account, error)
	DeleteAccount(ctx context.Context, username string) error
	GetAccount(ctx context.Context, username string) (*domain.Account, error)
	UpdateCredential(ctx context.Context, username, credentialHash string) error
	SetActive(ctx context.Context, username string, active bool) error
}
