package ports

import (
	"context"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

// AccountRepository persists users and their role profiles.
type AccountRepository interface {
	// CreateUser inserts a user. Returns domain.ErrUserExists on a duplicate username.
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	// UpdateUser overwrites the mutable user fields (credential, flags, updated_at).
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error
	// TouchUser writes the user's record without changing its fields, so a
	// transaction that relies on the user existing conflicts with a concurrent
	// DeleteUser. Returns domain.ErrUserNotFound when the user is gone.
	TouchUser(ctx context.Context, id string) error

	CreateArtistProfile(ctx context.Context, p *domain.ArtistProfile) error
	FindArtistProfile(ctx context.Context, userID string) (*domain.ArtistProfile, error)
	UpdateArtistProfile(ctx context.Context, p *domain.ArtistProfile) error
	DeleteArtistProfile(ctx context.Context, userID string) error

	CreateManagerProfile(ctx context.Context, p *domain.ManagerProfile) error
	FindManagerProfile(ctx context.Context, userID string) (*domain.ManagerProfile, error)
	UpdateManagerProfile(ctx context.Context, p *domain.ManagerProfile) error
	DeleteManagerProfile(ctx context.Context, userID string) error
}
