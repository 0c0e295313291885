package ports

import (
	"context"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

// PasswordHasher turns secrets into credential hashes and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs access tokens carrying the caller identity.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// AuthService authenticates users and issues tokens.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}
