package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

// AccrueInput credits a royalty bucket. IdempotencyKey, when set, makes
// retries of the same accrual no-ops.
type AccrueInput struct {
	ArtistID       string `validate:"required"`
	SongID         string `validate:"required"`
	Period         string `validate:"required,max=32"`
	Amount         decimal.Decimal
	IdempotencyKey string `validate:"omitempty,max=128"`
}

// AccrueResult is returned by Accrue.
type AccrueResult struct {
	Royalty *domain.Royalty
	// Replayed is true when the idempotency key had already been used.
	Replayed bool
}

// DisburseInput pays out a royalty's due balance. A nil ArtistFraction derives
// the split from the commission of the manager overseeing the song.
type DisburseInput struct {
	RoyaltyID      string `validate:"required"`
	ArtistFraction *decimal.Decimal
}

// DisburseResult is returned by Disburse.
type DisburseResult struct {
	Transaction *domain.Transaction
	Royalty     *domain.Royalty
}

// RoyaltyService is the royalty ledger.
type RoyaltyService interface {
	Accrue(ctx context.Context, input AccrueInput) (*AccrueResult, error)
	Disburse(ctx context.Context, input DisburseInput) (*DisburseResult, error)
	ApproveTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	GetRoyalty(ctx context.Context, id string) (*domain.Royalty, error)
	ListRoyalties(ctx context.Context, artistID string) ([]*domain.Royalty, error)
	ListTransactions(ctx context.Context, artistID string) ([]*domain.Transaction, error)
	Balance(ctx context.Context, artistID string) (*domain.Balance, error)
}
