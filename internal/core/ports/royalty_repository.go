package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

// RoyaltyRepository persists royalty accruals.
type RoyaltyRepository interface {
	// Accrue atomically finds or creates the royalty for key and adds amount to
	// its total and due balances. Concurrent accruals on one key serialise;
	// different keys do not contend.
	Accrue(ctx context.Context, key domain.RoyaltyKey, amount decimal.Decimal, at time.Time) (*domain.Royalty, error)
	FindByID(ctx context.Context, id string) (*domain.Royalty, error)
	FindByKey(ctx context.Context, key domain.RoyaltyKey) (*domain.Royalty, error)
	ListByArtist(ctx context.Context, artistID string) ([]*domain.Royalty, error)
	// SettleDue moves paid from due to paid, guarded by expectedVersion.
	// It reports false when the royalty changed since it was read.
	SettleDue(ctx context.Context, id string, expectedVersion int64, paid decimal.Decimal, at time.Time) (bool, error)
}

// TransactionRepository persists disbursement transactions.
type TransactionRepository interface {
	Insert(ctx context.Context, tx *domain.Transaction) error
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListByArtist(ctx context.Context, artistID string) ([]*domain.Transaction, error)
	// CompareAndSetStatus moves the transaction from one status to another and
	// reports false when the stored status is not from.
	CompareAndSetStatus(ctx context.Context, id string, from, to domain.TransactionStatus, at time.Time) (bool, error)
}
