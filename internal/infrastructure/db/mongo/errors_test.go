package mongo

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

func TestMapError(t *testing.T) {
	require.NoError(t, mapError(nil, "op"))

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	require.ErrorIs(t, mapError(dup, "insert"), domain.ErrConflict)

	labeled := mongo.CommandError{Code: 112, Labels: []string{labelTransientTransaction}}
	require.ErrorIs(t, mapError(labeled, "commit"), domain.ErrTransient)

	unknown := mongo.CommandError{Code: 50, Labels: []string{labelUnknownCommitResult}}
	require.ErrorIs(t, mapError(unknown, "commit"), domain.ErrTransient)

	require.ErrorIs(t, mapError(context.DeadlineExceeded, "find"), domain.ErrTransient)

	var dupCause mongo.WriteException
	require.True(t, errors.As(mapError(dup, "insert"), &dupCause))
	require.True(t, mongo.IsDuplicateKeyError(mapError(dup, "insert")))

	require.ErrorIs(t, mapError(domain.ErrRoyaltyNotFound, "find"), domain.ErrRoyaltyNotFound)

	plain := errors.New("boom")
	err := mapError(plain, "find")
	require.ErrorIs(t, err, plain)
	require.False(t, domain.IsKnown(err))
	require.Contains(t, err.Error(), "find")
}

func TestMapError_KeepsRetryLabels(t *testing.T) {
	conflict := mongo.CommandError{
		Code:   112,
		Name:   "WriteConflict",
		Labels: []string{labelTransientTransaction, "NetworkError"},
	}
	require.True(t, mongo.IsNetworkError(conflict))

	mapped := mapError(conflict, "settle royalty")
	require.ErrorIs(t, mapped, domain.ErrTransient)
	require.Contains(t, mapped.Error(), "settle royalty")

	var labeled mongo.LabeledError
	require.True(t, errors.As(mapped, &labeled))
	require.True(t, labeled.HasErrorLabel(labelTransientTransaction))
	require.True(t, mongo.IsNetworkError(mapped))

	// Callbacks wrap repository errors once more before WithTransaction sees them.
	wrapped := fmt.Errorf("disburse: %w", mapped)
	require.True(t, mongo.IsNetworkError(wrapped))
	require.ErrorIs(t, wrapped, domain.ErrTransient)

	// Already classified errors are left alone by the final Execute mapping.
	require.Same(t, mapped, mapError(mapped, "transaction"))
}

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "150.00", "104.99", "123456789.12"} {
		d := decimal.RequireFromString(s)
		v, err := toDecimal128(d)
		require.NoError(t, err)
		back, err := fromDecimal128(v)
		require.NoError(t, err)
		require.True(t, d.Equal(back), "%s decoded as %s", s, back)
	}
}

func TestToDecimal128_OutOfRange(t *testing.T) {
	huge := decimal.New(1, 7000)
	_, err := toDecimal128(huge)
	require.ErrorIs(t, err, domain.ErrValidation)
}
