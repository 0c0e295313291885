package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of fractional digits of the smallest currency unit.
const CurrencyPlaces = 2

// RoyaltyKey identifies the accrual bucket of a royalty.
type RoyaltyKey struct {
	ArtistID string
	SongID   string
	Period   string
}

// Royalty accumulates credits for one (artist, song, period).
// TotalRoyalty == RoyaltyDue + RoyaltyPaid at all times.
type Royalty struct {
	ID           string          `json:"id"`
	ArtistID     string          `json:"artist_id"`
	SongID       string          `json:"song_id"`
	Period       string          `json:"period"`
	Amount       decimal.Decimal `json:"amount"`
	TotalRoyalty decimal.Decimal `json:"total_royalty"`
	RoyaltyDue   decimal.Decimal `json:"royalty_due"`
	RoyaltyPaid  decimal.Decimal `json:"royalty_paid"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Key returns the accrual key of r.
func (r *Royalty) Key() RoyaltyKey {
	return RoyaltyKey{ArtistID: r.ArtistID, SongID: r.SongID, Period: r.Period}
}

// Balanced reports whether the conservation invariant holds.
func (r *Royalty) Balanced() bool {
	return r.TotalRoyalty.Equal(r.RoyaltyDue.Add(r.RoyaltyPaid)) && !r.RoyaltyDue.IsNegative()
}

// ValidateAmount checks that amount is a non-negative value expressible in currency units.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return Validationf("amount must not be negative, got %s", amount)
	}
	if !amount.Equal(amount.Round(CurrencyPlaces)) {
		return Validationf("amount %s has more than %d fractional digits", amount, CurrencyPlaces)
	}
	return nil
}

// SplitPolicy divides a disbursement between artist and manager.
type SplitPolicy struct {
	ArtistFraction decimal.Decimal
}

// Validate checks 0 <= ArtistFraction <= 1.
func (p SplitPolicy) Validate() error {
	if p.ArtistFraction.IsNegative() || p.ArtistFraction.GreaterThan(decimal.NewFromInt(1)) {
		return Validationf("artist fraction must be between 0 and 1, got %s", p.ArtistFraction)
	}
	return nil
}

// SplitPolicyFromCommission derives the artist fraction from a manager commission percentage.
func SplitPolicyFromCommission(pct decimal.Decimal) SplitPolicy {
	return SplitPolicy{ArtistFraction: decimal.NewFromInt(1).Sub(pct.Div(hundred))}
}

// FullArtistShare assigns the whole amount to the artist.
func FullArtistShare() SplitPolicy {
	return SplitPolicy{ArtistFraction: decimal.NewFromInt(1)}
}

// Split divides amount. The artist share is truncated to currency units and the
// manager receives the remainder, so the two always sum to amount.
func (p SplitPolicy) Split(amount decimal.Decimal) (artistShare, managerShare decimal.Decimal) {
	artistShare = amount.Mul(p.ArtistFraction).Truncate(CurrencyPlaces)
	managerShare = amount.Sub(artistShare)
	return artistShare, managerShare
}

// TransactionStatus is the confirmation state of a disbursement.
type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxApproved TransactionStatus = "approved"
)

// Transaction records one disbursement. Only Status (and ApprovedAt) ever change.
type Transaction struct {
	ID             string            `json:"id"`
	RoyaltyID      string            `json:"royalty_id"`
	SongID         string            `json:"song_id"`
	ArtistID       string            `json:"artist_id"`
	ManagerID      string            `json:"manager_id,omitempty"`
	Amount         decimal.Decimal   `json:"amount"`
	ArtistShare    decimal.Decimal   `json:"artist_share"`
	ManagerShare   decimal.Decimal   `json:"manager_share"`
	ArtistFraction decimal.Decimal   `json:"artist_fraction"`
	Status         TransactionStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	ApprovedAt     *time.Time        `json:"approved_at,omitempty"`
}

// Balance aggregates the royalties of one artist.
type Balance struct {
	ArtistID     string          `json:"artist_id"`
	TotalRoyalty decimal.Decimal `json:"total_royalty"`
	RoyaltyDue   decimal.Decimal `json:"royalty_due"`
	RoyaltyPaid  decimal.Decimal `json:"royalty_paid"`
	Royalties    int             `json:"royalties"`
}
