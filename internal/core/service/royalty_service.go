package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
	"github.com/soundledger/royalty-service/internal/pkg/metrics"
	"github.com/soundledger/royalty-service/internal/pkg/validation"
)

// AccrualDeduper claims accrual idempotency keys (Redis).
type AccrualDeduper interface {
	// Claim reports false when the key has already been claimed.
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// maxSettleAttempts bounds retries of a disbursement that lost a version race.
const maxSettleAttempts = 3

var errVersionConflict = errors.New("royalty version changed")

type royaltyService struct {
	tx        ports.TxManager
	repos     ports.Repositories
	dedup     AccrualDeduper
	notify    ports.NotificationEmitter
	validator *validation.Validator
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewRoyaltyService returns a RoyaltyService. dedup may be nil, in which case
// idempotency keys are ignored.
func NewRoyaltyService(
	tx ports.TxManager,
	repos ports.Repositories,
	dedup AccrualDeduper,
	notify ports.NotificationEmitter,
	validator *validation.Validator,
	m *metrics.Metrics,
	log zerolog.Logger,
) ports.RoyaltyService {
	return &royaltyService{
		tx:        tx,
		repos:     repos,
		dedup:     dedup,
		notify:    notify,
		validator: validator,
		metrics:   m,
		log:       log,
	}
}

// Accrue credits amount to the (artist, song, period) royalty, creating it on
// first use. The increment is a single atomic store operation.
func (s *royaltyService) Accrue(ctx context.Context, input ports.AccrueInput) (res *ports.AccrueResult, err error) {
	defer func() {
		result := metrics.Result(err)
		if err == nil && res.Replayed {
			result = "replayed"
		}
		s.metrics.Ledger("accrue", result)
	}()

	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("accrue: %w", err)
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, fmt.Errorf("accrue: %w", err)
	}
	key := domain.RoyaltyKey{ArtistID: input.ArtistID, SongID: input.SongID, Period: input.Period}

	claimed := false
	claimKey := accrualClaimKey(key, input.IdempotencyKey)
	if input.IdempotencyKey != "" && s.dedup != nil {
		ok, err := s.dedup.Claim(ctx, claimKey)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("idempotency_key", input.IdempotencyKey).Msg("dedup claim failed, processing anyway")
		case !ok:
			s.log.Debug().Str("idempotency_key", input.IdempotencyKey).Msg("duplicate accrual skipped")
			roy, err := s.repos.Royalties.FindByKey(ctx, key)
			if err != nil && !errors.Is(err, domain.ErrRoyaltyNotFound) {
				return nil, fmt.Errorf("accrue: %w", err)
			}
			return &ports.AccrueResult{Royalty: roy, Replayed: true}, nil
		default:
			claimed = true
		}
	}

	roy, err := s.repos.Royalties.Accrue(ctx, key, input.Amount, time.Now().UTC())
	if err != nil {
		if claimed {
			if relErr := s.dedup.Release(ctx, claimKey); relErr != nil {
				s.log.Warn().Err(relErr).Str("idempotency_key", input.IdempotencyKey).Msg("failed to release dedup claim")
			}
		}
		return nil, fmt.Errorf("accrue: %w", err)
	}

	s.log.Info().
		Str("royalty_id", roy.ID).
		Str("artist_id", roy.ArtistID).
		Str("song_id", roy.SongID).
		Str("period", roy.Period).
		Str("amount", input.Amount.StringFixed(domain.CurrencyPlaces)).
		Msg("royalty accrued")

	s.notify.Emit(ctx, roy.ArtistID, fmt.Sprintf("Royalty of %s credited for song %s (%s).",
		input.Amount.StringFixed(domain.CurrencyPlaces), roy.SongID, roy.Period))
	return &ports.AccrueResult{Royalty: roy}, nil
}

// accrualClaimKey scopes an idempotency key to the royalty it credits, so a key
// reused for another (artist, song, period) is treated as a new accrual.
func accrualClaimKey(key domain.RoyaltyKey, idempotencyKey string) string {
	return strings.Join([]string{
		url.PathEscape(key.ArtistID),
		url.PathEscape(key.SongID),
		url.PathEscape(key.Period),
		url.PathEscape(idempotencyKey),
	}, "/")
}

// Disburse turns the whole due balance into a pending transaction and marks it paid.
func (s *royaltyService) Disburse(ctx context.Context, input ports.DisburseInput) (res *ports.DisburseResult, err error) {
	defer func() { s.metrics.Ledger("disburse", metrics.Result(err)) }()

	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("disburse: %w", err)
	}
	if input.ArtistFraction != nil {
		if err := (domain.SplitPolicy{ArtistFraction: *input.ArtistFraction}).Validate(); err != nil {
			return nil, fmt.Errorf("disburse: %w", err)
		}
	}

	for attempt := 1; ; attempt++ {
		res, err = s.disburseOnce(ctx, input)
		if !errors.Is(err, errVersionConflict) || attempt == maxSettleAttempts {
			break
		}
		s.log.Debug().Str("royalty_id", input.RoyaltyID).Int("attempt", attempt).Msg("disbursement lost version race, retrying")
	}
	if errors.Is(err, errVersionConflict) {
		err = fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	if err != nil {
		return nil, fmt.Errorf("disburse: %w", err)
	}

	tx := res.Transaction
	s.log.Info().
		Str("transaction_id", tx.ID).
		Str("royalty_id", tx.RoyaltyID).
		Str("amount", tx.Amount.StringFixed(domain.CurrencyPlaces)).
		Str("artist_share", tx.ArtistShare.StringFixed(domain.CurrencyPlaces)).
		Str("manager_share", tx.ManagerShare.StringFixed(domain.CurrencyPlaces)).
		Msg("royalty disbursed")

	s.emitTransaction(ctx, tx, "Disbursement %s of %s created for song %s.")
	return res, nil
}

func (s *royaltyService) disburseOnce(ctx context.Context, input ports.DisburseInput) (*ports.DisburseResult, error) {
	var out *ports.DisburseResult
	err := s.tx.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		roy, err := repos.Royalties.FindByID(ctx, input.RoyaltyID)
		if err != nil {
			return err
		}
		due := roy.RoyaltyDue
		if !due.IsPositive() {
			return fmt.Errorf("%w: royalty %s has nothing due", domain.ErrInsufficientBalance, roy.ID)
		}

		policy, managerID, err := s.resolvePolicy(ctx, repos, roy, input.ArtistFraction)
		if err != nil {
			return err
		}
		artistShare, managerShare := policy.Split(due)

		now := time.Now().UTC()
		tx := &domain.Transaction{
			ID:             uuid.NewString(),
			RoyaltyID:      roy.ID,
			SongID:         roy.SongID,
			ArtistID:       roy.ArtistID,
			ManagerID:      managerID,
			Amount:         due,
			ArtistShare:    artistShare,
			ManagerShare:   managerShare,
			ArtistFraction: policy.ArtistFraction,
			Status:         domain.TxPending,
			CreatedAt:      now,
		}
		if err := repos.Transactions.Insert(ctx, tx); err != nil {
			return err
		}

		ok, err := repos.Royalties.SettleDue(ctx, roy.ID, roy.Version, due, now)
		if err != nil {
			return err
		}
		if !ok {
			return errVersionConflict
		}

		roy.RoyaltyDue = roy.RoyaltyDue.Sub(due)
		roy.RoyaltyPaid = roy.RoyaltyPaid.Add(due)
		roy.Version++
		roy.UpdatedAt = now
		out = &ports.DisburseResult{Transaction: tx, Royalty: roy}
		return nil
	})
	return out, err
}

// resolvePolicy picks the split and the manager to credit. An explicit fraction
// wins; otherwise the commission of the manager overseeing the song applies.
func (s *royaltyService) resolvePolicy(ctx context.Context, repos ports.Repositories, roy *domain.Royalty, fraction *decimal.Decimal) (domain.SplitPolicy, string, error) {
	managerID := ""
	var commission *decimal.Decimal

	c, err := repos.Collaborations.FindUsableByArtistSong(ctx, roy.ArtistID, roy.SongID)
	switch {
	case err == nil:
		managerID = c.ManagerID
		if fraction == nil {
			mp, err := repos.Accounts.FindManagerProfile(ctx, c.ManagerID)
			if err != nil {
				return domain.SplitPolicy{}, "", err
			}
			commission = &mp.CommissionPercentage
		}
	case !errors.Is(err, domain.ErrCollaborationNotFound):
		return domain.SplitPolicy{}, "", err
	}

	switch {
	case fraction != nil:
		return domain.SplitPolicy{ArtistFraction: *fraction}, managerID, nil
	case commission != nil:
		return domain.SplitPolicyFromCommission(*commission), managerID, nil
	default:
		return domain.FullArtistShare(), managerID, nil
	}
}

// ApproveTransaction confirms a pending transaction. Balances are unaffected.
func (s *royaltyService) ApproveTransaction(ctx context.Context, id string) (out *domain.Transaction, err error) {
	defer func() { s.metrics.Ledger("approve_transaction", metrics.Result(err)) }()

	err = s.tx.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		tx, err := repos.Transactions.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if tx.Status != domain.TxPending {
			return fmt.Errorf("%w: transaction %s is %s", domain.ErrInvalidState, id, tx.Status)
		}
		now := time.Now().UTC()
		ok, err := repos.Transactions.CompareAndSetStatus(ctx, id, domain.TxPending, domain.TxApproved, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: transaction %s is no longer pending", domain.ErrInvalidState, id)
		}
		tx.Status = domain.TxApproved
		tx.ApprovedAt = &now
		out = tx
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("approve transaction: %w", err)
	}

	s.log.Info().Str("transaction_id", id).Msg("transaction approved")
	s.emitTransaction(ctx, out, "Disbursement %s of %s for song %s was approved.")
	return out, nil
}

func (s *royaltyService) GetRoyalty(ctx context.Context, id string) (*domain.Royalty, error) {
	roy, err := s.repos.Royalties.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get royalty: %w", err)
	}
	return roy, nil
}

func (s *royaltyService) ListRoyalties(ctx context.Context, artistID string) ([]*domain.Royalty, error) {
	list, err := s.repos.Royalties.ListByArtist(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("list royalties: %w", err)
	}
	return list, nil
}

func (s *royaltyService) ListTransactions(ctx context.Context, artistID string) ([]*domain.Transaction, error) {
	list, err := s.repos.Transactions.ListByArtist(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return list, nil
}

// Balance sums the artist's royalties.
func (s *royaltyService) Balance(ctx context.Context, artistID string) (*domain.Balance, error) {
	list, err := s.repos.Royalties.ListByArtist(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	b := &domain.Balance{
		ArtistID:     artistID,
		TotalRoyalty: decimal.Zero,
		RoyaltyDue:   decimal.Zero,
		RoyaltyPaid:  decimal.Zero,
		Royalties:    len(list),
	}
	for _, r := range list {
		b.TotalRoyalty = b.TotalRoyalty.Add(r.TotalRoyalty)
		b.RoyaltyDue = b.RoyaltyDue.Add(r.RoyaltyDue)
		b.RoyaltyPaid = b.RoyaltyPaid.Add(r.RoyaltyPaid)
	}
	return b, nil
}

func (s *royaltyService) emitTransaction(ctx context.Context, tx *domain.Transaction, format string) {
	msg := fmt.Sprintf(format, tx.ID, tx.Amount.StringFixed(domain.CurrencyPlaces), tx.SongID)
	s.notify.Emit(ctx, tx.ArtistID, msg)
	if tx.ManagerID != "" {
		s.notify.Emit(ctx, tx.ManagerID, msg)
	}
}
