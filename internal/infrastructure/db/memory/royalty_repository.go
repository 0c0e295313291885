package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

type royaltyRepository struct{ v *view }

func (r *royaltyRepository) Accrue(ctx context.Context, key domain.RoyaltyKey, amount decimal.Decimal, at time.Time) (*domain.Royalty, error) {
	var out *domain.Royalty
	err := r.v.do(ctx, OpAccrue, func(st *state) error {
		id, ok := st.royaltyKeys[key]
		if !ok {
			id = uuid.NewString()
			st.royalties[id] = &domain.Royalty{
				ID:           id,
				ArtistID:     key.ArtistID,
				SongID:       key.SongID,
				Period:       key.Period,
				TotalRoyalty: decimal.Zero,
				RoyaltyDue:   decimal.Zero,
				RoyaltyPaid:  decimal.Zero,
				CreatedAt:    at,
			}
			st.royaltyKeys[key] = id
		}
		roy := st.royalties[id]
		roy.Amount = amount
		roy.TotalRoyalty = roy.TotalRoyalty.Add(amount)
		roy.RoyaltyDue = roy.RoyaltyDue.Add(amount)
		roy.Version++
		roy.UpdatedAt = at
		out = cloneRoyalty(roy)
		return nil
	})
	return out, err
}

func (r *royaltyRepository) FindByID(ctx context.Context, id string) (*domain.Royalty, error) {
	var out *domain.Royalty
	err := r.v.do(ctx, "", func(st *state) error {
		roy, ok := st.royalties[id]
		if !ok {
			return domain.ErrRoyaltyNotFound
		}
		out = cloneRoyalty(roy)
		return nil
	})
	return out, err
}

func (r *royaltyRepository) FindByKey(ctx context.Context, key domain.RoyaltyKey) (*domain.Royalty, error) {
	var out *domain.Royalty
	err := r.v.do(ctx, "", func(st *state) error {
		id, ok := st.royaltyKeys[key]
		if !ok {
			return domain.ErrRoyaltyNotFound
		}
		out = cloneRoyalty(st.royalties[id])
		return nil
	})
	return out, err
}

func (r *royaltyRepository) ListByArtist(ctx context.Context, artistID string) ([]*domain.Royalty, error) {
	out := []*domain.Royalty{}
	err := r.v.do(ctx, "", func(st *state) error {
		for _, roy := range st.royalties {
			if roy.ArtistID == artistID {
				out = append(out, cloneRoyalty(roy))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period > out[j].Period
		}
		return out[i].SongID < out[j].SongID
	})
	return out, err
}

func (r *royaltyRepository) SettleDue(ctx context.Context, id string, expectedVersion int64, paid decimal.Decimal, at time.Time) (bool, error) {
	settled := false
	err := r.v.do(ctx, OpSettleDue, func(st *state) error {
		roy, ok := st.royalties[id]
		if !ok {
			return domain.ErrRoyaltyNotFound
		}
		if roy.Version != expectedVersion {
			return nil
		}
		roy.RoyaltyDue = roy.RoyaltyDue.Sub(paid)
		roy.RoyaltyPaid = roy.RoyaltyPaid.Add(paid)
		roy.Version++
		roy.UpdatedAt = at
		settled = true
		return nil
	})
	return settled, err
}

type transactionRepository struct{ v *view }

func (r *transactionRepository) Insert(ctx context.Context, tx *domain.Transaction) error {
	return r.v.do(ctx, OpInsertTransaction, func(st *state) error {
		if _, exists := st.transactions[tx.ID]; exists {
			return domain.ErrConflict
		}
		st.transactions[tx.ID] = cloneTransaction(tx)
		return nil
	})
}

func (r *transactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.v.do(ctx, "", func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		out = cloneTransaction(tx)
		return nil
	})
	return out, err
}

func (r *transactionRepository) ListByArtist(ctx context.Context, artistID string) ([]*domain.Transaction, error) {
	out := []*domain.Transaction{}
	err := r.v.do(ctx, "", func(st *state) error {
		for _, tx := range st.transactions {
			if tx.ArtistID == artistID {
				out = append(out, cloneTransaction(tx))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *transactionRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.TransactionStatus, at time.Time) (bool, error) {
	changed := false
	err := r.v.do(ctx, OpSetTransactionStatus, func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		if tx.Status != from {
			return nil
		}
		tx.Status = to
		if to == domain.TxApproved {
			approvedAt := at
			tx.ApprovedAt = &approvedAt
		}
		changed = true
		return nil
	})
	return changed, err
}
