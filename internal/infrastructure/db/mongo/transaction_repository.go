package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// TransactionRepository implements ports.TransactionRepository.
type TransactionRepository struct {
	coll *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{coll: db.Collection(transactionsCollection)}
}

var _ ports.TransactionRepository = (*TransactionRepository)(nil)

type transactionDoc struct {
	ID             string               `bson:"_id"`
	RoyaltyID      string               `bson:"royalty_id"`
	SongID         string               `bson:"song_id"`
	ArtistID       string               `bson:"artist_id"`
	ManagerID      string               `bson:"manager_id,omitempty"`
	Amount         primitive.Decimal128 `bson:"amount"`
	ArtistShare    primitive.Decimal128 `bson:"artist_share"`
	ManagerShare   primitive.Decimal128 `bson:"manager_share"`
	ArtistFraction primitive.Decimal128 `bson:"artist_fraction"`
	Status         string               `bson:"status"`
	CreatedAt      time.Time            `bson:"created_at"`
	ApprovedAt     *time.Time           `bson:"approved_at,omitempty"`
}

func newTransactionDoc(tx *domain.Transaction) (*transactionDoc, error) {
	doc := &transactionDoc{
		ID:         tx.ID,
		RoyaltyID:  tx.RoyaltyID,
		SongID:     tx.SongID,
		ArtistID:   tx.ArtistID,
		ManagerID:  tx.ManagerID,
		Status:     string(tx.Status),
		CreatedAt:  tx.CreatedAt,
		ApprovedAt: tx.ApprovedAt,
	}
	var err error
	if doc.Amount, err = toDecimal128(tx.Amount); err != nil {
		return nil, err
	}
	if doc.ArtistShare, err = toDecimal128(tx.ArtistShare); err != nil {
		return nil, err
	}
	if doc.ManagerShare, err = toDecimal128(tx.ManagerShare); err != nil {
		return nil, err
	}
	if doc.ArtistFraction, err = toDecimal128(tx.ArtistFraction); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *transactionDoc) toDomain() (*domain.Transaction, error) {
	tx := &domain.Transaction{
		ID:        d.ID,
		RoyaltyID: d.RoyaltyID,
		SongID:    d.SongID,
		ArtistID:  d.ArtistID,
		ManagerID: d.ManagerID,
		Status:    domain.TransactionStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.ApprovedAt != nil {
		at := d.ApprovedAt.UTC()
		tx.ApprovedAt = &at
	}
	var err error
	if tx.Amount, err = fromDecimal128(d.Amount); err != nil {
		return nil, err
	}
	if tx.ArtistShare, err = fromDecimal128(d.ArtistShare); err != nil {
		return nil, err
	}
	if tx.ManagerShare, err = fromDecimal128(d.ManagerShare); err != nil {
		return nil, err
	}
	if tx.ArtistFraction, err = fromDecimal128(d.ArtistFraction); err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *TransactionRepository) Insert(ctx context.Context, tx *domain.Transaction) error {
	doc, err := newTransactionDoc(tx)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(ctx, doc)
	return mapError(err, "insert transaction")
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var doc transactionDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, mapError(err, "find transaction")
	}
	return doc.toDomain()
}

func (r *TransactionRepository) ListByArtist(ctx context.Context, artistID string) ([]*domain.Transaction, error) {
	cur, err := r.coll.Find(ctx, bson.M{"artist_id": artistID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapError(err, "list transactions")
	}
	defer cur.Close(ctx)

	out := []*domain.Transaction{}
	for cur.Next(ctx) {
		var doc transactionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapError(err, "decode transaction")
		}
		tx, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, mapError(cur.Err(), "iterate transactions")
}

func (r *TransactionRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.TransactionStatus, at time.Time) (bool, error) {
	set := bson.M{"status": string(to)}
	if to == domain.TxApproved {
		set["approved_at"] = at
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "status": string(from)}, bson.M{"$set": set})
	if err != nil {
		return false, mapError(err, "set transaction status")
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
