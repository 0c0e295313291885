package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// accrueAttempts bounds retries of the first-insert race on a royalty key.
const accrueAttempts = 3

// RoyaltyRepository implements ports.RoyaltyRepository.
type RoyaltyRepository struct {
	coll *mongo.Collection
}

func NewRoyaltyRepository(db *mongo.Database) *RoyaltyRepository {
	return &RoyaltyRepository{coll: db.Collection(royaltiesCollection)}
}

var _ ports.RoyaltyRepository = (*RoyaltyRepository)(nil)

type royaltyDoc struct {
	ID           string               `bson:"_id"`
	ArtistID     string               `bson:"artist_id"`
	SongID       string               `bson:"song_id"`
	Period       string               `bson:"period"`
	Amount       primitive.Decimal128 `bson:"amount"`
	TotalRoyalty primitive.Decimal128 `bson:"total_royalty"`
	RoyaltyDue   primitive.Decimal128 `bson:"royalty_due"`
	RoyaltyPaid  primitive.Decimal128 `bson:"royalty_paid"`
	Version      int64                `bson:"version"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func (d royaltyDoc) toDomain() (*domain.Royalty, error) {
	var err error
	out := &domain.Royalty{
		ID:        d.ID,
		ArtistID:  d.ArtistID,
		SongID:    d.SongID,
		Period:    d.Period,
		Version:   d.Version,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src primitive.Decimal128
	}{
		{&out.Amount, d.Amount},
		{&out.TotalRoyalty, d.TotalRoyalty},
		{&out.RoyaltyDue, d.RoyaltyDue},
		{&out.RoyaltyPaid, d.RoyaltyPaid},
	} {
		if *f.dst, err = fromDecimal128(f.src); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Accrue performs a single upserting $inc so that concurrent accruals on one
// key serialise on the document. Two first inserts racing on the unique key
// make one fail with a duplicate key error; that one is retried as an update.
func (r *RoyaltyRepository) Accrue(ctx context.Context, key domain.RoyaltyKey, amount decimal.Decimal, at time.Time) (*domain.Royalty, error) {
	amt, err := toDecimal128(amount)
	if err != nil {
		return nil, err
	}
	zero, _ := primitive.ParseDecimal128("0")

	filter := bson.M{"artist_id": key.ArtistID, "song_id": key.SongID, "period": key.Period}
	update := bson.M{
		"$inc": bson.M{"total_royalty": amt, "royalty_due": amt, "version": int64(1)},
		"$set": bson.M{"amount": amt, "updated_at": at},
		"$setOnInsert": bson.M{
			"_id":          uuid.NewString(),
			"royalty_paid": zero,
			"created_at":   at,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	for attempt := 1; ; attempt++ {
		var doc royaltyDoc
		err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if err == nil {
			return doc.toDomain()
		}
		if !mongo.IsDuplicateKeyError(err) || attempt == accrueAttempts {
			return nil, mapError(err, "accrue royalty")
		}
	}
}

func (r *RoyaltyRepository) FindByID(ctx context.Context, id string) (*domain.Royalty, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *RoyaltyRepository) FindByKey(ctx context.Context, key domain.RoyaltyKey) (*domain.Royalty, error) {
	return r.findOne(ctx, bson.M{"artist_id": key.ArtistID, "song_id": key.SongID, "period": key.Period})
}

func (r *RoyaltyRepository) findOne(ctx context.Context, filter bson.M) (*domain.Royalty, error) {
	var doc royaltyDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoyaltyNotFound
		}
		return nil, mapError(err, "find royalty")
	}
	return doc.toDomain()
}

func (r *RoyaltyRepository) ListByArtist(ctx context.Context, artistID string) ([]*domain.Royalty, error) {
	opts := options.Find().SetSort(bson.D{{Key: "period", Value: -1}, {Key: "song_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"artist_id": artistID}, opts)
	if err != nil {
		return nil, mapError(err, "list royalties")
	}
	defer cur.Close(ctx)

	out := []*domain.Royalty{}
	for cur.Next(ctx) {
		var doc royaltyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapError(err, "decode royalty")
		}
		roy, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, roy)
	}
	return out, mapError(cur.Err(), "iterate royalties")
}

// SettleDue moves paid from due to paid if the version still matches.
func (r *RoyaltyRepository) SettleDue(ctx context.Context, id string, expectedVersion int64, paid decimal.Decimal, at time.Time) (bool, error) {
	credit, err := toDecimal128(paid)
	if err != nil {
		return false, err
	}
	debit, err := toDecimal128(paid.Neg())
	if err != nil {
		return false, err
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		bson.M{
			"$inc": bson.M{"royalty_due": debit, "royalty_paid": credit, "version": int64(1)},
			"$set": bson.M{"updated_at": at},
		},
	)
	if err != nil {
		return false, mapError(err, "settle royalty")
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, mapError(err, "check royalty")
	}
	if n == 0 {
		return false, domain.ErrRoyaltyNotFound
	}
	return false, nil
}
