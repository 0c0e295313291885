package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// CollaborationRepository implements ports.CollaborationRepository. The
// denormalised active flag backs the partial unique index on the pair.
type CollaborationRepository struct {
	coll *mongo.Collection
}

func NewCollaborationRepository(db *mongo.Database) *CollaborationRepository {
	return &CollaborationRepository{coll: db.Collection(collaborationCollection)}
}

var _ ports.CollaborationRepository = (*CollaborationRepository)(nil)

type collaborationDoc struct {
	ID                 string    `bson:"_id"`
	ManagerID          string    `bson:"manager_id"`
	ArtistID           string    `bson:"artist_id"`
	Status             string    `bson:"status"`
	Active             bool      `bson:"active"`
	RequestedBy        string    `bson:"requested_by"`
	Songs              []string  `bson:"songs"`
	CancellationReason string    `bson:"cancellation_reason,omitempty"`
	CancelRequestedBy  string    `bson:"cancel_requested_by,omitempty"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

func (d collaborationDoc) toDomain() *domain.Collaboration {
	songs := d.Songs
	if songs == nil {
		songs = []string{}
	}
	return &domain.Collaboration{
		ID:                 d.ID,
		ManagerID:          d.ManagerID,
		ArtistID:           d.ArtistID,
		Status:             domain.CollaborationStatus(d.Status),
		RequestedBy:        d.RequestedBy,
		Songs:              songs,
		CancellationReason: d.CancellationReason,
		CancelRequestedBy:  d.CancelRequestedBy,
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
	}
}

func (r *CollaborationRepository) Insert(ctx context.Context, c *domain.Collaboration) error {
	songs := c.Songs
	if songs == nil {
		songs = []string{}
	}
	doc := collaborationDoc{
		ID:                 c.ID,
		ManagerID:          c.ManagerID,
		ArtistID:           c.ArtistID,
		Status:             string(c.Status),
		Active:             c.Status.IsActive(),
		RequestedBy:        c.RequestedBy,
		Songs:              songs,
		CancellationReason: c.CancellationReason,
		CancelRequestedBy:  c.CancelRequestedBy,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrActiveCollaboration
		}
		return mapError(err, "insert collaboration")
	}
	return nil
}

func (r *CollaborationRepository) FindByID(ctx context.Context, id string) (*domain.Collaboration, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *CollaborationRepository) FindActiveByPair(ctx context.Context, managerID, artistID string) (*domain.Collaboration, error) {
	return r.findOne(ctx, bson.M{"manager_id": managerID, "artist_id": artistID, "active": true})
}

func (r *CollaborationRepository) FindUsableByArtistSong(ctx context.Context, artistID, songID string) (*domain.Collaboration, error) {
	filter := bson.M{
		"artist_id": artistID,
		"status":    bson.M{"$in": statusStrings(usableStatuses())},
		"songs":     songID,
	}
	return r.findOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *CollaborationRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.Collaboration, error) {
	var doc collaborationDoc
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCollaborationNotFound
		}
		return nil, mapError(err, "find collaboration")
	}
	return doc.toDomain(), nil
}

func (r *CollaborationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Collaboration, error) {
	filter := bson.M{"$or": bson.A{bson.M{"manager_id": userID}, bson.M{"artist_id": userID}}}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapError(err, "list collaborations")
	}
	defer cur.Close(ctx)

	out := []*domain.Collaboration{}
	for cur.Next(ctx) {
		var doc collaborationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapError(err, "decode collaboration")
		}
		out = append(out, doc.toDomain())
	}
	return out, mapError(cur.Err(), "iterate collaborations")
}

func (r *CollaborationRepository) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	filter := bson.M{
		"active": true,
		"$or":    bson.A{bson.M{"manager_id": userID}, bson.M{"artist_id": userID}},
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	return n, mapError(err, "count active collaborations")
}

func (r *CollaborationRepository) CompareAndSwapStatus(ctx context.Context, id string, from domain.CollaborationStatus, change domain.CollaborationChange) (bool, error) {
	set := bson.M{
		"status":     string(change.To),
		"active":     change.To.IsActive(),
		"updated_at": change.At,
	}
	if change.CancellationReason != nil {
		set["cancellation_reason"] = *change.CancellationReason
	}
	if change.CancelRequestedBy != nil {
		set["cancel_requested_by"] = *change.CancelRequestedBy
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "status": string(from)}, bson.M{"$set": set})
	if err != nil {
		return false, mapError(err, "swap collaboration status")
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, id)
}

func (r *CollaborationRepository) SetSongs(ctx context.Context, id string, songs []string, allowed []domain.CollaborationStatus) (bool, error) {
	if songs == nil {
		songs = []string{}
	}
	filter := bson.M{"_id": id, "status": bson.M{"$in": statusStrings(allowed)}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"songs": songs, "updated_at": time.Now().UTC()}})
	if err != nil {
		return false, mapError(err, "set collaboration songs")
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, id)
}

// mustExist distinguishes a lost compare-and-swap from a missing document.
func (r *CollaborationRepository) mustExist(ctx context.Context, id string) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return mapError(err, "check collaboration")
	}
	if n == 0 {
		return domain.ErrCollaborationNotFound
	}
	return nil
}

func usableStatuses() []domain.CollaborationStatus {
	out := []domain.CollaborationStatus{}
	for _, s := range domain.CollaborationStatuses {
		if s.IsUsable() {
			out = append(out, s)
		}
	}
	return out
}

func statusStrings(in []domain.CollaborationStatus) bson.A {
	out := make(bson.A, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
