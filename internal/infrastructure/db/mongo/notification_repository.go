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

// NotificationRepository implements ports.NotificationRepository.
type NotificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{coll: db.Collection(notificationsCollection)}
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

type notificationDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Message   string    `bson:"message"`
	IsRead    bool      `bson:"is_read"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d notificationDoc) toDomain() *domain.Notification {
	n := domain.Notification(d)
	n.CreatedAt = n.CreatedAt.UTC()
	return &n
}

func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	_, err := r.coll.InsertOne(ctx, notificationDoc(*n))
	return mapError(err, "insert notification")
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapError(err, "list notifications")
	}
	defer cur.Close(ctx)

	out := []*domain.Notification{}
	for cur.Next(ctx) {
		var doc notificationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, mapError(err, "decode notification")
		}
		out = append(out, doc.toDomain())
	}
	return out, mapError(cur.Err(), "iterate notifications")
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	var doc notificationDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, mapError(err, "mark notification read")
	}
	return doc.toDomain(), nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id, domain.ErrNotificationNotFound, "delete notification")
}
