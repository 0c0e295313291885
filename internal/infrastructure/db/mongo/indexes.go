package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection         = "users"
	artistsCollection       = "artist_profiles"
	managersCollection      = "manager_profiles"
	collaborationCollection = "collaborations"
	royaltiesCollection     = "royalties"
	transactionsCollection  = "transactions"
	notificationsCollection = "notifications"
)

// EnsureIndexes creates the indexes the repositories rely on for uniqueness
// and lookups. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		},
		collaborationCollection: {
			{
				Keys: bson.D{{Key: "manager_id", Value: 1}, {Key: "artist_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("uniq_active_pair").
					SetPartialFilterExpression(bson.M{"active": true}),
			},
			{Keys: bson.D{{Key: "artist_id", Value: 1}, {Key: "status", Value: 1}, {Key: "songs", Value: 1}}, Options: options.Index().SetName("artist_status_songs")},
			{Keys: bson.D{{Key: "manager_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("manager_created")},
		},
		royaltiesCollection: {
			{
				Keys:    bson.D{{Key: "artist_id", Value: 1}, {Key: "song_id", Value: 1}, {Key: "period", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_royalty_key"),
			},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "artist_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("artist_created")},
			{Keys: bson.D{{Key: "royalty_id", Value: 1}}, Options: options.Index().SetName("royalty")},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("user_created")},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}
