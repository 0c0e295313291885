package mongo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/soundledger/royalty-service/internal/core/ports"
)

// Store wires the Mongo repositories and runs transactions on client sessions.
// Repository calls made with the session context handed to an Execute callback
// join that transaction; calls made with any other context auto-commit.
type Store struct {
	client        *mongo.Client
	repos         ports.Repositories
	notifications *NotificationRepository
	log           zerolog.Logger
}

// NewStore builds the repositories over db.
func NewStore(client *mongo.Client, db *mongo.Database, log zerolog.Logger) *Store {
	return &Store{
		client: client,
		repos: ports.Repositories{
			Accounts:       NewAccountRepository(db),
			Collaborations: NewCollaborationRepository(db),
			Royalties:      NewRoyaltyRepository(db),
			Transactions:   NewTransactionRepository(db),
		},
		notifications: NewNotificationRepository(db),
		log:           log,
	}
}

// Repositories returns the repository set.
func (s *Store) Repositories() ports.Repositories { return s.repos }

// Notifications returns the notification repository.
func (s *Store) Notifications() *NotificationRepository { return s.notifications }

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Execute runs fn in a snapshot transaction with majority writes. The driver
// retries fn on TransientTransactionError. A panic in fn aborts the
// transaction before being re-raised.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return mapError(err, "start session")
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())

	var panicked any
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (_ any, cbErr error) {
		defer func() {
			if r := recover(); r != nil {
				panicked = r
				cbErr = fmt.Errorf("transaction callback panicked: %v", r)
			}
		}()
		return nil, fn(sc, s.repos)
	}, txnOpts)

	if panicked != nil {
		s.log.Error().Interface("panic", panicked).Msg("transaction aborted by panic")
		panic(panicked)
	}
	return mapError(err, "transaction")
}

var _ ports.TxManager = (*Store)(nil)
