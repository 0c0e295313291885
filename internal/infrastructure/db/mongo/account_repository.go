package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// AccountRepository implements ports.AccountRepository over the users and
// profile collections. Profiles use the owning user's id as _id.
type AccountRepository struct {
	users    *mongo.Collection
	artists  *mongo.Collection
	managers *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		users:    db.Collection(usersCollection),
		artists:  db.Collection(artistsCollection),
		managers: db.Collection(managersCollection),
	}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

type userDoc struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	CredentialHash string    `bson:"credential_hash"`
	Role           string    `bson:"role"`
	IsActive       bool      `bson:"is_active"`
	IsFirstLogin   bool      `bson:"is_first_login"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:             d.ID,
		Username:       d.Username,
		CredentialHash: d.CredentialHash,
		Role:           domain.Role(d.Role),
		IsActive:       d.IsActive,
		IsFirstLogin:   d.IsFirstLogin,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

type artistDoc struct {
	UserID    string    `bson:"_id"`
	FullName  string    `bson:"full_name"`
	Email     string    `bson:"email"`
	Phone     string    `bson:"phone,omitempty"`
	StageName string    `bson:"stage_name,omitempty"`
	Genre     string    `bson:"genre,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type managerDoc struct {
	UserID     string               `bson:"_id"`
	FullName   string               `bson:"full_name"`
	Email      string               `bson:"email"`
	Phone      string               `bson:"phone,omitempty"`
	Company    string               `bson:"company,omitempty"`
	Commission primitive.Decimal128 `bson:"commission_percentage"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

func newManagerDoc(p *domain.ManagerProfile) (managerDoc, error) {
	pct, err := toDecimal128(p.CommissionPercentage)
	if err != nil {
		return managerDoc{}, err
	}
	return managerDoc{
		UserID:     p.UserID,
		FullName:   p.FullName,
		Email:      p.Email,
		Phone:      p.Phone,
		Company:    p.Company,
		Commission: pct,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}, nil
}

func (r *AccountRepository) CreateUser(ctx context.Context, user *domain.User) error {
	doc := userDoc{
		ID:             user.ID,
		Username:       user.Username,
		CredentialHash: user.CredentialHash,
		Role:           string(user.Role),
		IsActive:       user.IsActive,
		IsFirstLogin:   user.IsFirstLogin,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return mapError(err, "insert user")
	}
	return nil
}

func (r *AccountRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findUser(ctx, bson.M{"username": username})
}

func (r *AccountRepository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, mapError(err, "find user")
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"credential_hash": user.CredentialHash,
		"is_active":       user.IsActive,
		"is_first_login":  user.IsFirstLogin,
		"updated_at":      user.UpdatedAt,
	}})
	if err != nil {
		return mapError(err, "update user")
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// TouchUser increments write_seq. Inside a snapshot transaction this makes a
// concurrent delete of the same user fail with a write conflict.
func (r *AccountRepository) TouchUser(ctx context.Context, id string) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"write_seq": 1}})
	if err != nil {
		return mapError(err, "touch user")
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *AccountRepository) DeleteUser(ctx context.Context, id string) error {
	return deleteByID(ctx, r.users, id, domain.ErrUserNotFound, "delete user")
}

func (r *AccountRepository) CreateArtistProfile(ctx context.Context, p *domain.ArtistProfile) error {
	_, err := r.artists.InsertOne(ctx, artistDoc(*p))
	return mapError(err, "insert artist profile")
}

func (r *AccountRepository) FindArtistProfile(ctx context.Context, userID string) (*domain.ArtistProfile, error) {
	var doc artistDoc
	if err := r.artists.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, mapError(err, "find artist profile")
	}
	p := domain.ArtistProfile(doc)
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return &p, nil
}

func (r *AccountRepository) UpdateArtistProfile(ctx context.Context, p *domain.ArtistProfile) error {
	res, err := r.artists.ReplaceOne(ctx, bson.M{"_id": p.UserID}, artistDoc(*p))
	if err != nil {
		return mapError(err, "update artist profile")
	}
	if res.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *AccountRepository) DeleteArtistProfile(ctx context.Context, userID string) error {
	return deleteByID(ctx, r.artists, userID, domain.ErrProfileNotFound, "delete artist profile")
}

func (r *AccountRepository) CreateManagerProfile(ctx context.Context, p *domain.ManagerProfile) error {
	doc, err := newManagerDoc(p)
	if err != nil {
		return err
	}
	_, err = r.managers.InsertOne(ctx, doc)
	return mapError(err, "insert manager profile")
}

func (r *AccountRepository) FindManagerProfile(ctx context.Context, userID string) (*domain.ManagerProfile, error) {
	var doc managerDoc
	if err := r.managers.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, mapError(err, "find manager profile")
	}
	pct, err := fromDecimal128(doc.Commission)
	if err != nil {
		return nil, err
	}
	return &domain.ManagerProfile{
		UserID:               doc.UserID,
		FullName:             doc.FullName,
		Email:                doc.Email,
		Phone:                doc.Phone,
		Company:              doc.Company,
		CommissionPercentage: pct,
		CreatedAt:            doc.CreatedAt.UTC(),
		UpdatedAt:            doc.UpdatedAt.UTC(),
	}, nil
}

func (r *AccountRepository) UpdateManagerProfile(ctx context.Context, p *domain.ManagerProfile) error {
	doc, err := newManagerDoc(p)
	if err != nil {
		return err
	}
	res, err := r.managers.ReplaceOne(ctx, bson.M{"_id": p.UserID}, doc)
	if err != nil {
		return mapError(err, "update manager profile")
	}
	if res.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *AccountRepository) DeleteManagerProfile(ctx context.Context, userID string) error {
	return deleteByID(ctx, r.managers, userID, domain.ErrProfileNotFound, "delete manager profile")
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string, notFound error, op string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err, op)
	}
	if res.DeletedCount == 0 {
		return notFound
	}
	return nil
}
