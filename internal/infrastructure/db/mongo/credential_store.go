package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/paysecure/auth-service/internal/core/domain"
)

const (
	credentialCollection = "credentials"

	usernameIndex = "uniq_username"
	emailIndex    = "uniq_email"
)

// CredentialStore persists credentials in MongoDB. Uniqueness of username and
// email is enforced by unique indexes so concurrent signups cannot both win.
type CredentialStore struct {
	coll *mongo.Collection
}

func NewCredentialStore(db *mongo.Database) *CredentialStore {
	return &CredentialStore{coll: db.Collection(credentialCollection)}
}

type mongoCredential struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	Enabled      bool               `bson:"enabled"`
	CreatedAt    int64              `bson:"created_at"`
}

// EnsureIndexes creates the unique indexes Save relies on. It is safe to call
// on every startup.
func (s *CredentialStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(usernameIndex),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndex),
		},
	})
	if err != nil {
		return fmt.Errorf("create credential indexes: %w", err)
	}
	return nil
}

func (s *CredentialStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, bson.M{"username": username})
}

func (s *CredentialStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, bson.M{"email": email})
}

func (s *CredentialStore) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count credentials: %w", err)
	}
	return n > 0, nil
}

func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*domain.Credential, error) {
	var mc mongoCredential
	if err := s.coll.FindOne(ctx, bson.M{"username": username}).Decode(&mc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return mc.toDomain(), nil
}

func (s *CredentialStore) Save(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	createdAt := cred.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	doc := mongoCredential{
		ID:           primitive.NewObjectID(),
		Username:     cred.Username,
		Email:        cred.Email,
		PasswordHash: cred.PasswordHash,
		Role:         cred.Role.String(),
		Enabled:      cred.Enabled,
		CreatedAt:    createdAt.Unix(),
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateKeyError(err)
		}
		return nil, fmt.Errorf("insert credential: %w", err)
	}
	return doc.toDomain(), nil
}

// Ping checks the primary is reachable.
func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

// duplicateKeyError maps a unique index violation to the field that caused it.
// The server reports the index name in the error message.
func duplicateKeyError(err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, emailIndex) {
				return domain.ErrEmailTaken
			}
		}
	}
	if strings.Contains(err.Error(), emailIndex) {
		return domain.ErrEmailTaken
	}
	return domain.ErrUsernameTaken
}

func (mc mongoCredential) toDomain() *domain.Credential {
	return &domain.Credential{
		ID:           mc.ID.Hex(),
		Username:     mc.Username,
		Email:        mc.Email,
		PasswordHash: mc.PasswordHash,
		Role:         domain.Role(mc.Role),
		Enabled:      mc.Enabled,
		CreatedAt:    unixToTime(mc.CreatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
