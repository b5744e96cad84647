package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

// UserStore is the mongo users collection.
type UserStore struct {
	coll *mongo.Collection
}

var _ store.UserStore = (*UserStore)(nil)

func (s *UserStore) Find(ctx context.Context, spec query.Spec) ([]models.User, error) {
	return aggregate[models.User](ctx, s.coll, spec)
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return findByID[models.User](ctx, s.coll, id)
}

func (s *UserStore) Insert(ctx context.Context, u *models.User) error {
	return insert(ctx, s.coll, u)
}

func (s *UserStore) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	return setByID[models.User](ctx, s.coll, id, map[string]any{models.UserFieldIsActive: active})
}

func (s *UserStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: bson.D{{Key: "last_login", Value: at}}}})
	if err != nil {
		return fmt.Errorf("failed to record login of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *UserStore) Count(ctx context.Context, preds []query.Predicate) (int64, error) {
	return count(ctx, s.coll, preds)
}

// CredentialStore is the mongo credentials collection. Emails are stored
// lower-cased.
type CredentialStore struct {
	coll *mongo.Collection
}

var _ store.CredentialStore = (*CredentialStore)(nil)

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.Credentials, error) {
	var c models.Credentials
	if err := s.coll.FindOne(ctx, bson.D{{Key: "email", Value: normalizeEmail(email)}}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *CredentialStore) Save(ctx context.Context, c *models.Credentials) error {
	doc := *c
	doc.Email = normalizeEmail(c.Email)
	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: c.UserID}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", translate(err))
	}
	return nil
}

// ChatLogStore is the mongo chat_logs collection.
type ChatLogStore struct {
	coll *mongo.Collection
}

var _ store.ChatLogStore = (*ChatLogStore)(nil)

func (s *ChatLogStore) Insert(ctx context.Context, l *models.ChatLog) error {
	return insert(ctx, s.coll, l)
}
