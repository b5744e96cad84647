package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

// ListingStore is the mongo listings collection.
type ListingStore struct {
	coll *mongo.Collection
}

var (
	_ store.ListingStore = (*ListingStore)(nil)
	_ store.OwnerLookup  = (*ListingStore)(nil)
)

func (s *ListingStore) Find(ctx context.Context, spec query.Spec) ([]models.Listing, int64, error) {
	return findPage[models.Listing](ctx, s.coll, spec)
}

func (s *ListingStore) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	return findByID[models.Listing](ctx, s.coll, id)
}

func (s *ListingStore) Insert(ctx context.Context, l *models.Listing) error {
	return insert(ctx, s.coll, l)
}

func (s *ListingStore) Update(ctx context.Context, id string, fields map[string]any) (*models.Listing, error) {
	return setByID[models.Listing](ctx, s.coll, id, fields)
}

func (s *ListingStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *ListingStore) Count(ctx context.Context, preds []query.Predicate) (int64, error) {
	return count(ctx, s.coll, preds)
}

func (s *ListingStore) IncrementViewCounts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.coll.UpdateMany(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: models.ListingFieldViewCount, Value: 1}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to increment view counts: %w", err)
	}
	return nil
}

func (s *ListingStore) IncrementEnquiryCount(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: models.ListingFieldEnquiryCount, Value: 1}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to increment enquiry count of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *ListingStore) GroupCount(ctx context.Context, preds []query.Predicate, field string) (map[string]int64, error) {
	return groupCount(ctx, s.coll, preds, field)
}

func (s *ListingStore) OwnerOf(ctx context.Context, id string) (string, error) {
	return ownerOf(ctx, s.coll, id)
}
