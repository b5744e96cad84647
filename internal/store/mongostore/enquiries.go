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

// EnquiryStore is the mongo enquiries collection.
type EnquiryStore struct {
	coll *mongo.Collection
}

var (
	_ store.EnquiryStore = (*EnquiryStore)(nil)
	_ store.OwnerLookup  = (*EnquiryStore)(nil)
)

func (s *EnquiryStore) Find(ctx context.Context, spec query.Spec) ([]models.Enquiry, int64, error) {
	return findPage[models.Enquiry](ctx, s.coll, spec)
}

func (s *EnquiryStore) Insert(ctx context.Context, e *models.Enquiry) error {
	return insert(ctx, s.coll, e)
}

func (s *EnquiryStore) UpdateStatus(ctx context.Context, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	return setByID[models.Enquiry](ctx, s.coll, id, map[string]any{models.EnquiryFieldStatus: status})
}

func (s *EnquiryStore) Count(ctx context.Context, preds []query.Predicate) (int64, error) {
	return count(ctx, s.coll, preds)
}

func (s *EnquiryStore) CreatedSince(ctx context.Context, preds []query.Predicate, since time.Time) ([]time.Time, error) {
	all := append(append([]query.Predicate{}, preds...), query.Range{Field: models.EnquiryFieldCreatedAt, Min: since})
	filter, err := query.BSONFilter(all)
	if err != nil {
		return nil, fmt.Errorf("failed to render enquiry timeline: %w", err)
	}
	opts := options.Find().SetProjection(bson.D{{Key: models.EnquiryFieldCreatedAt, Value: 1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query enquiry timeline: %w", err)
	}
	var docs []struct {
		CreatedAt time.Time `bson:"created_at"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode enquiry timeline: %w", err)
	}
	out := make([]time.Time, len(docs))
	for i, d := range docs {
		out[i] = d.CreatedAt
	}
	return out, nil
}

func (s *EnquiryStore) GroupCount(ctx context.Context, preds []query.Predicate, field string) (map[string]int64, error) {
	return groupCount(ctx, s.coll, preds, field)
}

func (s *EnquiryStore) OwnerOf(ctx context.Context, id string) (string, error) {
	return ownerOf(ctx, s.coll, id)
}
