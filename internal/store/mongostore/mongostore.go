// Package mongostore implements the store contracts on MongoDB, rendering
// query specs to filters and aggregation pipelines.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"propflow/api/internal/db"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

const (
	listingsCollection    = "listings"
	enquiriesCollection   = "enquiries"
	usersCollection       = "users"
	credentialsCollection = "credentials"
	chatLogsCollection    = "chat_logs"
)

// New wires every store onto conn's database. Close disconnects it.
func New(conn *db.Mongo) store.Stores {
	database := conn.Database
	listings := &ListingStore{coll: database.Collection(listingsCollection)}
	enquiries := &EnquiryStore{coll: database.Collection(enquiriesCollection)}
	return store.Stores{
		Listings:      listings,
		Enquiries:     enquiries,
		Users:         &UserStore{coll: database.Collection(usersCollection)},
		Credentials:   &CredentialStore{coll: database.Collection(credentialsCollection)},
		ChatLogs:      &ChatLogStore{coll: database.Collection(chatLogsCollection)},
		ListingOwners: listings,
		EnquiryOwners: enquiries,
		Close:         func() { _ = conn.Close() },
	}
}

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		credentialsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		listingsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "agent_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		enquiriesCollection: {
			{Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "listing_id", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func aggregate[T any](ctx context.Context, coll *mongo.Collection, spec query.Spec) ([]T, error) {
	pipeline, err := query.BSONPipeline(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s pipeline: %w", coll.Name(), err)
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func findPage[T any](ctx context.Context, coll *mongo.Collection, spec query.Spec) ([]T, int64, error) {
	out, err := aggregate[T](ctx, coll, spec)
	if err != nil {
		return nil, 0, err
	}
	total, err := count(ctx, coll, spec.Predicates)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func count(ctx context.Context, coll *mongo.Collection, preds []query.Predicate) (int64, error) {
	filter, err := query.BSONFilter(preds)
	if err != nil {
		return 0, fmt.Errorf("failed to render %s filter: %w", coll.Name(), err)
	}
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", coll.Name(), err)
	}
	return n, nil
}

func groupCount(ctx context.Context, coll *mongo.Collection, preds []query.Predicate, field string) (map[string]int64, error) {
	filter, err := query.BSONFilter(preds)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s filter: %w", coll.Name(), err)
	}
	cursor, err := coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to group %s by %s: %w", coll.Name(), field, err)
	}
	var groups []struct {
		Key   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode %s groups: %w", coll.Name(), err)
	}
	out := make(map[string]int64, len(groups))
	for _, g := range groups {
		out[g.Key] = g.Count
	}
	return out, nil
}

func findByID[T any](ctx context.Context, coll *mongo.Collection, id string) (*T, error) {
	var v T
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&v); err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

// setByID applies $set fields plus updated_at and returns the updated document.
func setByID[T any](ctx context.Context, coll *mongo.Collection, id string, fields map[string]any) (*T, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var v T
	err := coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.M{"$set": set}, opts).Decode(&v)
	if err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func ownerOf(ctx context.Context, coll *mongo.Collection, id string) (string, error) {
	var doc struct {
		AgentID string `bson:"agent_id"`
	}
	opts := options.FindOne().SetProjection(bson.D{{Key: "agent_id", Value: 1}})
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}, opts).Decode(&doc); err != nil {
		return "", translate(err)
	}
	return doc.AgentID, nil
}

func insert(ctx context.Context, coll *mongo.Collection, doc any) error {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", coll.Name(), translate(err))
	}
	return nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case db.IsMongoDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	default:
		return err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
