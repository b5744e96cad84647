package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoTimeout = 10 * time.Second

// Mongo is a connected client bound to one database.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// OpenMongo dials uri, confirms the primary is reachable and selects dbName.
func OpenMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	if uri == "" || dbName == "" {
		return nil, errors.New("MONGO_URI and MONGO_DB_NAME are required")
	}
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(mongoTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	slog.Info("Connected to MongoDB", "database", dbName)
	return &Mongo{Client: client, Database: client.Database(dbName)}, nil
}

// Close disconnects the client. Safe on a nil receiver.
func (m *Mongo) Close() error {
	if m == nil || m.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	return nil
}
