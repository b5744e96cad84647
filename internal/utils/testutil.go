package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	loadTestEnv()
}

// loadTestEnv loads the project .env so datastore tests can find their URLs.
func loadTestEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		_ = godotenv.Load()
	}
}

// SetupTestPostgres connects to POSTGRES_URL_TEST and drops the given tables.
// The test is skipped when the variable is unset.
func SetupTestPostgres(t *testing.T, tables ...string) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("POSTGRES_URL_TEST")
	if url == "" {
		t.Skip("POSTGRES_URL_TEST not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err, "Failed to connect to PostgreSQL")
	require.NoError(t, pool.Ping(context.Background()), "Failed to ping PostgreSQL")
	for _, table := range tables {
		_, err := pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// SetupTestMongo connects to MONGO_URI_TEST and drops the given collections.
// The test is skipped when the variable is unset.
func SetupTestMongo(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI_TEST")
	if uri == "" {
		t.Skip("MONGO_URI_TEST not set")
	}
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	db := client.Database(dbName)
	for _, collection := range collections {
		_ = db.Collection(collection).Drop(context.Background())
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return db
}
