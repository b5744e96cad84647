package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func mongoDuplicateKeyError(key string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: test.users index: email_1 dup key: { : %q }", key),
	}}}
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetries(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, 3, IsTransient)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	want := errors.New("some other error")
	err := WithRetries(context.Background(), func(context.Context) error {
		calls++
		return want
	}, 3, IsTransient)

	assert.ErrorIs(t, err, want)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	calls := 0
	serialization := &pgconn.PgError{Code: "40001"}
	err := WithRetries(context.Background(), func(context.Context) error {
		calls++
		return serialization
	}, 3, IsTransient)

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 4, calls)
}

func TestWithRetries_RecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	err := WithRetries(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	}, 3, IsTransient)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetries_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetries(ctx, func(context.Context) error {
		calls++
		cancel()
		return &pgconn.PgError{Code: "40001"}
	}, 3, IsTransient)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, IsMongoDuplicateKeyError(mongoDuplicateKeyError("a@b.co")))
	assert.True(t, IsPostgresDuplicateKeyError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsPostgresDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsMongoDuplicateKeyError(errors.New("boom")))
	assert.False(t, IsTransient(mongoDuplicateKeyError("a@b.co")))
}
