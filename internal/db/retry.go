package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a single attempt at a datastore write.
type Operation func(ctx context.Context) error

// Retryable decides whether a failed attempt may be repeated.
type Retryable func(err error) bool

const DefaultMaxRetries = 3

// Try runs op, retrying transient failures up to DefaultMaxRetries times.
func Try(ctx context.Context, op Operation) error {
	return WithRetries(ctx, op, DefaultMaxRetries, IsTransient)
}

// WithRetries runs op once plus up to maxRetries more times while retryable
// accepts the error. It backs off 50ms, 100ms, ... between attempts and stops
// early if ctx is done.
func WithRetries(ctx context.Context, op Operation, maxRetries int, retryable Retryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(50*(attempt+1)) * time.Millisecond):
		}
	}
	return err
}

// IsTransient reports errors worth retrying: network and timeout failures
// reported by the mongo driver, and postgres serialization or deadlock aborts.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	return isPostgresRetryable(err)
}

// IsMongoDuplicateKeyError checks for a MongoDB duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, we := range bwe.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	return false
}
