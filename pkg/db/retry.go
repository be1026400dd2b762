package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
)

// Postgres SQLSTATE classes that indicate the transaction lost a race and can
// be replayed from scratch.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// RetryPolicy bounds the replay loop for conflicting transactions.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy matches the engine's stock-conflict defaults.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: 25 * time.Millisecond}

// WithTxRetry runs fn inside a transaction, replaying it when the database
// reports a lock or serialization conflict. The whole unit is re-executed on
// each attempt; fn must not carry state between attempts. After the attempts
// are exhausted the conflict surfaces as a retryable CONFLICT error.
func (c *Client) WithTxRetry(ctx context.Context, policy RetryPolicy, fn func(tx *gorm.DB) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && policy.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(policy.Delay):
			}
		}
		err = c.WithTx(ctx, fn)
		if err == nil || !IsConflict(err) {
			return err
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction conflict persisted after retries")
}

// IsConflict reports whether the error is a replayable database conflict.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
		return true
	}
	return false
}

// NotFound reports whether the error is GORM's missing-record sentinel.
func NotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
