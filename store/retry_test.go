package store

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hatlonely/formlayout/form"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsConflict(t *testing.T) {
	assert.True(t, isConflict(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, isConflict(errors.Wrap(sqlite3.Error{Code: sqlite3.ErrLocked}, "commit")))
	assert.True(t, isConflict(&mysql.MySQLError{Number: 1213}))
	assert.True(t, isConflict(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isConflict(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isConflict(errors.New("boom")))
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.True(t, isDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.True(t, isDuplicateKey(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isDuplicateKey(nil))
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	options := &RetryOptions{MaxRetries: 3, BaseDelay: time.Millisecond}

	t.Run("conflict then success", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, options, "insert", func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return sqlite3.Error{Code: sqlite3.ErrBusy}
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("conflict exhausts retries", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, options, "insert", func(ctx context.Context) error {
			attempts++
			return &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
		})
		assert.Equal(t, 4, attempts)
		assert.True(t, form.IsTransaction(err))
		assert.Contains(t, err.Error(), "Deadlock found")
	})

	t.Run("domain error is not retried", func(t *testing.T) {
		attempts := 0
		err := withRetry(ctx, options, "move", func(ctx context.Context) error {
			attempts++
			return &form.NotFoundError{Entity: "field", Key: "x"}
		})
		assert.Equal(t, 1, attempts)
		assert.True(t, form.IsNotFound(err))
		assert.False(t, form.IsTransaction(err))
	})

	t.Run("other errors become transaction errors", func(t *testing.T) {
		err := withRetry(ctx, options, "remove", func(ctx context.Context) error {
			return errors.New("connection reset")
		})
		var txErr *form.TransactionError
		assert.True(t, errors.As(err, &txErr))
		assert.Equal(t, "remove", txErr.Op)
	})
}
