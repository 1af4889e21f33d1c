package store

import (
	"context"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hatlonely/formlayout/form"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
)

// RetryOptions 事务冲突重试配置
type RetryOptions struct {
	// 最大重试次数，不含第一次执行
	MaxRetries int `cfg:"maxRetries" def:"5" validate:"min=0"`

	// 指数退避的初始间隔
	BaseDelay time.Duration `cfg:"baseDelay" def:"10ms"`
}

func (o *RetryOptions) backoff() retry.Backoff {
	base := o.BaseDelay
	if base <= 0 {
		base = 10 * time.Millisecond
	}
	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(uint64(max(o.MaxRetries, 0)), b)
}

// withRetry 执行事务，冲突时退避重试
func withRetry(ctx context.Context, options *RetryOptions, op string, fn func(ctx context.Context) error) error {
	err := retry.Do(ctx, options.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isConflict(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if form.IsDomain(err) {
		return err
	}
	return &form.TransactionError{Op: op, Cause: err}
}

// isConflict 可重试的并发冲突：sqlite 忙/锁，mysql 死锁/锁等待超时，postgres 序列化失败/死锁
func isConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// isDuplicateKey 唯一约束冲突
func isDuplicateKey(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
