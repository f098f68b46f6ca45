package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Querier 由 *sql.DB 和 *sql.Tx 共同实现，
// 同一仓库方法既可直接执行、也可在某个工作单元的事务内执行。
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("not found")
