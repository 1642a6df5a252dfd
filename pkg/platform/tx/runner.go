package tx

import (
	"context"
	"database/sql"
)

// Runner executes a function within one unit of work. Services depend on this
// instead of *sql.DB so unit tests with in-memory stores can pass through.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs the function inside a database transaction.
type SQLRunner struct {
	DB *sql.DB
}

func (r SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, r.DB, fn)
}

// Passthrough runs the function directly. Used with in-memory stores where
// there is no transaction to coordinate.
type Passthrough struct{}

func (Passthrough) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
