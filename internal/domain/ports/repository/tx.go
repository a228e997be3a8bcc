package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// The concrete type is infra-defined (pgx.Tx for Postgres). Repositories
// MUST accept NoTX and fall back to their non-transactional path.
type Tx interface{}

// NoTX marks a repository call outside any transaction.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via tx. If fn returns an error the
// transaction is rolled back on every exit path; otherwise it is committed.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
