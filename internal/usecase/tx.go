package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"media-suite-accounts/internal/domain/ports/repository"
)

// maxTxAttempts bounds retries of transactions the store aborts while
// enforcing serializable isolation.
const maxTxAttempts = 3

// runTx executes fn through the transaction manager, retrying when the
// store aborts the transaction with a serialization or deadlock failure
// (SQLSTATE 40001 / 40P01). The losing side of two serializable
// transactions is aborted, not blocked; re-running it against the winner's
// committed state is the correct continuation. fn must be safe to re-run
// from scratch: each attempt re-reads its inputs inside the new
// transaction.
func runTx(ctx context.Context, tm repository.TransactionManager, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = tm.WithTx(ctx, opts, fn)
		if err == nil || !isRetryableTxError(err) {
			return err
		}
	}
	return err
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
