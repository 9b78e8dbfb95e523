// Package tx provides the transactional boundary shared by every mutation
// path. A transaction is carried through context so stores can bind to it
// without knowing who opened it.
package tx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTx returns a context carrying the transaction. A nil tx is ignored so
// callers can pass through unconditionally.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// From reports the transaction bound to ctx, if any. Stores that find none
// fall back to their plain database handle.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}
