// Package distlock serializes work across processes sharing a PostgreSQL
// database using transaction-scoped advisory locks.
package distlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
)

// Execer is satisfied by *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// LockID derives a deterministic advisory lock ID from key.
func LockID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// LockTx blocks until the advisory lock for key is held by tx. The lock is
// released when tx commits or rolls back, so it survives connection pooling
// and is dropped if the session dies.
func LockTx(ctx context.Context, tx Execer, key string) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", LockID(key)); err != nil {
		return fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	return nil
}
