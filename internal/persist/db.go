// Package persist implements the two-table character persistence layout
// described in §6: a small `character` row plus a `character_data` row of
// JSON blobs, committed atomically per content-id. It is grounded on
// la2go's internal/db package — pgxpool.Pool wrapped in a DB handle, goose
// migrations embedded via go:embed, one repository type per aggregate.
package persist

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool for character persistence.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and verifies the connection with a ping.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases the underlying pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool; cmd/worldserver hands it to
// NewCharacterRepository. Migrations open their own connection from the DSN.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}
