// Package metadata is the client's local key/value table. The durable
// token store keeps the long-term token and its save time here.
package metadata

import (
	"context"

	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
)

// Repository stores opaque values by key. Get returns (nil, nil) for a
// missing key and a non-nil slice for a present one, even when empty.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Factory binds a Repository to an executor, so one store can be used both
// directly on the database and inside a transaction.
type Factory func(db dbx.DBTX) Repository

// SQLite is the Factory for SQLiteRepository.
func SQLite(db dbx.DBTX) Repository {
	return NewSQLiteRepository(db)
}
