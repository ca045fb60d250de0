package tokens

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
)

// Metadata keys owned by MetadataDurable.
const (
	KeyLongTermToken        = "long_term_token"
	KeyLongTermTokenSavedAt = "long_term_token_saved_at"
)

// Durable persists the long-term token. Get returns "" when nothing is stored.
type Durable interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// MetadataDurable stores the long-term token in the local metadata table.
type MetadataDurable struct {
	db      *sql.DB
	newRepo metadata.Factory
	now     func() time.Time
}

// NewMetadataDurable stores through repositories built by newRepo, bound to
// db for reads and to a transaction for paired writes.
func NewMetadataDurable(db *sql.DB, newRepo metadata.Factory) *MetadataDurable {
	return &MetadataDurable{db: db, newRepo: newRepo, now: time.Now}
}

func (d *MetadataDurable) Get(ctx context.Context) (string, error) {
	v, err := d.newRepo(d.db).Get(ctx, KeyLongTermToken)
	if err != nil {
		return "", fmt.Errorf("read long-term token: %w", err)
	}
	return string(v), nil
}

// Set writes the token together with its save time in one transaction.
func (d *MetadataDurable) Set(ctx context.Context, token string) error {
	savedAt := strconv.FormatInt(d.now().UTC().Unix(), 10)

	err := dbx.WithTx(ctx, d.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := d.newRepo(tx)
		if err := repo.Set(ctx, KeyLongTermToken, []byte(token)); err != nil {
			return err
		}
		return repo.Set(ctx, KeyLongTermTokenSavedAt, []byte(savedAt))
	})
	if err != nil {
		return fmt.Errorf("write long-term token: %w", err)
	}
	return nil
}

// SavedAt returns when the current token was written, zero if never.
func (d *MetadataDurable) SavedAt(ctx context.Context) (time.Time, error) {
	v, err := d.newRepo(d.db).Get(ctx, KeyLongTermTokenSavedAt)
	if err != nil {
		return time.Time{}, err
	}
	if len(v) == 0 {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", KeyLongTermTokenSavedAt, err)
	}
	return time.Unix(sec, 0).UTC(), nil
}

func (d *MetadataDurable) Delete(ctx context.Context) error {
	err := dbx.WithTx(ctx, d.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := d.newRepo(tx)
		if err := repo.Delete(ctx, KeyLongTermToken); err != nil {
			return err
		}
		return repo.Delete(ctx, KeyLongTermTokenSavedAt)
	})
	if err != nil {
		return fmt.Errorf("delete long-term token: %w", err)
	}
	return nil
}
