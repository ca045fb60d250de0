package tokens

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/storage"
	"github.com/dmitrijs2005/shelfkeeper/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDurable(t *testing.T) *MetadataDurable {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "shelf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMetadataDurable(db, metadata.SQLite)
}

func TestMetadataDurable_GetEmpty(t *testing.T) {
	d := newDurable(t)

	got, err := d.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", got)

	at, err := d.SavedAt(context.Background())
	require.NoError(t, err)
	assert.True(t, at.IsZero())
}

func TestMetadataDurable_SetGetOverwrite(t *testing.T) {
	d := newDurable(t)
	ctx := context.Background()
	d.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, d.Set(ctx, "L1"))
	got, err := d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "L1", got)

	at, err := d.SavedAt(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), at.Unix())

	require.NoError(t, d.Set(ctx, "L2"))
	got, err = d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "L2", got)
}

func TestMetadataDurable_DeleteClearsBothKeys(t *testing.T) {
	d := newDurable(t)
	ctx := context.Background()

	require.NoError(t, d.Set(ctx, "L1"))
	require.NoError(t, d.Delete(ctx))

	got, err := d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	at, err := d.SavedAt(ctx)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	require.NoError(t, d.Delete(ctx), "deleting twice is fine")
}

func TestMetadataDurable_SetFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO metadata").
		WithArgs(KeyLongTermToken, []byte("L1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO metadata").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	d := NewMetadataDurable(db, metadata.SQLite)
	err = d.Set(context.Background(), "L1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write long-term token")
	assert.Contains(t, err.Error(), "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMetadataDurable_GetFailureWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM metadata").
		WithArgs(KeyLongTermToken).
		WillReturnError(errors.New("database is locked"))

	_, err = NewMetadataDurable(db, metadata.SQLite).Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read long-term token")
	require.NoError(t, mock.ExpectationsWereMet())
}

type mapRepo struct {
	bound []dbx.DBTX
	data  map[string][]byte
}

func (m *mapRepo) factory(db dbx.DBTX) metadata.Repository {
	m.bound = append(m.bound, db)
	return m
}

func (m *mapRepo) Get(_ context.Context, key string) ([]byte, error) { return m.data[key], nil }
func (m *mapRepo) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}
func (m *mapRepo) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestMetadataDurable_WritesThroughTransactionRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := &mapRepo{data: map[string][]byte{}}
	d := NewMetadataDurable(db, repo.factory)
	d.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, d.Set(context.Background(), "L1"))
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, repo.bound, 1)
	_, isTx := repo.bound[0].(*sql.Tx)
	assert.True(t, isTx, "paired write must be bound to a transaction")
	assert.Equal(t, map[string][]byte{
		KeyLongTermToken:        []byte("L1"),
		KeyLongTermTokenSavedAt: []byte("1700000000"),
	}, repo.data)

	got, err := d.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "L1", got)
}
