package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "nested", "test.db"), Migrations(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_AppliesEmbeddedMigrations(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"session", "conversation_cache", "schema_migrations"} {
		var n int
		err := db.Conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s should exist", table)
	}

	var applied int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestNew_MigrationsRunOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "once.db")
	migrations := fstest.MapFS{
		"001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER); INSERT INTO a VALUES (1);")},
	}

	db, err := New(context.Background(), path, migrations, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(context.Background(), path, migrations, nil)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM a").Scan(&n))
	assert.Equal(t, 1, n, "insert must not be replayed")
}

func TestNew_FailedMigrationRollsBack(t *testing.T) {
	migrations := fstest.MapFS{
		"001_bad.sql": {Data: []byte("CREATE TABLE ok (id INTEGER); SELEC broken;")},
	}

	_, err := New(context.Background(), filepath.Join(t.TempDir(), "bad.db"), migrations, nil)
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- yorum; noktalı virgül içerir
CREATE TABLE t (v TEXT);
INSERT INTO t VALUES ('a;b');
INSERT INTO t VALUES ('it''s')`

	got := splitStatements(sql)
	require.Len(t, got, 3)
	assert.Equal(t, "CREATE TABLE t (v TEXT)", got[0])
	assert.Equal(t, "INSERT INTO t VALUES ('a;b')", got[1])
	assert.Equal(t, "INSERT INTO t VALUES ('it''s')", got[2])
}

func TestWithTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.Conn.Exec("CREATE TABLE items (v INTEGER)")
	require.NoError(t, err)

	errBoom := errors.New("boom")
	err = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		_, _ = tx.ExecContext(ctx, "INSERT INTO items VALUES (1)")
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	err = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO items VALUES (2)")
		return err
	})
	require.NoError(t, err)

	var vals []int
	rows, err := db.Conn.Query("SELECT v FROM items")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var v int
		require.NoError(t, rows.Scan(&v))
		vals = append(vals, v)
	}
	assert.Equal(t, []int{2}, vals)
}
