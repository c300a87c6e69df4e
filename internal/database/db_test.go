package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MigrateAndHealthCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	db, err := New(Config{Path: path, Profile: ProfileLedger, Name: "journal"})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate(), "schema is idempotent")
	require.NoError(t, db.HealthCheck(context.Background()))

	var count int
	err = db.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name LIKE 'journal_%'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, "journal", db.Name())
	assert.Equal(t, path, db.Path())
}

func TestSchema_Unknown(t *testing.T) {
	_, err := Schema("universe")
	assert.Error(t, err)
}

func TestBuildConnectionString(t *testing.T) {
	assert.Contains(t, buildConnectionString("/tmp/a.db"), "?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)")
	assert.Contains(t, buildConnectionString("file:x?mode=memory"), "file:x?mode=memory&_pragma=journal_mode(WAL)")
}

func TestNew_RejectsUnknownProfile(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "c.db"), Profile: "cache", Name: "cache"})
	assert.Error(t, err)

	db, err := New(Config{Path: filepath.Join(t.TempDir(), "d.db"), Name: "d"})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, ProfileLedger, db.profile)
}

func TestWithTransaction_RollsBack(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "tx.db"), Name: "tx"})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Conn().Exec(`CREATE TABLE items (v INTEGER)`)
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items VALUES (1)`); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec(`INSERT INTO items VALUES (2)`)
		panic("boom")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 0, count)

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}
