package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/dmitrijs2005/annosync/internal/client/migrations"
	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.RunMigrations(context.Background(), db))
	return db
}

func getMeta(t *testing.T, db *sql.DB, k string) []byte {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	require.NoError(t, err)
	return v
}

var deviceKey = []byte("0123456789abcdef0123456789abcdef")

// ---- fake verifier ----

type fakeVerifier struct {
	err   error
	calls []models.Credentials
}

func (f *fakeVerifier) VerifyCredentials(_ context.Context, creds models.Credentials) error {
	f.calls = append(f.calls, creds)
	return f.err
}

// ---- tests ----

func TestLogin_VerifiesThenSaves(t *testing.T) {
	db := setupDB(t)
	v := &fakeVerifier{}
	svc := NewAccountService(db, deviceKey, v)
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("tok-1")))
	require.Len(t, v.calls, 1)
	assert.Equal(t, models.Credentials{Username: "alice", APIToken: "tok-1"}, v.calls[0])

	creds, err := svc.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Credentials{Username: "alice", APIToken: "tok-1"}, creds)
}

func TestLogin_RejectedTokenIsNotSaved(t *testing.T) {
	db := setupDB(t)
	svc := NewAccountService(db, deviceKey, &fakeVerifier{err: common.ErrUnauthorized})
	ctx := context.Background()

	err := svc.Login(ctx, "alice", []byte("bad"))
	require.ErrorIs(t, err, common.ErrUnauthorized)

	creds, err := svc.Credentials(ctx)
	require.NoError(t, err)
	assert.False(t, creds.Valid())
}

func TestLogin_EmptyInput(t *testing.T) {
	v := &fakeVerifier{}
	svc := NewAccountService(setupDB(t), deviceKey, v)

	require.ErrorIs(t, svc.Login(context.Background(), "", []byte("t")), common.ErrInvalidToken)
	require.ErrorIs(t, svc.Login(context.Background(), "alice", nil), common.ErrInvalidToken)
	assert.Empty(t, v.calls)
}

func TestSaveCredentials_TokenIsSealed(t *testing.T) {
	db := setupDB(t)
	svc := NewAccountService(db, deviceKey, &fakeVerifier{})

	require.NoError(t, svc.SaveCredentials(context.Background(), "alice", []byte("plain-token")))

	assert.Equal(t, []byte("alice"), getMeta(t, db, common.MetadataKeyUsername))
	assert.NotContains(t, string(getMeta(t, db, common.MetadataKeyToken)), "plain-token")
	assert.Len(t, getMeta(t, db, common.MetadataKeyTokenSalt), 16)
}

func TestCredentials_NoneSaved(t *testing.T) {
	svc := NewAccountService(setupDB(t), deviceKey, &fakeVerifier{})

	creds, err := svc.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Credentials{}, creds)
}

func TestCredentials_OtherDeviceKeyCannotOpen(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, NewAccountService(db, deviceKey, &fakeVerifier{}).SaveCredentials(ctx, "alice", []byte("tok")))

	other := NewAccountService(db, []byte("ffffffffffffffffffffffffffffffff"), &fakeVerifier{})
	_, err := other.Credentials(ctx)
	require.ErrorIs(t, err, common.ErrCorruptedToken)
}

func TestClearCredentials(t *testing.T) {
	svc := NewAccountService(setupDB(t), deviceKey, &fakeVerifier{})
	ctx := context.Background()

	require.NoError(t, svc.SaveCredentials(ctx, "alice", []byte("tok")))
	require.NoError(t, svc.SetSyncEnabled(ctx, true))
	require.NoError(t, svc.ClearCredentials(ctx))

	creds, err := svc.Credentials(ctx)
	require.NoError(t, err)
	assert.False(t, creds.Valid())

	enabled, err := svc.SyncEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled, "logout keeps the feature flag")
}

func TestSyncEnabled_DefaultAndToggle(t *testing.T) {
	svc := NewAccountService(setupDB(t), deviceKey, &fakeVerifier{})
	ctx := context.Background()

	enabled, err := svc.SyncEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, svc.SetSyncEnabled(ctx, true))
	enabled, err = svc.SyncEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, svc.SetSyncEnabled(ctx, false))
	enabled, err = svc.SyncEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestSyncEnabled_Corrupt(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`INSERT INTO metadata(key, value) VALUES (?, ?)`, common.MetadataKeySyncEnabled, []byte("perhaps"))
	require.NoError(t, err)

	_, err = NewAccountService(db, deviceKey, &fakeVerifier{}).SyncEnabled(context.Background())
	require.Error(t, err)
}

func TestCredentials_DBError(t *testing.T) {
	db := setupDB(t)
	svc := NewAccountService(db, deviceKey, &fakeVerifier{})
	require.NoError(t, db.Close())

	_, err := svc.Credentials(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrCorruptedToken))
}
