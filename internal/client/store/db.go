package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/annosync/internal/client/migrations"

	_ "modernc.org/sqlite"
)

// InitDatabase opens the SQLite file at dsn and applies migrations.
//
// The pool is capped at one connection: SQLite allows a single writer anyway,
// and ":memory:" databases are per connection.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := migrations.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
