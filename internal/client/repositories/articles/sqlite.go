package articles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/common"
	"github.com/dmitrijs2005/annosync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID returns common.ErrNotFound when the article does not exist.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	a := &models.Article{}
	err := r.db.QueryRowContext(ctx, `SELECT id, url, title, created_at FROM articles WHERE id = ?`, id).
		Scan(&a.ID, &a.URL, &a.Title, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article %s: %w", id, err)
	}
	return a, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Article, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, url, title, created_at FROM articles ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select articles: %w", err)
	}
	defer rows.Close()

	var result []models.Article
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// InsertIfAbsent never touches an existing row.
func (r *SQLiteRepository) InsertIfAbsent(ctx context.Context, a *models.Article) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (id, url, title, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		a.ID, a.URL, a.Title, a.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, a *models.Article) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (id, url, title, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET url = excluded.url, title = excluded.title`,
		a.ID, a.URL, a.Title, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert article: %w", err)
	}
	return nil
}
