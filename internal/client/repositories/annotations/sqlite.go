package annotations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/common"
	"github.com/dmitrijs2005/annosync/internal/dbx"
)

const selectColumns = `SELECT id, remote_id, article_id, quote_text, text, tags, quote_selector,
	created_at, updated_at, ai_created, deleted FROM annotations`

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnnotation(row rowScanner) (*models.Annotation, error) {
	var (
		a        models.Annotation
		remoteID sql.NullString
		tags     string
		selector sql.NullString
	)
	err := row.Scan(&a.ID, &remoteID, &a.ArticleID, &a.QuoteText, &a.Text, &tags, &selector,
		&a.CreatedAt, &a.UpdatedAt, &a.AICreated, &a.Deleted)
	if err != nil {
		return nil, err
	}

	a.RemoteID = remoteID.String
	if selector.Valid && selector.String != "" {
		a.QuoteSelector = json.RawMessage(selector.String)
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("annotation %s: bad tags column: %w", a.ID, err)
	}
	return &a, nil
}

// bindings converts nullable and JSON columns to driver values.
func bindings(a *models.Annotation) (remoteID sql.NullString, tags string, selector sql.NullString, err error) {
	remoteID = sql.NullString{String: a.RemoteID, Valid: a.RemoteID != ""}
	selector = sql.NullString{String: string(a.QuoteSelector), Valid: len(a.QuoteSelector) > 0}

	t := a.Tags
	if t == nil {
		t = []string{}
	}
	b, err := json.Marshal(t)
	if err != nil {
		return remoteID, "", selector, err
	}
	return remoteID, string(b), selector, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Annotation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select annotations: %w", err)
	}
	defer rows.Close()

	var result []models.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// List returns all live annotations.
func (r *SQLiteRepository) List(ctx context.Context) ([]models.Annotation, error) {
	return r.query(ctx, selectColumns+` WHERE deleted = 0 ORDER BY created_at, id`)
}

func (r *SQLiteRepository) ListByArticle(ctx context.Context, articleID string) ([]models.Annotation, error) {
	return r.query(ctx, selectColumns+` WHERE deleted = 0 AND article_id = ? ORDER BY created_at, id`, articleID)
}

// GetByID returns a live annotation or common.ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Annotation, error) {
	a, err := scanAnnotation(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ? AND deleted = 0`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation %s: %w", id, err)
	}
	return a, nil
}

// GetByRemoteID looks up tombstones too. It returns common.ErrNotFound if no
// local record carries remoteID.
func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteID string) (*models.Annotation, error) {
	a, err := scanAnnotation(r.db.QueryRowContext(ctx, selectColumns+` WHERE remote_id = ?`, remoteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation by remote id %s: %w", remoteID, err)
	}
	return a, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, a *models.Annotation) error {
	remoteID, tags, selector, err := bindings(a)
	if err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO annotations (id, remote_id, article_id, quote_text, text, tags, quote_selector,
			created_at, updated_at, ai_created, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, remoteID, a.ArticleID, a.QuoteText, a.Text, tags, selector,
		a.CreatedAt, a.UpdatedAt, a.AICreated, a.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert annotation: %w", err)
	}
	return nil
}

// Upsert writes every column of a, inserting or replacing by id.
func (r *SQLiteRepository) Upsert(ctx context.Context, a *models.Annotation) error {
	remoteID, tags, selector, err := bindings(a)
	if err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO annotations (id, remote_id, article_id, quote_text, text, tags, quote_selector,
			created_at, updated_at, ai_created, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			remote_id = excluded.remote_id,
			article_id = excluded.article_id,
			quote_text = excluded.quote_text,
			text = excluded.text,
			tags = excluded.tags,
			quote_selector = excluded.quote_selector,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			ai_created = excluded.ai_created,
			deleted = excluded.deleted`,
		a.ID, remoteID, a.ArticleID, a.QuoteText, a.Text, tags, selector,
		a.CreatedAt, a.UpdatedAt, a.AICreated, a.Deleted)
	if err != nil {
		return fmt.Errorf("failed to upsert annotation: %w", err)
	}
	return nil
}

// SetRemoteID attaches the remote id. updated_at is deliberately left as is.
func (r *SQLiteRepository) SetRemoteID(ctx context.Context, id, remoteID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE annotations SET remote_id = ? WHERE id = ?`, remoteID, id)
	if err != nil {
		return fmt.Errorf("failed to set remote id: %w", err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) UpdateText(ctx context.Context, id, text string, tags []string, updatedAt int64) error {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE annotations SET text = ?, tags = ?, updated_at = ? WHERE id = ? AND deleted = 0`,
		text, string(b), updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update annotation: %w", err)
	}
	return expectOne(res)
}

// SoftDelete tombstones a live annotation.
func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE annotations SET deleted = 1 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return fmt.Errorf("failed to delete annotation: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
