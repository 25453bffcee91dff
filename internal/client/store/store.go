package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/client/repositories/annotations"
	"github.com/dmitrijs2005/annosync/internal/client/repositories/articles"
	"github.com/dmitrijs2005/annosync/internal/common"
	"github.com/dmitrijs2005/annosync/internal/dbx"
	"github.com/dmitrijs2005/annosync/internal/logging"
)

// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	clock  func() time.Time

	subsMu    stdsync.Mutex
	subs      map[int]*subscription
	nextSubID int
}

type Option func(*Store)

// WithClock overrides the time source used to stamp created/updated times.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

func New(db *sql.DB, logger logging.Logger, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: logger,
		clock:  time.Now,
		subs:   make(map[int]*subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

/***** sync engine surface *****/

// ListAnnotations returns every live annotation.
func (s *Store) ListAnnotations(ctx context.Context) ([]models.Annotation, error) {
	return annotations.NewSQLiteRepository(s.db).List(ctx)
}

func (s *Store) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	return articles.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

// ImportArticles inserts the articles not yet known locally and returns how
// many were new. Existing articles are left untouched.
func (s *Store) ImportArticles(ctx context.Context, list []models.Article) (int, error) {
	var created int

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := articles.NewSQLiteRepository(tx)
		for i := range list {
			ok, err := repo.InsertIfAbsent(ctx, &list[i])
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import articles: %w", err)
	}
	return created, nil
}

// MergeRemoteAnnotations applies downloaded annotations, remote wins.
//
// An incoming annotation whose remote id is already known overwrites that
// record (keeping its local id, and clearing a tombstone). An unknown remote
// id creates exactly one record with an id derived from the remote id. The
// whole batch is one transaction.
func (s *Store) MergeRemoteAnnotations(ctx context.Context, list []models.Annotation) (models.MergeResult, error) {
	var res models.MergeResult
	merged := make([]models.Annotation, 0, len(list))

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := annotations.NewSQLiteRepository(tx)

		for _, in := range list {
			if in.RemoteID == "" {
				return fmt.Errorf("merge: annotation %q has no remote id", in.ID)
			}

			existing, err := repo.GetByRemoteID(ctx, in.RemoteID)
			switch {
			case err == nil:
				in.ID = existing.ID
				res.Updated++
			case errors.Is(err, common.ErrNotFound):
				in.ID = models.RemoteAnnotationID(in.RemoteID)
				res.Created++
			default:
				return err
			}

			in.Deleted = false
			if err := repo.Upsert(ctx, &in); err != nil {
				return err
			}
			merged = append(merged, in)
		}
		return nil
	})
	if err != nil {
		return models.MergeResult{}, fmt.Errorf("merge remote annotations: %w", err)
	}

	s.publish(models.ChangeSet{Changed: merged})
	return res, nil
}

// UpdateAnnotation applies a sync patch. It never touches updated_at.
func (s *Store) UpdateAnnotation(ctx context.Context, patch models.AnnotationPatch) error {
	repo := annotations.NewSQLiteRepository(s.db)

	if patch.RemoteID != nil {
		if err := repo.SetRemoteID(ctx, patch.ID, *patch.RemoteID); err != nil {
			return fmt.Errorf("update annotation %s: %w", patch.ID, err)
		}
	}

	a, err := repo.GetByID(ctx, patch.ID)
	if err != nil {
		return fmt.Errorf("update annotation %s: %w", patch.ID, err)
	}

	s.publish(models.ChangeSet{Changed: []models.Annotation{*a}})
	return nil
}

/***** user-facing mutations *****/

// AddArticle registers a page. Adding the same URL twice returns the
// existing article.
func (s *Store) AddArticle(ctx context.Context, url, title string) (*models.Article, error) {
	repo := articles.NewSQLiteRepository(s.db)

	a := &models.Article{
		ID:        models.ArticleIDFromURL(url),
		URL:       url,
		Title:     title,
		CreatedAt: s.clock().Unix(),
	}
	if _, err := repo.InsertIfAbsent(ctx, a); err != nil {
		return nil, fmt.Errorf("add article: %w", err)
	}
	return repo.GetByID(ctx, a.ID)
}

func (s *Store) ListArticles(ctx context.Context) ([]models.Article, error) {
	return articles.NewSQLiteRepository(s.db).List(ctx)
}

// AddAnnotation stores a new local annotation. ID and timestamps are assigned
// here; the article must exist.
func (s *Store) AddAnnotation(ctx context.Context, a models.Annotation) (*models.Annotation, error) {
	if _, err := articles.NewSQLiteRepository(s.db).GetByID(ctx, a.ArticleID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("add annotation: %w", common.ErrMissingArticle)
		}
		return nil, fmt.Errorf("add annotation: %w", err)
	}

	now := s.clock().Unix()
	a.ID = models.NewAnnotationID()
	a.RemoteID = ""
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Deleted = false

	if err := annotations.NewSQLiteRepository(s.db).Insert(ctx, &a); err != nil {
		return nil, fmt.Errorf("add annotation: %w", err)
	}

	s.publish(models.ChangeSet{Changed: []models.Annotation{a}})
	return &a, nil
}

func (s *Store) GetAnnotation(ctx context.Context, id string) (*models.Annotation, error) {
	return annotations.NewSQLiteRepository(s.db).GetByID(ctx, id)
}

func (s *Store) ListArticleAnnotations(ctx context.Context, articleID string) ([]models.Annotation, error) {
	return annotations.NewSQLiteRepository(s.db).ListByArticle(ctx, articleID)
}

// EditAnnotation replaces text and tags and bumps updated_at.
func (s *Store) EditAnnotation(ctx context.Context, id, text string, tags []string) (*models.Annotation, error) {
	repo := annotations.NewSQLiteRepository(s.db)

	if err := repo.UpdateText(ctx, id, text, tags, s.clock().Unix()); err != nil {
		return nil, fmt.Errorf("edit annotation %s: %w", id, err)
	}

	a, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("edit annotation %s: %w", id, err)
	}

	s.publish(models.ChangeSet{Changed: []models.Annotation{*a}})
	return a, nil
}

// DeleteAnnotation tombstones a live annotation and reports it as removed.
func (s *Store) DeleteAnnotation(ctx context.Context, id string) error {
	var removed *models.Annotation

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := annotations.NewSQLiteRepository(tx)

		a, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.SoftDelete(ctx, id); err != nil {
			return err
		}
		a.Deleted = true
		removed = a
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete annotation %s: %w", id, err)
	}

	s.logger.Debug(ctx, "annotation deleted", "id", id, "remote_id", removed.RemoteID)
	s.publish(models.ChangeSet{Removed: []models.Annotation{*removed}})
	return nil
}
