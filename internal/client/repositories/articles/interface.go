// Package articles persists the pages annotations belong to.
package articles

import (
	"context"

	"github.com/dmitrijs2005/annosync/internal/client/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context) ([]models.Article, error)
	// InsertIfAbsent reports whether a new row was written.
	InsertIfAbsent(ctx context.Context, a *models.Article) (bool, error)
	Upsert(ctx context.Context, a *models.Article) error
}
