package annotations

import (
	"context"

	"github.com/dmitrijs2005/annosync/internal/client/models"
)

// Repository describes the annotation table operations used by the store.
type Repository interface {
	List(ctx context.Context) ([]models.Annotation, error)
	ListByArticle(ctx context.Context, articleID string) ([]models.Annotation, error)
	GetByID(ctx context.Context, id string) (*models.Annotation, error)
	GetByRemoteID(ctx context.Context, remoteID string) (*models.Annotation, error)
	Insert(ctx context.Context, a *models.Annotation) error
	Upsert(ctx context.Context, a *models.Annotation) error
	SetRemoteID(ctx context.Context, id, remoteID string) error
	UpdateText(ctx context.Context, id, text string, tags []string, updatedAt int64) error
	SoftDelete(ctx context.Context, id string) error
}
