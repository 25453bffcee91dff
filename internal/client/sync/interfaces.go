package sync

import (
	"context"
	"time"

	"github.com/dmitrijs2005/annosync/internal/client/models"
)

// RemoteClient is satisfied by *hypothesis.Client.
type RemoteClient interface {
	FetchSince(ctx context.Context, creds models.Credentials, since time.Time, pageSize int) ([]models.Annotation, []models.Article, time.Time, error)
	Create(ctx context.Context, creds models.Credentials, a models.Annotation, article models.Article) (string, error)
	Update(ctx context.Context, creds models.Credentials, a models.Annotation, article models.Article) error
	Delete(ctx context.Context, creds models.Credentials, a models.Annotation) error
}

// LocalStore is satisfied by *store.Store.
type LocalStore interface {
	ListAnnotations(ctx context.Context) ([]models.Annotation, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	ImportArticles(ctx context.Context, list []models.Article) (int, error)
	MergeRemoteAnnotations(ctx context.Context, list []models.Annotation) (models.MergeResult, error)
	UpdateAnnotation(ctx context.Context, patch models.AnnotationPatch) error
	Watch(prefix string, fn func(models.ChangeSet)) func()
}

// StateStore is satisfied by *syncstate.Store.
type StateStore interface {
	Get(ctx context.Context) (models.SyncState, error)
	Update(ctx context.Context, patch models.SyncStatePatch) error
}

// FeatureGate and CredentialsProvider are satisfied by services.AccountService.
type FeatureGate interface {
	SyncEnabled(ctx context.Context) (bool, error)
}

type CredentialsProvider interface {
	Credentials(ctx context.Context) (models.Credentials, error)
}
