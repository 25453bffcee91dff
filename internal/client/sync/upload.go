package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	stdsync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/annosync/internal/client/metrics"
	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/client/syncstate"
	"github.com/dmitrijs2005/annosync/internal/common"
)

// UploadResult summarizes one upload pass.
type UploadResult struct {
	// Considered is the number of annotations changed since the watermark.
	Considered int
	// Filtered is how many of them were skipped as noise.
	Filtered int
	Created  int
	Updated  int
	Failed   int
	// Watermark is the upload watermark persisted by this pass, empty when
	// nothing was committed.
	Watermark string
}

// UploadLocalChanges pushes every local annotation changed since the last
// upload watermark. It waits for a running pass to finish first.
//
// Item failures do not stop the other items. When any item failed the
// watermark is left where it was and the returned error wraps
// common.ErrIncompleteUpload together with each item error.
func (e *Engine) UploadLocalChanges(ctx context.Context, creds models.Credentials) (UploadResult, error) {
	if e.isDisposed() {
		return UploadResult{}, ErrDisposed
	}

	e.passMu.Lock()
	defer e.passMu.Unlock()

	return e.upload(ctx, creds)
}

// upload must be called with passMu held.
func (e *Engine) upload(ctx context.Context, creds models.Credentials) (res UploadResult, err error) {
	started := e.clock()
	defer func() {
		e.metrics.RecordPass(metrics.PassUpload, passStatus(err), started, e.clock())
	}()

	st, err := e.state.Get(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to read sync state: %w", err)
	}
	lastUpload, err := syncstate.ParseTimestamp(st.LastUploadTimestamp)
	if err != nil {
		return res, err
	}

	// Captured before listing so edits made while the pass runs are picked
	// up by the next one.
	now := e.clock()

	e.markSyncing(ctx, true)
	defer e.markSyncing(ctx, false)

	all, err := e.local.ListAnnotations(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list local annotations: %w", err)
	}

	pending, noise := selectForUpload(all, syncstate.UnixSeconds(lastUpload))
	res.Considered = len(pending) + noise
	res.Filtered = noise
	e.metrics.AddAnnotations("filtered", noise)

	e.logger.Info(ctx, fmt.Sprintf("Uploading %d changed annotations since %s", len(pending), displayWatermark(st.LastUploadTimestamp)))

	if len(pending) > 0 {
		articles, err := e.resolveArticles(ctx, pending)
		if err != nil {
			return res, err
		}

		errs := e.pushAll(ctx, creds, pending, articles, &res)
		e.metrics.AddAnnotations("created", res.Created)
		e.metrics.AddAnnotations("updated", res.Updated)
		e.metrics.AddAnnotations("failed", res.Failed)

		if len(errs) > 0 {
			e.logger.Warn(ctx, "upload incomplete, watermark not advanced",
				"failed", res.Failed, "total", len(pending))
			return res, errors.Join(append([]error{common.ErrIncompleteUpload}, errs...)...)
		}
	}

	mark, err := e.commitWatermark(ctx, st.LastUploadTimestamp, uploadBoundary(now), func(v string) models.SyncStatePatch {
		return models.SyncStatePatch{LastUploadTimestamp: &v}
	})
	if err != nil {
		return res, err
	}
	res.Watermark = mark

	return res, nil
}

// selectForUpload returns the live annotations updated after watermark
// (unix seconds), oldest first, without noise. noise counts the changed
// annotations dropped as noise.
func selectForUpload(all []models.Annotation, watermark int64) (pending []models.Annotation, noise int) {
	for _, a := range all {
		if a.Deleted || a.UpdatedAt <= watermark {
			continue
		}
		if a.IsNoise() {
			noise++
			continue
		}
		pending = append(pending, a)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].UpdatedAt < pending[j].UpdatedAt
	})

	return pending, noise
}

// resolveArticles loads each distinct article once. Articles that do not
// exist map to nil.
func (e *Engine) resolveArticles(ctx context.Context, list []models.Annotation) (map[string]*models.Article, error) {
	out := make(map[string]*models.Article)
	for _, a := range list {
		if _, ok := out[a.ArticleID]; ok {
			continue
		}
		article, err := e.local.GetArticle(ctx, a.ArticleID)
		switch {
		case errors.Is(err, common.ErrNotFound):
			out[a.ArticleID] = nil
		case err != nil:
			return nil, fmt.Errorf("failed to get article %s: %w", a.ArticleID, err)
		default:
			out[a.ArticleID] = article
		}
	}
	return out, nil
}

type pushOutcome int

const (
	pushFailed pushOutcome = iota
	pushCreated
	pushUpdated
)

// pushAll sends every annotation to the remote side. Work is started in
// list order, so with a concurrency of one the remote sees oldest first.
func (e *Engine) pushAll(ctx context.Context, creds models.Credentials, list []models.Annotation, articles map[string]*models.Article, res *UploadResult) []error {
	var (
		mu   stdsync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(e.uploadConcurrency)

	for _, a := range list {
		g.Go(func() error {
			outcome, err := e.pushOne(ctx, creds, a, articles[a.ArticleID])

			mu.Lock()
			defer mu.Unlock()

			switch outcome {
			case pushCreated:
				res.Created++
			case pushUpdated:
				res.Updated++
			default:
				res.Failed++
			}
			if err != nil {
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

func (e *Engine) pushOne(ctx context.Context, creds models.Credentials, a models.Annotation, article *models.Article) (pushOutcome, error) {
	if article == nil {
		e.logger.Warn(ctx, "annotation references unknown article", "annotation", a.ID, "article", a.ArticleID)
		return pushFailed, fmt.Errorf("annotation %s: %w", a.ID, common.ErrMissingArticle)
	}

	if a.HasRemote() {
		err := e.remote.Update(ctx, creds, a, *article)
		switch {
		case err == nil:
			return pushUpdated, nil
		case errors.Is(err, common.ErrNotFound):
			// Deleted remotely after a newer local edit: the edit wins.
			e.logger.Info(ctx, "remote annotation gone, creating it again", "annotation", a.ID, "remote_id", a.RemoteID)
			a.RemoteID = ""
		default:
			e.logger.Warn(ctx, "failed to update remote annotation", "annotation", a.ID, "remote_id", a.RemoteID, "error", err)
			return pushFailed, fmt.Errorf("update annotation %s: %w", a.ID, err)
		}
	}

	remoteID, err := e.remote.Create(ctx, creds, a, *article)
	if err != nil {
		e.logger.Warn(ctx, "failed to create remote annotation", "annotation", a.ID, "error", err)
		return pushFailed, fmt.Errorf("create annotation %s: %w", a.ID, err)
	}

	// The remote copy exists now, link it even if the pass is being cancelled.
	if err := e.local.UpdateAnnotation(context.WithoutCancel(ctx), models.AnnotationPatch{ID: a.ID, RemoteID: &remoteID}); err != nil {
		// The remote copy exists but is not linked; the next pass creates it
		// again.
		e.logger.Error(ctx, "failed to store remote id", "annotation", a.ID, "remote_id", remoteID, "error", err)
		return pushFailed, fmt.Errorf("store remote id for annotation %s: %w", a.ID, err)
	}

	return pushCreated, nil
}

// commitWatermark persists the later of stored and captured through patch
// and returns the persisted value.
func (e *Engine) commitWatermark(ctx context.Context, stored string, captured time.Time, patch func(string) models.SyncStatePatch) (string, error) {
	next := laterWatermark(stored, captured)
	if err := e.state.Update(ctx, patch(next)); err != nil {
		return "", fmt.Errorf("failed to commit watermark: %w", err)
	}
	return next, nil
}

// uploadBoundary is the upload watermark for a pass that started at now. It
// ends one second before now's second: edits are stamped in whole seconds,
// and those made later in that second must still compare greater.
func uploadBoundary(now time.Time) time.Time {
	return now.Truncate(time.Second).Add(-time.Second)
}

// laterWatermark never lets a watermark move backwards, for instance after
// the wall clock was set back.
func laterWatermark(stored string, captured time.Time) string {
	prev, err := syncstate.ParseTimestamp(stored)
	if err == nil && !prev.IsZero() && prev.After(captured) {
		return stored
	}
	return syncstate.FormatTimestamp(captured)
}

func displayWatermark(s string) string {
	if s == "" {
		return "the beginning"
	}
	return s
}

func passStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
