package sync

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/annosync/internal/client/metrics"
	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/client/syncstate"
)

// DownloadResult summarizes one download pass.
type DownloadResult struct {
	Downloaded       int
	ImportedArticles int
	Created          int
	Updated          int
	// Watermark is the download watermark persisted by this pass.
	Watermark string
}

// DownloadRemoteChanges pulls every remote annotation updated since the last
// download watermark and merges it into the local store, remote side
// winning. It waits for a running pass to finish first. The watermark is
// only committed after the merge succeeded.
func (e *Engine) DownloadRemoteChanges(ctx context.Context, creds models.Credentials) (DownloadResult, error) {
	if e.isDisposed() {
		return DownloadResult{}, ErrDisposed
	}

	e.passMu.Lock()
	defer e.passMu.Unlock()

	return e.download(ctx, creds)
}

// download must be called with passMu held.
func (e *Engine) download(ctx context.Context, creds models.Credentials) (res DownloadResult, err error) {
	started := e.clock()
	defer func() {
		e.metrics.RecordPass(metrics.PassDownload, passStatus(err), started, e.clock())
	}()

	st, err := e.state.Get(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to read sync state: %w", err)
	}
	since, err := syncstate.ParseTimestamp(st.LastDownloadTimestamp)
	if err != nil {
		return res, err
	}
	uploadMark, err := syncstate.ParseTimestamp(st.LastUploadTimestamp)
	if err != nil {
		return res, err
	}

	now := e.clock()

	e.markSyncing(ctx, true)
	defer e.markSyncing(ctx, false)

	annotations, articles, newest, err := e.remote.FetchSince(ctx, creds, since, e.pageSize)
	if err != nil {
		return res, fmt.Errorf("failed to fetch remote annotations: %w", err)
	}
	res.Downloaded = len(annotations)
	e.metrics.AddAnnotations("downloaded", len(annotations))

	e.logger.Info(ctx, fmt.Sprintf("Downloading %d annotations since %s", len(annotations), displayWatermark(st.LastDownloadTimestamp)),
		"remote_newest", newest)

	if len(annotations) > 0 {
		imported, err := e.local.ImportArticles(ctx, articles)
		if err != nil {
			return res, fmt.Errorf("failed to import articles: %w", err)
		}
		res.ImportedArticles = imported

		suppressEcho(annotations, syncstate.UnixSeconds(uploadMark))

		merged, err := e.local.MergeRemoteAnnotations(ctx, annotations)
		if err != nil {
			return res, fmt.Errorf("failed to merge remote annotations: %w", err)
		}
		res.Created = merged.Created
		res.Updated = merged.Updated
	}

	mark, err := e.commitWatermark(ctx, st.LastDownloadTimestamp, now, func(v string) models.SyncStatePatch {
		return models.SyncStatePatch{LastDownloadTimestamp: &v}
	})
	if err != nil {
		return res, err
	}
	res.Watermark = mark

	return res, nil
}

// suppressEcho caps the local modification time of downloaded annotations
// at the upload watermark (unix seconds). Remote data is already in sync
// with the remote side, and a newer UpdatedAt would send it back on the
// next upload, which in turn bumps the remote time and downloads it again.
// A zero watermark leaves the list alone.
func suppressEcho(list []models.Annotation, uploadMark int64) {
	if uploadMark == 0 {
		return
	}
	for i := range list {
		if list[i].UpdatedAt > uploadMark {
			list[i].UpdatedAt = uploadMark
		}
	}
}
