package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/annosync/internal/client/metrics"
	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/common"
)

// DeleteResult summarizes one remote delete batch.
type DeleteResult struct {
	Deleted int
	// Skipped counts annotations that never reached the remote side.
	Skipped int
	Failed  int
}

// WatchLocalAnnotations subscribes to local annotation changes. Changed
// annotations schedule a debounced upload, removed ones are deleted
// remotely right away. Calling it again is a no-op.
//
// Before each piece of live work the feature flag and the stored
// credentials are read again, so disabling sync or logging out takes
// effect without unsubscribing.
func (e *Engine) WatchLocalAnnotations(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return ErrDisposed
	}

	e.phase = PhaseWatching

	if e.unwatch != nil {
		return nil
	}

	e.debounce = newDebouncer(e.debounceInterval, e.debouncedUpload)
	e.unwatch = e.local.Watch(common.AnnotationsPrefix, e.onChange)
	e.logger.Debug(ctx, "watching local annotations", "debounce", e.debounceInterval)

	return nil
}

func (e *Engine) onChange(cs models.ChangeSet) {
	e.mu.Lock()
	if e.disposed || e.unwatch == nil {
		e.mu.Unlock()
		return
	}
	d := e.debounce
	removed := len(cs.Removed) > 0
	if removed {
		e.inflight.Add(1)
	}
	e.mu.Unlock()

	if len(cs.Changed) > 0 {
		d.Trigger()
	}

	if removed {
		go func() {
			defer e.inflight.Done()

			ctx := e.liveCtx
			creds, ok := e.liveCredentials(ctx)
			if !ok {
				return
			}
			if _, err := e.DeleteRemote(ctx, creds, cs.Removed); err != nil {
				e.logger.Error(ctx, "remote delete failed", "error", err)
			}
		}()
	}
}

func (e *Engine) debouncedUpload() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.inflight.Add(1)
	e.mu.Unlock()
	defer e.inflight.Done()

	ctx := e.liveCtx
	creds, ok := e.liveCredentials(ctx)
	if !ok {
		return
	}

	e.passMu.Lock()
	defer e.passMu.Unlock()

	if _, err := e.upload(ctx, creds); err != nil {
		e.logger.Error(ctx, "debounced upload failed", "error", err)
	}
}

// liveCredentials re-checks the sync preconditions for work triggered by
// the watcher.
func (e *Engine) liveCredentials(ctx context.Context) (models.Credentials, bool) {
	creds, ok, err := e.preconditions(ctx)
	if err != nil {
		e.logger.Warn(ctx, "skipping live sync", "error", err)
		return models.Credentials{}, false
	}
	if !ok {
		e.logger.Debug(ctx, "annotations sync is disabled or not configured, skipping live sync")
		return models.Credentials{}, false
	}

	return creds, true
}

// DeleteRemote deletes the remote copies of removed annotations in parallel.
// Annotations without a remote id are skipped. Watermarks are not involved.
func (e *Engine) DeleteRemote(ctx context.Context, creds models.Credentials, removed []models.Annotation) (res DeleteResult, err error) {
	started := e.clock()
	defer func() {
		e.metrics.RecordPass(metrics.PassDelete, passStatus(err), started, e.clock())
	}()

	var targets []models.Annotation
	for _, a := range removed {
		if !a.HasRemote() {
			res.Skipped++
			continue
		}
		targets = append(targets, a)
	}
	if len(targets) == 0 {
		return res, nil
	}

	e.logger.Info(ctx, fmt.Sprintf("Deleting %d annotations remotely", len(targets)))

	var (
		mu   stdsync.Mutex
		errs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(e.deleteConcurrency)

	for _, a := range targets {
		g.Go(func() error {
			err := e.remote.Delete(ctx, creds, a)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				res.Failed++
				errs = append(errs, fmt.Errorf("delete annotation %s: %w", a.ID, err))
				return nil
			}
			res.Deleted++
			return nil
		})
	}
	_ = g.Wait()

	e.metrics.AddAnnotations("deleted", res.Deleted)
	e.metrics.AddAnnotations("failed", res.Failed)

	return res, errors.Join(errs...)
}
