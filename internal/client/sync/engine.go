package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/dmitrijs2005/annosync/internal/client/metrics"
	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/common"
	"github.com/dmitrijs2005/annosync/internal/logging"
)

// ErrDisposed is returned by engine operations after Dispose.
var ErrDisposed = errors.New("sync engine disposed")

const (
	defaultUploadConcurrency = 4
	defaultDeleteConcurrency = 8
)

// Phase is the engine lifecycle state.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseUploading
	PhaseDownloading
	PhaseWatching
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseUploading:
		return "uploading"
	case PhaseDownloading:
		return "downloading"
	case PhaseWatching:
		return "watching"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Config holds everything an Engine needs. Remote, Local, State, Gate and
// Credentials are required.
type Config struct {
	Remote      RemoteClient
	Local       LocalStore
	State       StateStore
	Gate        FeatureGate
	Credentials CredentialsProvider

	Logger  logging.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time

	PageSize          int
	DebounceInterval  time.Duration
	UploadConcurrency int
	DeleteConcurrency int
}

// Engine reconciles local annotations with the remote account.
type Engine struct {
	remote RemoteClient
	local  LocalStore
	state  StateStore
	gate   FeatureGate
	creds  CredentialsProvider

	logger  logging.Logger
	metrics *metrics.Metrics
	clock   func() time.Time

	pageSize          int
	debounceInterval  time.Duration
	uploadConcurrency int
	deleteConcurrency int

	// passMu serializes upload and download passes.
	passMu stdsync.Mutex

	mu       stdsync.Mutex
	phase    Phase
	disposed bool
	unwatch  func()
	debounce *debouncer

	// inflight tracks live work started from store notifications.
	// Add is only called under mu while not disposed.
	inflight stdsync.WaitGroup

	liveCtx    context.Context
	cancelLive context.CancelFunc
}

func NewEngine(cfg Config) (*Engine, error) {
	switch {
	case cfg.Remote == nil:
		return nil, errors.New("sync engine: remote client is required")
	case cfg.Local == nil:
		return nil, errors.New("sync engine: local store is required")
	case cfg.State == nil:
		return nil, errors.New("sync engine: state store is required")
	case cfg.Gate == nil:
		return nil, errors.New("sync engine: feature gate is required")
	case cfg.Credentials == nil:
		return nil, errors.New("sync engine: credentials provider is required")
	}

	e := &Engine{
		remote:            cfg.Remote,
		local:             cfg.Local,
		state:             cfg.State,
		gate:              cfg.Gate,
		creds:             cfg.Credentials,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
		clock:             cfg.Clock,
		pageSize:          cfg.PageSize,
		debounceInterval:  cfg.DebounceInterval,
		uploadConcurrency: cfg.UploadConcurrency,
		deleteConcurrency: cfg.DeleteConcurrency,
	}
	if e.logger == nil {
		e.logger = logging.Nop()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.pageSize <= 0 {
		e.pageSize = common.RemotePageSize
	}
	if e.debounceInterval <= 0 {
		e.debounceInterval = common.UploadDebounceInterval
	}
	if e.uploadConcurrency <= 0 {
		e.uploadConcurrency = defaultUploadConcurrency
	}
	if e.deleteConcurrency <= 0 {
		e.deleteConcurrency = defaultDeleteConcurrency
	}

	e.liveCtx, e.cancelLive = context.WithCancel(context.Background())

	return e, nil
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

func (e *Engine) isDisposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

// preconditions reports the credentials to sync with, or ok=false when the
// feature is off or the account is not configured.
func (e *Engine) preconditions(ctx context.Context) (models.Credentials, bool, error) {
	enabled, err := e.gate.SyncEnabled(ctx)
	if err != nil {
		return models.Credentials{}, false, fmt.Errorf("failed to read sync feature flag: %w", err)
	}
	if !enabled {
		return models.Credentials{}, false, nil
	}

	creds, err := e.creds.Credentials(ctx)
	if err != nil {
		return models.Credentials{}, false, fmt.Errorf("failed to read credentials: %w", err)
	}
	if !creds.Valid() {
		return models.Credentials{}, false, nil
	}

	return creds, true, nil
}

// InitSync runs one full upload and download pass and then starts watching
// local changes. It does nothing when sync is disabled or no credentials are
// stored. A call made while another pass is running returns
// common.ErrSyncInProgress.
func (e *Engine) InitSync(ctx context.Context) error {
	if e.isDisposed() {
		return ErrDisposed
	}

	creds, ok, err := e.preconditions(ctx)
	if err != nil {
		e.logger.Error(ctx, "sync precondition check failed", "error", err)
		return err
	}
	if !ok {
		e.logger.Debug(ctx, "annotations sync is disabled or not configured")
		return nil
	}

	if !e.passMu.TryLock() {
		e.logger.Warn(ctx, "annotations sync already in progress")
		return common.ErrSyncInProgress
	}
	err = e.initialPass(ctx, creds)
	e.passMu.Unlock()

	if err != nil {
		e.logger.Error(ctx, "annotations sync failed", "error", err)
		return err
	}

	if err := e.WatchLocalAnnotations(ctx); err != nil {
		return err
	}

	e.logger.Info(ctx, "Annotations sync done")
	return nil
}

func (e *Engine) initialPass(ctx context.Context, creds models.Credentials) error {
	defer func() {
		e.mu.Lock()
		e.phase = PhaseIdle
		if e.unwatch != nil {
			e.phase = PhaseWatching
		}
		e.mu.Unlock()
	}()

	e.setPhase(PhaseUploading)
	if _, err := e.upload(ctx, creds); err != nil {
		return err
	}

	e.setPhase(PhaseDownloading)
	if _, err := e.download(ctx, creds); err != nil {
		return err
	}

	return nil
}

// markSyncing writes the diagnostic in-progress flag. Failures are logged
// only; the flag guards nothing.
func (e *Engine) markSyncing(ctx context.Context, syncing bool) {
	ctx = context.WithoutCancel(ctx)
	if err := e.state.Update(ctx, models.SyncStatePatch{IsSyncing: &syncing}); err != nil {
		e.logger.Warn(ctx, "failed to update sync flag", "syncing", syncing, "error", err)
	}
}

// Dispose stops watching, cancels a pending debounced upload, aborts live
// work already running and waits for it to return. It is safe to call more
// than once.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	unwatch, d := e.unwatch, e.debounce
	e.unwatch, e.debounce = nil, nil
	e.phase = PhaseIdle
	e.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	if d != nil {
		d.Stop()
	}

	e.cancelLive()
	e.inflight.Wait()
}
