package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/annosync/internal/client/config"
	"github.com/dmitrijs2005/annosync/internal/client/hypothesis"
	"github.com/dmitrijs2005/annosync/internal/client/metrics"
	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/client/services"
	"github.com/dmitrijs2005/annosync/internal/client/store"
	syncer "github.com/dmitrijs2005/annosync/internal/client/sync"
	"github.com/dmitrijs2005/annosync/internal/client/syncstate"
	"github.com/dmitrijs2005/annosync/internal/cryptox"
	"github.com/dmitrijs2005/annosync/internal/filex"
	"github.com/dmitrijs2005/annosync/internal/logging"
)

// annotationStore is the part of *store.Store the commands use.
type annotationStore interface {
	AddArticle(ctx context.Context, url, title string) (*models.Article, error)
	ListArticles(ctx context.Context) ([]models.Article, error)
	AddAnnotation(ctx context.Context, a models.Annotation) (*models.Annotation, error)
	GetAnnotation(ctx context.Context, id string) (*models.Annotation, error)
	ListAnnotations(ctx context.Context) ([]models.Annotation, error)
	ListArticleAnnotations(ctx context.Context, articleID string) ([]models.Annotation, error)
	EditAnnotation(ctx context.Context, id, text string, tags []string) (*models.Annotation, error)
	DeleteAnnotation(ctx context.Context, id string) error
}

type syncEngine interface {
	InitSync(ctx context.Context) error
	Phase() syncer.Phase
	Dispose()
}

type stateReader interface {
	Get(ctx context.Context) (models.SyncState, error)
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    annotationStore
	accounts services.AccountService
	engine   syncEngine
	state    stateReader
	reader   *bufio.Reader
	out      io.Writer

	registry *prometheus.Registry
	closers  []func()

	// username is cached for the prompt.
	username string
}

// NewApp opens the local database under cfg.DataDir and wires the store,
// the hypothes.is client, the account service and the sync engine.
// Bootstrap credentials from cfg are saved when both parts are present.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("error preparing data directory: %w", err)
	}

	db, err := store.InitDatabase(ctx, cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	deviceKey, err := filex.LoadOrCreateKey(cfg.KeyPath(), cryptox.KeySize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error loading device key: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	remote := hypothesis.New(hypothesis.Config{
		BaseURL:           cfg.APIBaseURL,
		Authority:         cfg.Authority,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, logger.With("component", "hypothesis"), hypothesis.WithMetrics(m))

	st := store.New(db, logger.With("component", "store"))
	state := syncstate.NewStore(db)
	accounts := services.NewAccountService(db, deviceKey, remote)

	engine, err := syncer.NewEngine(syncer.Config{
		Remote:            remote,
		Local:             st,
		State:             state,
		Gate:              accounts,
		Credentials:       accounts,
		Logger:            logger.With("component", "sync"),
		Metrics:           m,
		PageSize:          cfg.PageSize,
		DebounceInterval:  cfg.DebounceInterval,
		UploadConcurrency: cfg.UploadConcurrency,
		DeleteConcurrency: cfg.DeleteConcurrency,
	})
	if err != nil {
		st.Close()
		_ = db.Close()
		return nil, err
	}

	a := &App{
		config:   cfg,
		logger:   logger,
		store:    st,
		accounts: accounts,
		engine:   engine,
		state:    state,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		registry: registry,
	}
	// Closed in reverse order.
	a.closers = []func(){
		func() { _ = db.Close() },
		st.Close,
		engine.Dispose,
	}

	if cfg.Username != "" && cfg.APIToken != "" {
		if err := accounts.SaveCredentials(ctx, cfg.Username, []byte(cfg.APIToken)); err != nil {
			a.Close()
			return nil, fmt.Errorf("error saving bootstrap credentials: %w", err)
		}
		logger.Info(ctx, "credentials taken from environment", "username", cfg.Username)
	}

	a.refreshUsername(ctx)

	return a, nil
}

// Run starts the metrics endpoint if configured, runs the first sync pass
// and then blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if a.config.MetricsAddr != "" {
		a.startMetricsServer(ctx, a.config.MetricsAddr)
	}

	fmt.Fprintln(a.out, "Welcome to annosync (type 'help' for commands)")

	if err := a.engine.InitSync(ctx); err != nil {
		fmt.Fprintln(a.out, "Initial sync failed:", err)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close stops the engine and releases the database. Safe to call twice.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func metricsMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	return mux
}

func (a *App) startMetricsServer(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metricsMux(a.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(ctx, "metrics server failed", "addr", addr, "error", err)
		}
	}()
	a.logger.Info(ctx, "serving metrics", "addr", addr)

	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
}

func (a *App) refreshUsername(ctx context.Context) {
	creds, err := a.accounts.Credentials(ctx)
	if err != nil {
		a.logger.Warn(ctx, "cannot read credentials", "error", err)
		a.username = ""
		return
	}
	a.username = creds.Username
}

func (a *App) getStatus() string {
	s := a.engine.Phase().String()
	if a.username != "" {
		s = a.username + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}
