package sync

import (
	"context"
	"fmt"
	"sort"
	stdsync "sync"
	"time"

	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/client/store"
	"github.com/dmitrijs2005/annosync/internal/common"
)

type fakeClock struct {
	mu  stdsync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type remoteRow struct {
	annotation models.Annotation
	article    models.Article
	updated    time.Time
}

// fakeRemote is an in-memory annotation service. It stamps rows with the
// shared clock and honours the since filter of FetchSince.
type fakeRemote struct {
	clock *fakeClock
	// latency is added to the clock before every write, so remote update
	// times land after the local watermark captured for the pass.
	latency time.Duration

	mu      stdsync.Mutex
	rows    map[string]*remoteRow
	nextID  int
	creates []string
	updates []string
	deletes []string
	fetched []int

	failCreate map[string]error
	failFetch  error
	// blockCreate, when set, is received from before a create proceeds.
	blockCreate chan struct{}
	createStart chan struct{}
	// holdDelete makes Delete wait for its context to end.
	holdDelete  bool
	deleteStart chan struct{}
}

func newFakeRemote(clock *fakeClock) *fakeRemote {
	return &fakeRemote{
		clock:      clock,
		rows:       make(map[string]*remoteRow),
		failCreate: make(map[string]error),
	}
}

func (r *fakeRemote) stamp() time.Time {
	if r.latency > 0 {
		r.clock.Advance(r.latency)
	}
	return r.clock.Now()
}

// seed stores a remote annotation written by another device.
func (r *fakeRemote) seed(text, url string, updated time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rid := fmt.Sprintf("remote-%d", r.nextID)
	article := models.Article{ID: models.ArticleIDFromURL(url), URL: url, Title: "Seeded", CreatedAt: updated.Unix()}
	r.rows[rid] = &remoteRow{
		annotation: models.Annotation{
			RemoteID:  rid,
			ArticleID: article.ID,
			Text:      text,
			Tags:      []string{},
			CreatedAt: updated.Unix(),
		},
		article: article,
		updated: updated,
	}
	return rid
}

// edit changes a remote annotation as if another device did.
func (r *fakeRemote) edit(rid, text string, updated time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.rows[rid]
	row.annotation.Text = text
	row.updated = updated
}

func (r *fakeRemote) FetchSince(_ context.Context, _ models.Credentials, since time.Time, _ int) ([]models.Annotation, []models.Article, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failFetch != nil {
		return nil, nil, time.Time{}, r.failFetch
	}

	var rows []*remoteRow
	for _, row := range r.rows {
		if row.updated.After(since) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].updated.Before(rows[j].updated) })

	var (
		list     []models.Annotation
		articles []models.Article
		newest   time.Time
	)
	seen := make(map[string]bool)
	for _, row := range rows {
		a := row.annotation
		a.ID = models.RemoteAnnotationID(a.RemoteID)
		a.UpdatedAt = row.updated.Unix()
		list = append(list, a)
		if !seen[row.article.ID] {
			seen[row.article.ID] = true
			articles = append(articles, row.article)
		}
		newest = row.updated
	}
	r.fetched = append(r.fetched, len(list))

	return list, articles, newest, nil
}

func (r *fakeRemote) Create(_ context.Context, _ models.Credentials, a models.Annotation, article models.Article) (string, error) {
	if r.createStart != nil {
		r.createStart <- struct{}{}
	}
	if r.blockCreate != nil {
		<-r.blockCreate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.creates = append(r.creates, a.ID)
	if err := r.failCreate[a.ID]; err != nil {
		return "", err
	}

	r.nextID++
	rid := fmt.Sprintf("remote-%d", r.nextID)
	a.RemoteID = rid
	r.rows[rid] = &remoteRow{annotation: a, article: article, updated: r.stamp()}
	return rid, nil
}

func (r *fakeRemote) Update(_ context.Context, _ models.Credentials, a models.Annotation, article models.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.updates = append(r.updates, a.ID)
	row, ok := r.rows[a.RemoteID]
	if !ok {
		return common.ErrNotFound
	}
	row.annotation = a
	row.article = article
	row.updated = r.stamp()
	return nil
}

func (r *fakeRemote) Delete(ctx context.Context, _ models.Credentials, a models.Annotation) error {
	if r.deleteStart != nil {
		r.deleteStart <- struct{}{}
	}
	if r.holdDelete {
		<-ctx.Done()
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.deletes = append(r.deletes, a.ID)
	delete(r.rows, a.RemoteID)
	return nil
}

func (r *fakeRemote) calls() (creates, updates, deletes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.creates...),
		append([]string(nil), r.updates...),
		append([]string(nil), r.deletes...)
}

func (r *fakeRemote) lastFetched() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fetched) == 0 {
		return -1
	}
	return r.fetched[len(r.fetched)-1]
}

// fakeAccount serves as both FeatureGate and CredentialsProvider.
type fakeAccount struct {
	mu      stdsync.Mutex
	enabled bool
	creds   models.Credentials
}

func (a *fakeAccount) SyncEnabled(context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled, nil
}

func (a *fakeAccount) Credentials(context.Context) (models.Credentials, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.creds, nil
}

func (a *fakeAccount) setEnabled(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = v
}

// missingArticleStore hides one article from the engine.
type missingArticleStore struct {
	*store.Store
	missing string
}

func (s missingArticleStore) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	if id == s.missing {
		return nil, fmt.Errorf("get article %s: %w", id, common.ErrNotFound)
	}
	return s.Store.GetArticle(ctx, id)
}
