// Package hypothesis talks to the hypothes.is annotation API.
//
// All calls authenticate with the account's developer token as a bearer
// token and are paced by a shared token-bucket limiter. Failures are mapped
// onto the sentinels in internal/common: 401/403 to ErrUnauthorized, 404 to
// ErrNotFound, 429/5xx and transport errors to ErrUnavailable.
package hypothesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/annosync/internal/client/metrics"
	"github.com/dmitrijs2005/annosync/internal/client/models"
	"github.com/dmitrijs2005/annosync/internal/common"
	"github.com/dmitrijs2005/annosync/internal/logging"
	"golang.org/x/time/rate"
)

type Config struct {
	// BaseURL is the API root, e.g. "https://api.hypothes.is".
	BaseURL string
	// Authority is the account domain used in "acct:<user>@<authority>".
	Authority string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// RequestsPerSecond and Burst configure request pacing.
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  logging.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(cfg Config, logger logging.Logger, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

// do sends one request and decodes a 2xx JSON body into out (if non-nil).
// Non-2xx responses come back as *StatusError.
func (c *Client) do(ctx context.Context, op string, creds models.Credentials, method, endpoint string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("Authorization", "Bearer "+creds.APIToken)
	req.Header.Set("Accept", "application/vnd.hypothesis.v1+json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRemote(op, "error", time.Since(started))
		return mapError(op, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRemote(op, statusClass(resp.StatusCode), time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode: %w", op, err)
		}
	}
	return nil
}

// FetchSince drains every annotation of the account updated after since,
// oldest first, requesting pageSize rows per call until an empty page.
// It also returns the distinct articles the annotations belong to and the
// newest remote update time seen (or since, if nothing was returned).
func (c *Client) FetchSince(ctx context.Context, creds models.Credentials, since time.Time, pageSize int) ([]models.Annotation, []models.Article, time.Time, error) {
	var (
		result    []models.Annotation
		articles  []models.Article
		after     string
		pageCount int
	)
	seen := make(map[string]struct{})
	newest := since

	if !since.IsZero() {
		after = since.UTC().Format(searchAfterLayout)
	}

	for {
		q := url.Values{}
		q.Set("user", account(creds.Username, c.cfg.Authority))
		q.Set("sort", "updated")
		q.Set("order", "asc")
		q.Set("limit", strconv.Itoa(pageSize))
		if after != "" {
			q.Set("search_after", after)
		}

		var page searchResponse
		if err := c.do(ctx, "search", creds, http.MethodGet, c.endpoint("/api/search?"+q.Encode()), nil, &page); err != nil {
			return nil, nil, since, err
		}
		pageCount++

		c.logger.Debug(ctx, "fetched annotation page", "page", pageCount, "rows", len(page.Rows), "total", page.Total)

		if len(page.Rows) == 0 {
			break
		}

		for _, row := range page.Rows {
			a, article, err := toModel(row)
			if err != nil {
				return nil, nil, since, fmt.Errorf("search: %w", err)
			}
			result = append(result, a)

			if _, ok := seen[article.ID]; !ok {
				seen[article.ID] = struct{}{}
				articles = append(articles, article)
			}

			if u := time.Unix(a.UpdatedAt, 0).UTC(); u.After(newest) {
				newest = u
			}
		}

		after = page.Rows[len(page.Rows)-1].Updated
	}

	return result, articles, newest, nil
}

// Create posts a new annotation anchored to article and returns its remote id.
func (c *Client) Create(ctx context.Context, creds models.Credentials, a models.Annotation, article models.Article) (string, error) {
	payload, err := fromModel(a, article, account(creds.Username, c.cfg.Authority))
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}

	var created apiAnnotation
	if err := c.do(ctx, "create", creds, http.MethodPost, c.endpoint("/api/annotations"), payload, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("create: response carries no annotation id")
	}
	return created.ID, nil
}

// Update overwrites the remote copy of an already uploaded annotation.
func (c *Client) Update(ctx context.Context, creds models.Credentials, a models.Annotation, article models.Article) error {
	payload, err := fromModel(a, article, account(creds.Username, c.cfg.Authority))
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return c.do(ctx, "update", creds, http.MethodPatch, c.endpoint("/api/annotations/"+url.PathEscape(a.RemoteID)), payload, nil)
}

// Delete removes the remote copy. An annotation that is already gone
// remotely counts as deleted.
func (c *Client) Delete(ctx context.Context, creds models.Credentials, a models.Annotation) error {
	err := c.do(ctx, "delete", creds, http.MethodDelete, c.endpoint("/api/annotations/"+url.PathEscape(a.RemoteID)), nil, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		c.logger.Debug(ctx, "remote annotation already gone", "remote_id", a.RemoteID)
		return nil
	}
	return err
}

// VerifyCredentials checks that the token is valid and belongs to the
// given username.
func (c *Client) VerifyCredentials(ctx context.Context, creds models.Credentials) error {
	var profile profileResponse
	if err := c.do(ctx, "profile", creds, http.MethodGet, c.endpoint("/api/profile"), nil, &profile); err != nil {
		return err
	}

	want := account(creds.Username, c.cfg.Authority)
	if profile.UserID == nil || *profile.UserID != want {
		return fmt.Errorf("profile: token does not belong to %s: %w", want, common.ErrUnauthorized)
	}
	return nil
}
