// Package remote is the typed client for the upstream records service: a
// paginated JSON API exposing the identity directory and the contribution
// record stream behind a token login.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rosterboard/internal/platform/config"
	"rosterboard/internal/platform/metrics"
	dErrors "rosterboard/pkg/domainerrors"
	"rosterboard/pkg/platform/sentinel"
)

// Client fetches users and records page by page. It is safe for
// concurrent use: the user and record streams of one run share the client,
// so token state is guarded and refresh is serialized under the mutex.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics

	id       string
	password string

	pageSize   int
	maxRetries int
	pageDelay  time.Duration

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// tokenSlack forces a re-login slightly before the advertised expiry so a
// long page sequence never trips over a token that dies mid-fetch.
const tokenSlack = 30 * time.Second

func NewClient(cfg config.RemoteAPI, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    m,
		id:         cfg.ID,
		password:   cfg.Password,
		pageSize:   cfg.PageSize,
		maxRetries: cfg.MaxRetries,
		pageDelay:  cfg.PageDelay,
	}
}

// Login exchanges the configured credentials for a bearer token. The
// token's lifetime is read from its exp claim; the upstream verifies the
// signature, we only schedule the refresh.
func (c *Client) Login(ctx context.Context) error {
	token, err := c.login(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.tokenExpiry = tokenExpiry(token)
	c.mu.Unlock()
	return nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(loginRequest{ID: c.id, Password: c.password})
	if err != nil {
		return "", fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "records api login failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeUnavailable,
			fmt.Sprintf("records api login returned status %d", resp.StatusCode))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "decode login response")
	}
	return lr.Token, nil
}

// tokenExpiry extracts the exp claim without verifying the signature.
// Unparseable tokens get a short fixed lifetime so we just log in again.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Now().Add(5 * time.Minute)
}

// bearer returns a token that is still comfortably inside its lifetime,
// logging in first when needed. The mutex stays held across the login
// round trip so concurrent streams never race on token state and an
// expired token triggers exactly one refresh, not one per stream.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSlack)) {
		return c.token, nil
	}

	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.tokenExpiry = tokenExpiry(token)
	return token, nil
}

// invalidate drops the cached token, unless another goroutine already
// replaced it with a fresh one.
func (c *Client) invalidate(token string) {
	c.mu.Lock()
	if c.token == token {
		c.token = ""
	}
	c.mu.Unlock()
}

// FetchUsers retrieves the full identity directory.
func (c *Client) FetchUsers(ctx context.Context) ([]User, error) {
	return fetchAll[User](ctx, c, "/users", "users")
}

// FetchRecords retrieves the full contribution record stream.
func (c *Client) FetchRecords(ctx context.Context) ([]Record, error) {
	return fetchAll[Record](ctx, c, "/records", "records")
}

// fetchAll walks the paginated endpoint until has_more is false. Each page
// gets bounded retries, and consecutive pages are separated by a short
// delay so a big directory pull does not hammer the upstream.
func fetchAll[T any](ctx context.Context, c *Client, path, stream string) ([]T, error) {
	var all []T
	for pageNum := 1; ; pageNum++ {
		if pageNum > 1 && c.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}

		pg, err := fetchPageWithRetry[T](ctx, c, path, pageNum)
		if err != nil {
			return nil, err
		}
		if c.metrics != nil {
			c.metrics.FetchPages.WithLabelValues(stream).Inc()
		}

		all = append(all, pg.Items...)
		if !pg.HasMore {
			return all, nil
		}
	}
}

func fetchPageWithRetry[T any](ctx context.Context, c *Client, path string, pageNum int) (*page[T], error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			if c.metrics != nil {
				c.metrics.FetchRetries.Inc()
			}
			c.logger.WarnContext(ctx, "retrying page fetch",
				"path", path, "page", pageNum, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}

		pg, err := fetchPage[T](ctx, c, path, pageNum)
		if err == nil {
			return pg, nil
		}
		lastErr = err
	}
	return nil, dErrors.Wrap(lastErr, dErrors.CodeUnavailable,
		fmt.Sprintf("fetch %s page %d after %d attempts", path, pageNum, c.maxRetries))
}

func fetchPage[T any](ctx context.Context, c *Client, path string, pageNum int) (*page[T], error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(pageNum))
	q.Set("page_size", strconv.Itoa(c.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token invalidated server-side; force a fresh login for the retry.
		c.invalidate(token)
		return nil, fmt.Errorf("fetch %s: unauthorized", path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s", path, resp.StatusCode, body)
	}

	var pg page[T]
	if err := json.NewDecoder(resp.Body).Decode(&pg); err != nil {
		return nil, fmt.Errorf("decode %s page %d: %w", path, pageNum, err)
	}
	return &pg, nil
}
