// Package judge is the client for the external judge's read-only public API
// (Codeforces-shaped). The problem catalog is served from a time-bounded
// cache; the recent-submission feed is always fetched fresh because the
// poller's correctness depends on it.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	mathrand "math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"graphway/metrics"
	"graphway/model"
)

// ErrNoProblemInRange is returned when a rating range matches nothing. A
// failed catalog refresh surfaces the same way: upstream flakiness degrades
// to "nothing found", never to a crash.
var ErrNoProblemInRange = errors.New("no problems found in rating range")

type Problem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating,omitempty"`
}

// PID renders the problem reference in the "<contestId>/<index>" format the
// contest graph stores.
func (p Problem) PID() string {
	return fmt.Sprintf("%d/%s", p.ContestID, p.Index)
}

type Client interface {
	// RandomProblem returns a uniformly random problem whose rating lies in
	// [minRating, maxRating].
	RandomProblem(ctx context.Context, minRating, maxRating int) (*Problem, error)
	// RecentStatus fetches the most recent count submissions, uncached.
	RecentStatus(ctx context.Context, count int) ([]model.Submission, error)
}

var _ Client = (*HTTPClient)(nil)

type HTTPClient struct {
	baseURL string
	http    *http.Client
	sugar   *zap.SugaredLogger

	cacheTTL time.Duration
	now      func() time.Time
	rand     *mathrand.Rand

	mu        sync.RWMutex
	catalog   []Problem
	fetchedAt time.Time
}

const (
	DefaultBaseURL  = "https://codeforces.com/api"
	defaultTimeout  = 5 * time.Second
	defaultCacheTTL = time.Hour
)

func NewHTTPClient(logger *zap.Logger, baseURL string, timeout, cacheTTL time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &HTTPClient{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		sugar:    logger.Sugar().With("judge", baseURL),
		cacheTTL: cacheTTL,
		now:      time.Now,
		rand:     mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// apiResponse is the judge API envelope: {"status": "OK"|"FAILED",
// "comment": ..., "result": ...}.
type apiResponse struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	start := c.now()
	err := c.doGet(ctx, u, result)
	outcome := lo.Ternary(err == nil, "ok", "error")
	metrics.JudgeRequestDuration.WithLabelValues(endpoint, outcome).
		Observe(c.now().Sub(start).Seconds())
	return err
}

func (c *HTTPClient) doGet(ctx context.Context, u string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to build judge request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "judge request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope apiResponse
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.Wrapf(err, "failed to decode judge response")
	}
	if envelope.Status != "OK" {
		return errors.Errorf("judge API error: %s", envelope.Comment)
	}
	return errors.Wrapf(json.Unmarshal(envelope.Result, result), "failed to decode judge result")
}

// problemsResult matches the problemset.problems payload. The statistics leg
// is ignored.
type problemsResult struct {
	Problems []Problem `json:"problems"`
}

// Problems returns the problem catalog, refreshing the cache when it is older
// than the TTL. A failed refresh returns the error without touching the
// cached copy.
func (c *HTTPClient) Problems(ctx context.Context) ([]Problem, error) {
	c.mu.RLock()
	catalog, fetchedAt := c.catalog, c.fetchedAt
	c.mu.RUnlock()

	if len(catalog) > 0 && c.now().Sub(fetchedAt) <= c.cacheTTL {
		return catalog, nil
	}

	var result problemsResult
	if err := c.get(ctx, "problemset.problems", nil, &result); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.catalog = result.Problems
	c.fetchedAt = c.now()
	c.mu.Unlock()

	c.sugar.Infof("cached %d problems from the judge", len(result.Problems))
	return result.Problems, nil
}

func (c *HTTPClient) RandomProblem(ctx context.Context, minRating, maxRating int) (*Problem, error) {
	catalog, err := c.Problems(ctx)
	if err != nil {
		c.sugar.With("err", err).Error("failed to fetch the problem catalog")
		return nil, ErrNoProblemInRange
	}

	matches := lo.Filter(catalog, func(p Problem, _ int) bool {
		return p.Rating != 0 && minRating <= p.Rating && p.Rating <= maxRating
	})
	if len(matches) == 0 {
		return nil, ErrNoProblemInRange
	}
	pick := matches[c.rand.Intn(len(matches))]
	return &pick, nil
}

func (c *HTTPClient) RecentStatus(ctx context.Context, count int) ([]model.Submission, error) {
	var subs []model.Submission
	params := url.Values{"count": []string{fmt.Sprint(count)}}
	if err := c.get(ctx, "problemset.recentStatus", params, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}
