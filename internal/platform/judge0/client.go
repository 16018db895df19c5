package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codearena/internal/common"
	"codearena/internal/platform/logger"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const resultFields = "token,stdout,stderr,compile_output,status,time,memory"

var (
	// ErrPollTimeout means Judge0 did not finish the batch within the poll
	// budget (attempts or overall timeout).
	ErrPollTimeout = common.NewError(common.ErrServiceUnavailable, "Judge0 did not finish judging in time")

	errNotTerminal = errors.New("batch still running")
)

// Client talks to the Judge0 batch API. It keeps no state between calls.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	maxAttempts  int
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollPolicy bounds PollBatch. Zero values keep the defaults.
func WithPollPolicy(interval, timeout time.Duration, maxAttempts int) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if timeout > 0 {
			c.pollTimeout = timeout
		}
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		pollInterval: 2 * time.Second,
		pollTimeout:  90 * time.Second,
		maxAttempts:  45,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunBatch submits items and waits until every one of them is judged. The
// returned results are in the same order as items.
func (c *Client) RunBatch(ctx context.Context, items []BatchItem) ([]Result, error) {
	if len(items) == 0 {
		return nil, common.NewError(common.ErrBadRequest, "No test cases to run")
	}
	tokens, err := c.SubmitBatch(ctx, items)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(tokens))
	for i, t := range tokens {
		ids[i] = t.Token
	}
	return c.PollBatch(ctx, ids)
}

// SubmitBatch sends all items in one request and returns one token per item.
func (c *Client) SubmitBatch(ctx context.Context, items []BatchItem) ([]Token, error) {
	body, err := json.Marshal(batchRequest{Submissions: items})
	if err != nil {
		return nil, fmt.Errorf("judge0: marshal batch: %w", err)
	}

	endpoint := c.baseURL + "/submissions/batch?base64_encoded=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("judge0: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var tokens []Token
	if err := c.do(req, &tokens); err != nil {
		logger.Error(ctx, "judge0 batch submission failed", zap.Int("items", len(items)), zap.Error(err))
		return nil, common.WrapError(common.ErrServiceUnavailable, "Failed to submit code to Judge0", err)
	}
	if len(tokens) != len(items) {
		return nil, common.NewErrorf(common.ErrServiceUnavailable, "Judge0 returned %d tokens for %d submissions", len(tokens), len(items))
	}
	for i, t := range tokens {
		if t.Token == "" {
			return nil, common.NewErrorf(common.ErrServiceUnavailable, "Judge0 rejected submission %d", i+1)
		}
	}
	logger.Debug(ctx, "judge0 batch submitted", zap.Int("items", len(items)))
	return tokens, nil
}

// PollBatch re-checks the batch at a fixed interval until every submission
// reaches a terminal status. The wait is bounded by the attempt limit, the
// poll timeout and ctx.
func (c *Client) PollBatch(ctx context.Context, tokens []string) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	var policy backoff.BackOff = backoff.NewConstantBackOff(c.pollInterval)
	policy = backoff.WithMaxRetries(policy, uint64(c.maxAttempts-1))
	policy = backoff.WithContext(policy, pollCtx)

	var results []Result
	attempts := 0
	op := func() error {
		attempts++
		res, err := c.fetchBatch(pollCtx, tokens)
		if err != nil {
			return backoff.Permanent(err)
		}
		for _, r := range res {
			if !r.Status.Terminal() {
				return errNotTerminal
			}
		}
		results = res
		return nil
	}

	err := backoff.Retry(op, policy)
	switch {
	case err == nil:
		logger.Debug(ctx, "judge0 batch finished", zap.Int("tokens", len(tokens)), zap.Int("attempts", attempts))
		return results, nil
	case ctx.Err() != nil:
		logger.Warn(ctx, "judge0 batch poll cancelled", zap.Int("tokens", len(tokens)), zap.Error(ctx.Err()))
		return nil, common.WrapError(common.ErrServiceUnavailable, "Judge0 request was cancelled", ctx.Err())
	case errors.Is(err, errNotTerminal) || errors.Is(err, context.DeadlineExceeded):
		logger.Warn(ctx, "judge0 batch poll budget exhausted", zap.Int("tokens", len(tokens)), zap.Int("attempts", attempts))
		return nil, ErrPollTimeout
	default:
		return nil, common.WrapError(common.ErrServiceUnavailable, "Failed to fetch results from Judge0", err)
	}
}

// fetchBatch fetches the current state of tokens, ordered like tokens.
func (c *Client) fetchBatch(ctx context.Context, tokens []string) ([]Result, error) {
	q := url.Values{}
	q.Set("tokens", strings.Join(tokens, ","))
	q.Set("base64_encoded", "false")
	q.Set("fields", resultFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/submissions/batch?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("judge0: build poll request: %w", err)
	}

	var resp batchResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	byToken := make(map[string]Result, len(resp.Submissions))
	for _, r := range resp.Submissions {
		byToken[r.Token] = r
	}
	ordered := make([]Result, len(tokens))
	for i, t := range tokens {
		r, ok := byToken[t]
		if !ok {
			return nil, fmt.Errorf("judge0: no result for token %s", t)
		}
		ordered[i] = r
	}
	return ordered, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Auth-Token", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("judge0: %s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("judge0: decode response: %w", err)
	}
	return nil
}
