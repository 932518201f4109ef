// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

// Package sejmapi is the HTTP client for the public Sejm REST API.
//
// The client owns the whole resilience stack for the remote boundary:
//   - client-side rate limiting (golang.org/x/time/rate)
//   - retry with exponential backoff for transient failures (retry.go)
//   - circuit breaker protection (circuit_breaker.go)
//   - strict payload decoding and shape validation (models/sejm)
//
// It does no caching; freshness decisions belong to the cache repository.
// Every method accepts a context and is safe for concurrent use.
package sejmapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/plenumlab/plenum/internal/config"
	"github.com/plenumlab/plenum/internal/metrics"
	"github.com/plenumlab/plenum/internal/models/sejm"
	gobreaker "github.com/sony/gobreaker/v2"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics.
const maxErrorBodySize = 64 * 1024 // 64KB

// ClientInterface is the API surface the sync pipeline depends on. The
// production implementation is Client; tests substitute fakes.
type ClientInterface interface {
	Terms(ctx context.Context) ([]sejm.Term, error)
	Clubs(ctx context.Context, term int) ([]sejm.Club, error)
	MPs(ctx context.Context, term int) ([]sejm.MP, error)
	Proceedings(ctx context.Context, term int) ([]sejm.Proceeding, error)
	Votings(ctx context.Context, term, sitting int) ([]sejm.Voting, error)
	Voting(ctx context.Context, term, sitting, number int) (*sejm.VotingDetails, error)
	Processes(ctx context.Context, term, limit, offset int) ([]sejm.ProcessHeader, error)
	Process(ctx context.Context, term int, number string) (*sejm.ProcessDetails, error)
}

// Client talks to the Sejm REST API.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   retrier
	breaker *gobreaker.CircuitBreaker[any]
}

var _ ClientInterface = (*Client)(nil)

// New creates a Sejm API client from configuration.
func New(cfg *config.SejmConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		retry: retrier{
			maxAttempts: cfg.RetryAttempts,
			baseDelay:   cfg.RetryBaseDelay,
			maxDelay:    cfg.RetryMaxDelay,
		},
		breaker: newBreaker(),
	}
}

// get fetches baseURL/path, decodes the JSON body into out and validates its
// shape. endpoint is the stable label used for logging and metrics.
func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	err := c.retry.do(ctx, endpoint, func(ctx context.Context) error {
		return c.attempt(ctx, endpoint, path, out)
	})
	metrics.ObserveAPIRequest(endpoint, outcomeLabel(err), start)
	return err
}

// attempt performs a single rate-limited request through the circuit breaker.
func (c *Client) attempt(ctx context.Context, endpoint, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.doRequest(ctx, endpoint, path, out)
	})
	if breakerRejected(err) {
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		// An open breaker is a transient condition: the id stays stale and
		// the next run retries it.
		return transientError(endpoint, 0, err)
	}
	if err != nil {
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		return err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	return nil
}

// doRequest issues one HTTP GET and classifies the outcome into the error
// taxonomy.
func (c *Client) doRequest(ctx context.Context, endpoint, path string, out any) error {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return permanentError(endpoint, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Timeouts and connection failures are retryable.
		return transientError(endpoint, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Decoded below.
	case resp.StatusCode == http.StatusNotFound:
		return notFoundError(endpoint)
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr := transientError(endpoint, resp.StatusCode, fmt.Errorf("rate limited"))
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return apiErr
	case resp.StatusCode >= 500:
		return transientError(endpoint, resp.StatusCode,
			fmt.Errorf("server error: %s", readBodyForError(resp.Body)))
	default:
		return permanentError(endpoint, resp.StatusCode,
			fmt.Errorf("unexpected status: %s", readBodyForError(resp.Body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return permanentError(endpoint, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// parseRetryAfter reads a Retry-After header given in seconds (RFC 6585).
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// readBodyForError reads up to maxErrorBodySize of a response body for error
// reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

// Terms returns the list of legislative terms (GET /term).
func (c *Client) Terms(ctx context.Context) ([]sejm.Term, error) {
	var terms []sejm.Term
	if err := c.get(ctx, "terms", "term", &terms); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := sejm.CheckSlice(terms); err != nil {
		return nil, permanentError("terms", 0, err)
	}
	return terms, nil
}

// Clubs returns the parliamentary clubs of a term (GET /term{t}/clubs).
func (c *Client) Clubs(ctx context.Context, term int) ([]sejm.Club, error) {
	var clubs []sejm.Club
	if err := c.get(ctx, "clubs", fmt.Sprintf("term%d/clubs", term), &clubs); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := sejm.CheckSlice(clubs); err != nil {
		return nil, permanentError("clubs", 0, err)
	}
	return clubs, nil
}

// MPs returns the members of parliament of a term (GET /term{t}/MP).
func (c *Client) MPs(ctx context.Context, term int) ([]sejm.MP, error) {
	var mps []sejm.MP
	if err := c.get(ctx, "mps", fmt.Sprintf("term%d/MP", term), &mps); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := sejm.CheckSlice(mps); err != nil {
		return nil, permanentError("mps", 0, err)
	}
	return mps, nil
}

// Proceedings returns the sittings of a term (GET /term{t}/proceedings).
func (c *Client) Proceedings(ctx context.Context, term int) ([]sejm.Proceeding, error) {
	var proceedings []sejm.Proceeding
	if err := c.get(ctx, "proceedings", fmt.Sprintf("term%d/proceedings", term), &proceedings); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return proceedings, nil
}

// Votings returns the roll-call summaries of one sitting
// (GET /term{t}/votings/{sitting}). A sitting without votings yields an
// empty list, not an error.
func (c *Client) Votings(ctx context.Context, term, sitting int) ([]sejm.Voting, error) {
	var votings []sejm.Voting
	if err := c.get(ctx, "votings", fmt.Sprintf("term%d/votings/%d", term, sitting), &votings); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := sejm.CheckSlice(votings); err != nil {
		return nil, permanentError("votings", 0, err)
	}
	return votings, nil
}

// Voting returns one roll-call with individual votes
// (GET /term{t}/votings/{sitting}/{num}). Not-found propagates: the caller
// decides whether a missing detail is acceptable.
func (c *Client) Voting(ctx context.Context, term, sitting, number int) (*sejm.VotingDetails, error) {
	var details sejm.VotingDetails
	if err := c.get(ctx, "voting", fmt.Sprintf("term%d/votings/%d/%d", term, sitting, number), &details); err != nil {
		return nil, err
	}
	if err := sejm.Check(&details); err != nil {
		return nil, permanentError("voting", 0, err)
	}
	return &details, nil
}

// Processes returns one page of a term's legislative processes
// (GET /term{t}/processes?limit=&offset=).
func (c *Client) Processes(ctx context.Context, term, limit, offset int) ([]sejm.ProcessHeader, error) {
	var processes []sejm.ProcessHeader
	path := fmt.Sprintf("term%d/processes?limit=%d&offset=%d", term, limit, offset)
	if err := c.get(ctx, "processes", path, &processes); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := sejm.CheckSlice(processes); err != nil {
		return nil, permanentError("processes", 0, err)
	}
	return processes, nil
}

// Process returns one legislative process with its stage tree
// (GET /term{t}/processes/{num}).
func (c *Client) Process(ctx context.Context, term int, number string) (*sejm.ProcessDetails, error) {
	var details sejm.ProcessDetails
	if err := c.get(ctx, "process", fmt.Sprintf("term%d/processes/%s", term, number), &details); err != nil {
		return nil, err
	}
	if err := sejm.Check(&details); err != nil {
		return nil, permanentError("process", 0, err)
	}
	return &details, nil
}
