// Package parliament is the inbound adapter for the UK Parliament Members
// and Commons Votes APIs.
package parliament

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mpgraph/application/ports"
	"mpgraph/domain"
	apperrors "mpgraph/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	membersSearchPath = "/api/Members/Search"
	divisionsPath     = "/data/divisions.json/search"
	memberVotingPath  = "/data/divisions.json/membervoting"

	// commonsHouse is the Members API id of the House of Commons.
	commonsHouse = 1
)

// Config holds client settings
type Config struct {
	MembersURL string
	VotesURL   string
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int

	// Breaker settings; zero values take DefaultConfig's.
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold float64
	BreakerMinRequests      uint32
}

// DefaultConfig returns a configuration pointing at the public APIs.
func DefaultConfig() Config {
	return Config{
		MembersURL:              "https://members-api.parliament.uk",
		VotesURL:                "https://commonsvotes-api.parliament.uk",
		Timeout:                 30 * time.Second,
		RateLimit:               5,
		RateBurst:               5,
		BreakerMaxRequests:      1,
		BreakerInterval:         60 * time.Second,
		BreakerTimeout:          30 * time.Second,
		BreakerFailureThreshold: 0.6,
		BreakerMinRequests:      5,
	}
}

var _ ports.DataSource = (*Client)(nil)

// Client fetches members, divisions and member votes. Every request waits
// on a token bucket and runs through a circuit breaker. Failed requests are
// not retried.
type Client struct {
	httpClient *http.Client
	membersURL string
	votesURL   string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a Client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = def.RateBurst
	}
	if cfg.BreakerMaxRequests == 0 {
		cfg.BreakerMaxRequests = def.BreakerMaxRequests
	}
	if cfg.BreakerInterval <= 0 {
		cfg.BreakerInterval = def.BreakerInterval
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = def.BreakerFailureThreshold
	}
	if cfg.BreakerMinRequests == 0 {
		cfg.BreakerMinRequests = def.BreakerMinRequests
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "parliament-api",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		httpClient: httpClient,
		membersURL: strings.TrimRight(cfg.MembersURL, "/"),
		votesURL:   strings.TrimRight(cfg.VotesURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		breaker:    breaker,
		logger:     logger,
	}
}

// Legislators returns one page of current Commons members as served.
// Members are not validated here so the page length matches the source.
func (c *Client) Legislators(ctx context.Context, offset, limit int) ([]domain.Legislator, error) {
	q := url.Values{}
	q.Set("House", strconv.Itoa(commonsHouse))
	q.Set("IsCurrentMember", "true")
	q.Set("skip", strconv.Itoa(offset))
	q.Set("take", strconv.Itoa(limit))

	var resp memberSearchResponse
	if err := c.getJSON(ctx, c.membersURL+membersSearchPath, q, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Legislator, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, item.Value.toDomain())
	}
	return out, nil
}

// Divisions returns one page of divisions.
func (c *Client) Divisions(ctx context.Context, offset, limit int) ([]domain.Division, error) {
	q := url.Values{}
	q.Set("queryParameters.skip", strconv.Itoa(offset))
	q.Set("queryParameters.take", strconv.Itoa(limit))

	var resp []divisionDTO
	if err := c.getJSON(ctx, c.votesURL+divisionsPath, q, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Division, 0, len(resp))
	for _, d := range resp {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// MemberVotes returns one page of a member's voting record.
func (c *Client) MemberVotes(ctx context.Context, legislatorID, offset, limit int) ([]domain.MemberVote, error) {
	q := url.Values{}
	q.Set("queryParameters.memberId", strconv.Itoa(legislatorID))
	q.Set("queryParameters.skip", strconv.Itoa(offset))
	q.Set("queryParameters.take", strconv.Itoa(limit))

	var resp []memberVotingDTO
	if err := c.getJSON(ctx, c.votesURL+memberVotingPath, q, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.MemberVote, 0, len(resp))
	for _, v := range resp {
		out = append(out, v.toDomain(legislatorID))
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.NewTimeoutError("parliament api rate limit wait").WithCause(err)
	}

	full := endpoint + "?" + query.Encode()
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, full, out)
	})
	if err != nil {
		c.logger.Debug("Parliament API request failed",
			zap.String("url", full),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return apperrors.NewUnavailableError("parliament-api").WithCause(err)
		}
		return err
	}

	c.logger.Debug("Parliament API request",
		zap.String("url", full),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (c *Client) do(ctx context.Context, full string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return apperrors.NewInternalError("build parliament api request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewNetworkError("parliament api request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewExternalError("parliament-api",
			fmt.Errorf("GET %s: status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))).
			WithDetails(map[string]interface{}{"status": resp.StatusCode})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewExternalError("parliament-api", fmt.Errorf("decode %s: %w", req.URL.Path, err))
	}
	return nil
}
