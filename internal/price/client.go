// Package price looks up the tracked token's exchange rate against XRP.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"xrpl-buy-bot/internal/domain"
	"xrpl-buy-bot/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.xpmarket.com/api/v1/tokens"
	DefaultTimeout = 5 * time.Second

	maxBodyBytes = 1 << 20
)

// ErrUnavailable matches every error returned by Client.Price.
var ErrUnavailable = errors.New("price unavailable")

// Kind classifies why a price lookup failed.
type Kind string

const (
	KindNetwork Kind = "network" // transport failure or timeout
	KindStatus  Kind = "status"  // non-200 response
	KindDecode  Kind = "decode"  // body is not the expected JSON
	KindMissing Kind = "missing" // price absent, null or not positive
	KindOpen    Kind = "open"    // circuit breaker is open
)

// LookupError describes a failed price lookup.
type LookupError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("price %s: HTTP %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("price %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("price %s", e.Kind)
	}
}

func (e *LookupError) Unwrap() error { return e.Err }

// Is makes every LookupError match ErrUnavailable.
func (e *LookupError) Is(target error) bool { return target == ErrUnavailable }

// KindOf returns the failure kind of err, or "" if err is not a LookupError.
func KindOf(err error) Kind {
	var lerr *LookupError
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return ""
}

// Client fetches the current price from a market-data endpoint.
// Safe for concurrent use.
type Client struct {
	baseURL string
	asset   domain.TrackedAsset
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithBaseURL sets the market-data base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a price client for asset.
func NewClient(asset domain.TrackedAsset, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		asset:   asset,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "price:" + asset.Pair(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || KindOf(err) == KindMissing
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("price breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// URL returns the lookup URL.
func (c *Client) URL() string {
	return c.baseURL + "/" + c.asset.Pair()
}

// Price returns the current price in XRP per token. Every failure is a
// *LookupError matching ErrUnavailable.
func (c *Client) Price(ctx context.Context) (decimal.Decimal, error) {
	start := time.Now()

	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		lerr := toLookupError(err)
		observability.RecordPriceLookup(string(lerr.Kind), time.Since(start).Seconds())
		c.logger.Debug("price lookup failed", zap.String("kind", string(lerr.Kind)), zap.Error(lerr))
		return decimal.Zero, lerr
	}

	observability.RecordPriceLookup("ok", time.Since(start).Seconds())
	return v.(decimal.Decimal), nil
}

func (c *Client) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(), nil)
	if err != nil {
		return decimal.Zero, &LookupError{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, &LookupError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &LookupError{Kind: KindStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return decimal.Zero, &LookupError{Kind: KindNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	var payload struct {
		Price decimal.NullDecimal `json:"price"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, &LookupError{Kind: KindDecode, Err: err}
	}
	if !payload.Price.Valid || !payload.Price.Decimal.IsPositive() {
		return decimal.Zero, &LookupError{Kind: KindMissing}
	}
	return payload.Price.Decimal, nil
}

func toLookupError(err error) *LookupError {
	var lerr *LookupError
	if errors.As(err, &lerr) {
		return lerr
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &LookupError{Kind: KindOpen, Err: err}
	}
	return &LookupError{Kind: KindNetwork, Err: err}
}
