// Package upstream is a small JSON-over-HTTP client for collaborator services.
// Every call carries a bounded timeout and runs behind a circuit breaker so a
// struggling collaborator fails fast instead of piling up requests.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable covers transport failures, timeouts, 5xx answers and an
// open breaker. Callers translate it to their own retryable error.
var ErrUnavailable = errors.New("upstream unavailable")

type Config struct {
	Name             string
	BaseURL          string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

type Client struct {
	baseURL string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[Response]
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	threshold := cfg.FailureThreshold

	return &Client{
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker[Response](gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
	}
}

// Get issues a GET for path. 4xx answers are returned without error so the
// caller can map them (e.g. 404 to a not-found error).
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) (Response, error) {
	return c.do(ctx, fiber.MethodGet, path, headers, nil)
}

// Post issues a POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, headers map[string]string, body any) (Response, error) {
	return c.do(ctx, fiber.MethodPost, path, headers, body)
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body any) (Response, error) {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, context.DeadlineExceeded)
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.breaker.Execute(func() (Response, error) {
		var agent *fiber.Agent
		url := c.baseURL + path
		switch method {
		case fiber.MethodPost:
			agent = fiber.Post(url)
		default:
			agent = fiber.Get(url)
		}
		agent.Timeout(timeout)
		for k, v := range headers {
			agent.Set(k, v)
		}
		if body != nil {
			agent.JSON(body)
		}

		code, data, errs := agent.Bytes()
		if len(errs) > 0 {
			return Response{}, errors.Join(errs...)
		}
		resp := Response{Status: code, Body: data}
		if code >= fiber.StatusInternalServerError {
			return resp, fmt.Errorf("%s %s answered %d", method, path, code)
		}
		return resp, nil
	})
	if err != nil {
		return resp, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}
