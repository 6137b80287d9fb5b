package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/botwatch/internal/version"
)

// ErrResponseTooLarge is returned when a response body exceeds the client's limit.
var ErrResponseTooLarge = errors.New("response body too large")

// maxRetryAfter caps how long a Retry-After header can stall a retry.
const maxRetryAfter = 30 * time.Second

// APIError is a non-2xx answer from the session API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte

	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("session api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the request may succeed if repeated.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// newAPIError builds an APIError, preferring the bot's own error text over the status text.
func newAPIError(resp *http.Response, body []byte) *APIError {
	e := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Body:       body,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}

	var payload struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Error != "":
			e.Message = payload.Error
		case payload.Detail != "":
			e.Message = payload.Detail
		case payload.Message != "":
			e.Message = payload.Message
		}
	}
	return e
}

// parseRetryAfter accepts delay-seconds only; HTTP-date values are ignored.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	return min(d, maxRetryAfter)
}

// doRequest performs one request and returns the body of a 2xx response.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	// Read one byte past the limit to tell "exactly at limit" from "over".
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%s %s: %w (limit %d bytes)", method, path, ErrResponseTooLarge, c.maxBodyBytes)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp, body)
	}
	return body, nil
}

// doWithRetry repeats retryable failures with jittered exponential backoff.
// A Retry-After hint from the server replaces the computed delay when longer.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	backoff := max(c.retryBackoff, time.Millisecond)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// backoff * [0.5, 1.5)
			wait := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}
			c.logger.Debug("retrying request", "attempt", attempt, "wait", wait, "path", path)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}

		body, err := c.doRequest(ctx, method, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET with retries and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
