// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the rate-limit-aware HTTP client helper used
// when fetching normative datasets from remote archives.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the starting backoff after an HTTP 429 response.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

const defaultMaxRetries = 5

// DoWithRetry issues req and retries on HTTP 429 (Too Many Requests),
// doubling the delay on each attempt starting from RetryBaseDelay. Dataset
// hosts that send a delay-seconds Retry-After header are honored when that
// delay exceeds the computed backoff.
//
// When maxRetries is 0 the default (5) is used. On each 429 the response
// body is drained and closed before sleeping. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After exhausting
// retries the last 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Exhausted retries — return the 429 response as-is.
		if attempt >= maxRetries {
			return resp, nil
		}

		backoff := RetryBaseDelay << attempt
		if ra := retryAfter(resp); ra > backoff {
			backoff = ra
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryAfter parses a delay-seconds Retry-After value. HTTP-date values and
// malformed headers are ignored.
func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
