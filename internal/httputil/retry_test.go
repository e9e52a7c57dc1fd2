// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataset = "channel,band,mean,sd\nO1,Alpha,0.40,0.05\n,Delta,0.25,0.06\n"

func init() {
	// Use a tiny base delay so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

// rateLimitedHost serves a normative dataset after rejecting the first
// reject requests with 429.
func rateLimitedHost(reject int, calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(calls, 1) <= int32(reject) {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, testDataset)
	}
}

func TestDoWithRetry_DatasetFirstTry(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(rateLimitedHost(0, &calls))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 5)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, testDataset, string(body))
}

func TestDoWithRetry_DatasetAfterRateLimits(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(rateLimitedHost(2, &calls))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 5)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "O1,Alpha")
}

func TestDoWithRetry_ExhaustsRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	maxRetries := 3
	resp, err := DoWithRetry(context.Background(), ts.Client(), req, maxRetries)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The last 429 comes back so the caller can report the host's refusal.
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	// 1 initial + 3 retries = 4 total calls.
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_DefaultMaxRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 0)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	// 1 initial + 5 default retries = 6 total calls.
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	// Use a longer base delay so the context cancels during the wait.
	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoWithRetry_ServerErrorPassesThrough(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 5)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Only 429 triggers retries; a dataset host in real trouble is not hammered.
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"delay seconds", "7", 7 * time.Second},
		{"zero", "0", 0},
		{"negative ignored", "-3", 0},
		{"http date ignored", "Mon, 31 Aug 2026 10:00:00 GMT", 0},
		{"absent", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			assert.Equal(t, tt.want, retryAfter(resp))
		})
	}
}

func TestDoWithRetry_HonorsRetryAfter(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, testDataset)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 5)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
