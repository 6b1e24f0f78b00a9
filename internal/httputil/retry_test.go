// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	RetryBaseDelay = 1 * time.Millisecond
}

// throttled answers 429 for the first limited calls and then final.
type throttled struct {
	limited    int32
	final      int
	retryAfter string
	calls      atomic.Int32
}

func (h *throttled) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if h.calls.Add(1) <= h.limited {
		if h.retryAfter != "" {
			w.Header().Set("Retry-After", h.retryAfter)
		}
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	w.WriteHeader(h.final)
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		limited    int32
		final      int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"immediate success", 0, http.StatusOK, 5, http.StatusOK, 1},
		{"retries then succeeds", 2, http.StatusOK, 5, http.StatusOK, 3},
		{"exhausts retries", 100, http.StatusOK, 3, http.StatusTooManyRequests, 4},
		{"zero uses the default", 100, http.StatusOK, 0, http.StatusTooManyRequests, 6},
		{"negative disables retrying", 100, http.StatusOK, -1, http.StatusTooManyRequests, 1},
		{"other errors pass through", 0, http.StatusInternalServerError, 5, http.StatusInternalServerError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &throttled{limited: tt.limited, final: tt.final}
			ts := httptest.NewServer(h)
			defer ts.Close()

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, h.calls.Load())
		})
	}
}

func TestDoWithRetryHonoursRetryAfterAndLogs(t *testing.T) {
	old := MaxRetryAfter
	MaxRetryAfter = 5 * time.Millisecond
	defer func() { MaxRetryAfter = old }()

	h := &throttled{limited: 1, final: http.StatusOK, retryAfter: "30"}
	ts := httptest.NewServer(h)
	defer ts.Close()

	core, logs := observer.New(zap.InfoLevel)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/embeddings", nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 2, WithLogger(zap.New(core)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entries := logs.FilterMessage("rate limited, backing off").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, MaxRetryAfter, fields["wait"])
	assert.Equal(t, int64(1), fields["attempt"])
	assert.Equal(t, int64(2), fields["max_retries"])
	assert.Contains(t, fields["url"], "/v1/embeddings")
}

func TestDoWithRetryNilLoggerIsIgnored(t *testing.T) {
	h := &throttled{limited: 1, final: http.StatusOK}
	ts := httptest.NewServer(h)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 1, WithLogger(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, int32(2), h.calls.Load())
}

func TestDoWithRetryStopsOnCancel(t *testing.T) {
	ts := httptest.NewServer(&throttled{limited: 100, final: http.StatusOK})
	defer ts.Close()

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

func TestDoWithRetryReplaysBody(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"input":["a"]}`))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 2)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"input":["a"]}`, `{"input":["a"]}`}, bodies)
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"0", 0},
		{"-1", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
		{"100000", MaxRetryAfter},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryAfter(tt.in), tt.in)
	}
}
