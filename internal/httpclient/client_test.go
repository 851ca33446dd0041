package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), false},
		{"plain", errors.New("decode failed"), false},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("boom")}, true},
		{"dns error", &net.DNSError{Err: "no such host", Name: "plex.local"}, true},
		{"eof in url error", &url.Error{Op: "Get", URL: "http://x", Err: io.EOF}, true},
		{"canceled in url error", &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, false},
		{"other url error", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("stopped after 10 redirects")}, false},
		{"connection refused text", errors.New("read: connection refused"), true},
		{"reset text", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}

func TestNew_RetriesDroppedConnection(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				conn.Close()
			}
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL, Retries: 2, RetryWait: time.Millisecond}, zerolog.Nop())
	resp, err := client.R().Get("/")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.EqualValues(t, 2, hits.Load())
}

func TestNew_DoesNotRetryStatusErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL, Retries: 3, RetryWait: time.Millisecond}, zerolog.Nop())
	resp, err := client.R().Get("/")

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.EqualValues(t, 1, hits.Load())
}

func TestNew_DefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "missingtv", r.Header.Get("X-Plex-Product"))
	}))
	defer server.Close()

	client := New(Options{
		BaseURL: server.URL + "/",
		Headers: map[string]string{"X-Plex-Product": "missingtv"},
	}, zerolog.Nop())

	_, err := client.R().Get("/library/sections")
	require.NoError(t, err)
}

func TestNew_InsecureSkipVerify(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	strict := New(Options{BaseURL: server.URL}, zerolog.Nop())
	_, err := strict.R().Get("/")
	assert.Error(t, err, "self-signed certificate must be rejected by default")

	relaxed := New(Options{BaseURL: server.URL, InsecureSkipVerify: true}, zerolog.Nop())
	resp, err := relaxed.R().Get("/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
}
