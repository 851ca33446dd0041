// Package httpclient builds the resty clients shared by the TheTVDB and Plex
// API clients: one timeout, a small fixed retry budget for connection
// faults, and optional relaxed TLS for self-signed Plex servers.
package httpclient

import (
	"crypto/tls"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryWait    = 500 * time.Millisecond
	defaultRetryMaxWait = 5 * time.Second
)

// Options configures a client.
type Options struct {
	BaseURL            string
	Timeout            time.Duration
	Retries            int
	RetryWait          time.Duration
	InsecureSkipVerify bool // only honored for https base URLs
	Headers            map[string]string
}

// New creates a resty client for the given options.
func New(opts Options, logger zerolog.Logger) *resty.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	wait := opts.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}

	c := resty.New().
		SetLogger(restyLogger{logger: logger}).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(max(wait, defaultRetryMaxWait)).
		AddRetryCondition(retryOnNetworkError).
		SetHeader("Accept", "application/json")

	if opts.BaseURL != "" {
		c.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	}
	for k, v := range opts.Headers {
		c.SetHeader(k, v)
	}

	if opts.InsecureSkipVerify && strings.HasPrefix(strings.ToLower(opts.BaseURL), "https://") {
		logger.Warn().Str("url", opts.BaseURL).Msg("TLS certificate verification disabled")
		c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // operator opt-in for self-signed Plex certificates
	}

	return c
}

// restyLogger routes resty's internal messages (retry notices and the like)
// through zerolog.
type restyLogger struct {
	logger zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), v...)
}
