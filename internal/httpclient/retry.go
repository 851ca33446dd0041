package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

var networkIndicators = []string{
	"connection refused",
	"no such host",
	"timeout",
	"network is unreachable",
	"no route to host",
	"host is down",
	"dial tcp",
	"dial udp",
	"i/o timeout",
	"connection reset",
	"broken pipe",
	"unexpected eof",
	"temporary failure in name resolution",
}

// IsNetworkError checks if an error is likely a transient connection fault.
// Cancellation by the caller is never treated as a network error.
func IsNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	// *url.Error satisfies net.Error for every failure, so look at what it wraps.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}

	// A server dropping the connection mid-exchange surfaces as a bare EOF.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range networkIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// retryOnNetworkError is a resty retry condition. HTTP status errors reach
// it with a nil error and are never retried.
func retryOnNetworkError(_ *resty.Response, err error) bool {
	return IsNetworkError(err)
}
