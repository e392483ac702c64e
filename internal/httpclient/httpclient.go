// Package httpclient builds the HTTP clients of the command line tools.
//
// The signature interceptor sits between the http.Client and an instrumented pooled transport,
// so that the signed retry reuses the connection of the challenged request.
package httpclient

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"runtime"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/siderolabs/go-signature-auth/pkg/client/interceptor"
)

// ConnectTimeout is the dial timeout of the pooled transport.
const ConnectTimeout = 5 * time.Second

// DefaultPooledRoundTripper returns an http.RoundTripper with similar default
// values to http.DefaultTransport, emitting OTel spans for every attempt.
func DefaultPooledRoundTripper() http.RoundTripper {
	return otelhttp.NewTransport(defaultPooledTransport())
}

// NewSigningClient returns an http.Client answering Signature challenges with the given credentials.
//
// The client and the interceptor share a cookie jar, so session cookies set by challenges
// are kept for the following requests.
func NewSigningClient(credentials interceptor.Credentials, options interceptor.Options, timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	if options.Base == nil {
		options.Base = DefaultPooledRoundTripper()
	}

	options.Jar = jar

	return &http.Client{
		Transport: interceptor.New(credentials, options),
		Jar:       jar,
		Timeout:   timeout,
	}, nil
}

func defaultPooledTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   runtime.GOMAXPROCS(0) + 1,
	}
}
