// Package http builds the outbound clients used to reach CyberSource.
package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	outboundRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cybersource_outbound_requests_total",
			Help: "Outbound HTTP requests by target and status code (0 on transport error)",
		},
		[]string{"target", "code"},
	)

	outboundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cybersource_outbound_request_duration_seconds",
			Help:    "Outbound HTTP round trip time until response headers",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"target"},
	)
)

// ClientConfig tunes one outbound client. Target labels its metrics.
type ClientConfig struct {
	Target string

	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	KeepAlive           time.Duration

	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	// Timeout bounds the whole exchange, body included. Zero means none.
	Timeout time.Duration

	// ProxyURL overrides the environment proxy when set
	ProxyURL *url.URL
}

// SOAPClientConfig is tuned for the single transaction processor host,
// where many payment calls share one endpoint.
func SOAPClientConfig(timeout time.Duration) ClientConfig {
	return ClientConfig{
		Target:                "soap",
		MaxIdleConnsPerHost:   50,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		KeepAlive:             60 * time.Second,
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		Timeout:               timeout,
	}
}

// ReportClientConfig is for the On-Demand reporting endpoint. Queries are rare
// and slow, so the pool is small and timeouts come from the tenant account.
func ReportClientConfig(openTimeout, readTimeout time.Duration, proxy *url.URL) ClientConfig {
	cfg := ClientConfig{
		Target:                "report",
		MaxIdleConnsPerHost:   5,
		MaxConnsPerHost:       10,
		IdleConnTimeout:       90 * time.Second,
		KeepAlive:             60 * time.Second,
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ProxyURL:              proxy,
	}
	if openTimeout > 0 {
		cfg.DialTimeout = openTimeout
		cfg.TLSHandshakeTimeout = openTimeout
	}
	if readTimeout > 0 {
		cfg.ResponseHeaderTimeout = readTimeout
	}
	cfg.Timeout = cfg.DialTimeout + cfg.ResponseHeaderTimeout
	return cfg
}

// NewHTTPClient builds a pooled client. Every round trip is counted under cfg.Target.
func NewHTTPClient(cfg ClientConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	proxy := http.ProxyFromEnvironment
	if cfg.ProxyURL != nil {
		proxy = http.ProxyURL(cfg.ProxyURL)
	}

	transport := &http.Transport{
		Proxy:                 proxy,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConnsPerHost * 2,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: &instrumentedTransport{target: cfg.Target, next: transport},
		Timeout:   cfg.Timeout,
	}
}

type instrumentedTransport struct {
	target string
	next   http.RoundTripper
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	outboundDuration.WithLabelValues(t.target).Observe(time.Since(start).Seconds())

	code := "0"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	outboundRequests.WithLabelValues(t.target, code).Inc()
	return resp, err
}
