package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"
)

// HTTPTransport is the default net/http-based Transport. It is safe for
// concurrent use by multiple Worker instances.
type HTTPTransport struct {
	client *http.Client

	// limiter, when non-nil, throttles outgoing requests client-side —
	// useful when an upstream is recovering from an outage and a burst
	// of retried rows would otherwise re-trigger the failure.
	limiter *rate.Limiter

	mu sync.Mutex
}

// HTTPTransportOption configures an HTTPTransport at construction.
type HTTPTransportOption func(*HTTPTransport)

// WithRateLimit caps outgoing requests to rps requests per second with a
// burst of burst. Off by default.
func WithRateLimit(rps float64, burst int) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHTTPTransport builds an HTTPTransport. keepAlive mirrors the
// keepAlive configuration key (spec §6); when false, connections are
// closed after each request rather than pooled.
func NewHTTPTransport(keepAlive bool, opts ...HTTPTransportOption) *HTTPTransport {
	rt := &http.Transport{
		DisableKeepAlives:   !keepAlive,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	t := &HTTPTransport{
		client: &http.Client{Transport: rt},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send implements Transport. It never returns a non-nil error: transport
// and protocol-level failures are folded into Outcome per spec §6 so the
// Request Processor always has a code to classify.
func (t *HTTPTransport) Send(ctx context.Context, req Request, timeout time.Duration) (Outcome, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return Outcome{Code: -1}, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), req.URL, bytes.NewBufferString(req.Payload))
	if err != nil {
		// A malformed method/URL cannot ever succeed by retrying; still
		// reported as Inconsistent since the spec defines no sentinel
		// for construction errors and retry_inconsistent governs whether
		// it is worth retrying at all.
		return Outcome{Code: -1}, nil
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	wallStart := time.Now()
	cpuStart := selfCPUTime()

	resp, err := t.client.Do(httpReq)

	wallMs := float64(time.Since(wallStart)) / float64(time.Millisecond)
	cpuMs := float64(selfCPUTime()-cpuStart) / float64(time.Millisecond)

	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Code: 0, WallMs: wallMs, CPUMs: cpuMs}, nil
		}
		return Outcome{Code: -1, WallMs: wallMs, CPUMs: cpuMs}, nil
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	body := string(bodyBytes)

	return Outcome{
		Code:    resp.StatusCode,
		Body:    &body,
		Headers: map[string][]string(resp.Header),
		WallMs:  wallMs,
		CPUMs:   cpuMs,
	}, nil
}

// selfCPUTime returns cumulative process user+system CPU time as a
// time.Duration, used to compute the per-attempt cpu_ms timing (spec §3
// timings_cpu_ms). Mirrors the getrusage-based self-accounting idiom
// common to worker-pool examples that report per-task CPU cost.
func selfCPUTime() time.Duration {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	user := time.Duration(ru.Utime.Sec)*time.Second + time.Duration(ru.Utime.Usec)*time.Microsecond
	sys := time.Duration(ru.Stime.Sec)*time.Second + time.Duration(ru.Stime.Usec)*time.Microsecond
	return user + sys
}
