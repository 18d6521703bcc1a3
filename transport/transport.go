// Package transport defines the pluggable HTTP delivery contract the
// Request Processor invokes for each claimed row (spec §6), plus one
// concrete, swappable implementation (HTTPTransport).
package transport

import (
	"context"
	"time"
)

// Outcome is the classified result of one delivery attempt, exactly the
// fields spec §6 mandates. Code carries the two sentinels: 0 means a
// connection-level timeout, -1 means no response and no connection error
// ("inconsistent").
type Outcome struct {
	Code    int
	Body    *string
	Headers map[string][]string
	WallMs  float64
	CPUMs   float64
}

// Request is the minimal view of a requests.Request a Transport needs —
// declared here rather than imported from package requests so transport
// has no dependency on the storage layer.
type Request struct {
	Method  string
	URL     string
	Headers map[string][]string
	Payload string
}

// Transport sends one HTTP request and reports its Outcome. Any error
// returned is caught by the caller and mapped to an Inconsistent outcome
// (spec §6: "Any thrown error from the transport is caught and mapped to
// Inconsistent") — implementations are free to either return (Outcome{},
// err) or construct the sentinel Outcome themselves.
type Transport interface {
	Send(ctx context.Context, req Request, timeout time.Duration) (Outcome, error)
}
