// Package requests implements the Request Insurance Worker Engine: a
// durable, retriable HTTP delivery queue backed by Postgres. Callers insert
// rows in state Ready; one or more Worker instances drain them, invoking a
// pluggable transport.Transport and driving each row through the state
// machine documented on State.
package requests

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle stage of a Request.
type State string

const (
	StateReady     State = "ready"
	StatePending   State = "pending"
	StateWaiting   State = "waiting"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateAbandoned State = "abandoned"
)

// Terminal reports whether s is absorbing: once a row reaches a terminal
// state no further transition is permitted (invariant 3).
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateAbandoned
}

// Request is one persisted delivery intent.
type Request struct {
	ID                int64
	Priority          int32
	URL               string
	Method            string
	Headers           map[string][]string
	Payload           string
	State             State
	StateChangedAt    time.Time
	RetryAt           *time.Time
	RetryCount        int32
	RetryFactor       int32
	RetryInconsistent bool
	LockedAt          *time.Time
	AbandonedAt       *time.Time
	CompletedAt       *time.Time
	TimingsCPUMs      float64
	TimingsWallMs     float64
}

// RequestLog is one append-only delivery-attempt record.
type RequestLog struct {
	ID              int64
	RequestID       int64
	AttemptID       uuid.UUID
	ResponseCode    int32
	ResponseBody    *string
	ResponseHeaders map[string][]string
	AttemptedAt     time.Time
}

// OutcomeKind is the six-way classification of a delivery attempt from
// spec §4.D step 2.
type OutcomeKind int

const (
	OutcomeSuccessful OutcomeKind = iota
	OutcomeClientError
	OutcomeServerError
	OutcomeOtherStatus
	OutcomeTimedOut
	OutcomeInconsistent
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccessful:
		return "successful"
	case OutcomeClientError:
		return "client_error"
	case OutcomeServerError:
		return "server_error"
	case OutcomeOtherStatus:
		return "other_status"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeInconsistent:
		return "inconsistent"
	default:
		return fmt.Sprintf("outcomekind(%d)", int(k))
	}
}

// ClassifyCode maps a transport.Outcome status code to its OutcomeKind.
// Sentinel codes: 0 means connection-level timeout, -1 means inconsistent
// (no response and no connection error).
func ClassifyCode(code int) OutcomeKind {
	switch {
	case code == 0:
		return OutcomeTimedOut
	case code == -1:
		return OutcomeInconsistent
	case code >= 200 && code <= 299:
		return OutcomeSuccessful
	case code >= 400 && code <= 499:
		return OutcomeClientError
	case code >= 500 && code <= 599:
		return OutcomeServerError
	default:
		return OutcomeOtherStatus
	}
}

// Retryable reports whether kind alone (ignoring retry_inconsistent) would
// permit another attempt.
func (k OutcomeKind) Retryable() bool {
	switch k {
	case OutcomeServerError, OutcomeOtherStatus, OutcomeTimedOut, OutcomeInconsistent:
		return true
	default:
		return false
	}
}

// encodeHeaders/decodeHeaders round-trip the headers map through JSON text,
// the on-disk representation mandated by spec §3.
func encodeHeaders(h map[string][]string) ([]byte, error) {
	if h == nil {
		h = map[string][]string{}
	}
	return json.Marshal(h)
}

func decodeHeaders(raw []byte) (map[string][]string, error) {
	if len(raw) == 0 {
		return map[string][]string{}, nil
	}
	var h map[string][]string
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, err
	}
	return h, nil
}

// encodePayload/decodePayload round-trip the request body through a JSON
// scalar, the on-disk representation spec §3 mandates ("payload ... are
// encoded as JSON text on disk") even though the body itself need not be
// valid JSON.
func encodePayload(payload string) ([]byte, error) {
	return json.Marshal(payload)
}

func decodePayload(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}
