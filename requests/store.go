package requests

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/nbj/request-insurance/requests/pg/requestsqlc"
	"github.com/nbj/request-insurance/transport"
)

// AttemptInfo carries the per-attempt timing measurements a transport
// call produces, recorded on the row by Complete/Fail/Defer.
type AttemptInfo struct {
	CPUMs  float64
	WallMs float64
}

// Store is the Request Store of spec §4.A: persisted requests/
// request_logs tables plus the atomic operations the Worker Loop, Batch
// Claimer and Request Processor drive it through. It wraps a
// *pgxpool.Pool and a sqlc-generated requestsqlc.Querier, mirroring the
// teacher's JobManager.Db/Queries split.
type Store struct {
	pool    *pgxpool.Pool
	queries requestsqlc.Querier
	cipher  *headerCipher
	logger  *logharbour.Logger
}

// NewStore builds a Store. headerEncryptionKey seeds the AES-GCM cipher
// used to seal sensitive header values (authorization, cookie) before
// they are folded into the headers jsonb column.
func NewStore(pool *pgxpool.Pool, logger *logharbour.Logger, headerEncryptionKey []byte) (*Store, error) {
	cipher, err := newHeaderCipher(headerEncryptionKey)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:    pool,
		queries: requestsqlc.New(pool),
		cipher:  cipher,
		logger:  logger,
	}, nil
}

// withTxRetry runs fn inside a transaction, retrying up to maxRetries
// times when Postgres reports a deadlock (40P01) or serialization
// failure (40001), or when the transaction cannot be started — the
// `with_transaction(retries=5, fn)` helper. The retry is standard pgx
// practice adopted for this repo, not a ported teacher mechanism (see
// DESIGN.md).
func (s *Store) withTxRetry(ctx context.Context, maxRetries int, fn func(q requestsqlc.Querier) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(jitteredBackoff(attempt))
		}
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		q := s.queries.(*requestsqlc.Queries).WithTx(tx)
		if err := fn(q); err != nil {
			tx.Rollback(ctx)
			if isRetryablePgError(err) {
				lastErr = err
				continue
			}
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			if isRetryablePgError(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransientStorage, lastErr)
}

func isRetryablePgError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func jitteredBackoff(attempt int) time.Duration {
	base := time.Duration(attempt) * 20 * time.Millisecond
	return base + rand.N(time.Duration(attempt)*time.Millisecond*7+1)
}

// Insert creates a new ready row. Rows are created externally in state
// ready (spec §3 "Lifecycle"); this is the entry point callers use to do
// so.
func (s *Store) Insert(ctx context.Context, req Request) (int64, error) {
	sealed, err := s.cipher.sealSensitive(req.Headers)
	if err != nil {
		return 0, err
	}
	headersJSON, err := encodeHeaders(sealed)
	if err != nil {
		return 0, err
	}
	payloadJSON, err := encodePayload(req.Payload)
	if err != nil {
		return 0, err
	}
	factor := req.RetryFactor
	if factor == 0 {
		factor = 2
	}
	return s.queries.InsertRequest(ctx, requestsqlc.InsertRequestParams{
		Priority:          req.Priority,
		Url:               req.URL,
		Method:            req.Method,
		Headers:           headersJSON,
		Payload:           payloadJSON,
		RetryFactor:       factor,
		RetryInconsistent: req.RetryInconsistent,
	})
}

// Load fetches full rows for processing, ordered by (priority, id) per
// spec §4.A.
func (s *Store) Load(ctx context.Context, ids []int64) ([]Request, error) {
	rows, err := s.queries.LoadRequests(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(rows))
	for _, r := range rows {
		req, err := s.fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func (s *Store) fromRow(r requestsqlc.Request) (Request, error) {
	headers, err := decodeHeaders(r.Headers)
	if err != nil {
		return Request{}, err
	}
	headers, err = s.cipher.openSensitive(headers)
	if err != nil {
		return Request{}, err
	}
	payload, err := decodePayload(r.Payload)
	if err != nil {
		return Request{}, err
	}
	return Request{
		ID:                r.ID,
		Priority:          r.Priority,
		URL:               r.Url,
		Method:            r.Method,
		Headers:           headers,
		Payload:           payload,
		State:             State(r.State),
		StateChangedAt:    r.StateChangedAt.Time,
		RetryAt:           tsPtr(r.RetryAt),
		RetryCount:        r.RetryCount,
		RetryFactor:       r.RetryFactor,
		RetryInconsistent: r.RetryInconsistent,
		LockedAt:          tsPtr(r.LockedAt),
		AbandonedAt:       tsPtr(r.AbandonedAt),
		CompletedAt:       tsPtr(r.CompletedAt),
		TimingsCPUMs:      r.TimingsCpuMs,
		TimingsWallMs:     r.TimingsWallMs,
	}, nil
}

func tsPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func toTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// Complete transitions id to completed (spec §4.A "complete").
func (s *Store) Complete(ctx context.Context, id int64, attempt AttemptInfo) error {
	return s.queries.CompleteRequest(ctx, requestsqlc.CompleteRequestParams{
		ID:            id,
		TimingsCpuMs:  attempt.CPUMs,
		TimingsWallMs: attempt.WallMs,
	})
}

// Fail transitions id to failed with the given final retry_count (spec
// §4.A "fail"). Callers decide whether the count reflects this attempt
// (non-retryable outcomes) or is held at its prior value (retryable
// outcomes that exhausted max_retries) — see applyOutcome in processor.go.
func (s *Store) Fail(ctx context.Context, id int64, retryCount int32, attempt AttemptInfo) error {
	return s.queries.FailRequest(ctx, requestsqlc.FailRequestParams{
		ID:            id,
		RetryCount:    retryCount,
		TimingsCpuMs:  attempt.CPUMs,
		TimingsWallMs: attempt.WallMs,
	})
}

// Defer transitions id to waiting with a new retry_at and retry_count
// (spec §4.A "defer").
func (s *Store) Defer(ctx context.Context, id int64, retryAt time.Time, retryCount int32, attempt AttemptInfo) error {
	return s.queries.DeferRequest(ctx, requestsqlc.DeferRequestParams{
		ID:            id,
		RetryAt:       toTimestamptz(retryAt),
		RetryCount:    retryCount,
		TimingsCpuMs:  attempt.CPUMs,
		TimingsWallMs: attempt.WallMs,
	})
}

// Pause defers id to waiting with a short fixed retry and leaves
// retry_count untouched — the processor-bug path of spec §4.D step 5,
// used when no delivery attempt outcome was ever recorded.
func (s *Store) Pause(ctx context.Context, id int64, retryAt time.Time) error {
	return s.queries.PauseRequest(ctx, requestsqlc.PauseRequestParams{
		ID:      id,
		RetryAt: toTimestamptz(retryAt),
	})
}

// ForceUnlock clears locked_at without touching state. The Worker does
// not call it: Complete/Fail/Defer/Pause clear the lock themselves as
// part of their state transition, maintaining invariant 1 atomically,
// and if that transition write fails the row stays pending and locked.
func (s *Store) ForceUnlock(ctx context.Context, id int64) error {
	return s.queries.ForceUnlockRequest(ctx, id)
}

// PromoteWaitingToReady implements spec §4.A "promote_waiting_to_ready":
// a set-based, idempotent UPDATE requiring no row-level locks.
func (s *Store) PromoteWaitingToReady(ctx context.Context) (int64, error) {
	return s.queries.PromoteWaitingToReady(ctx)
}

// AppendLog inserts one RequestLog row (spec §4.A "append_log"). Bodies
// and headers are recorded as-is for classified HTTP responses; the
// caller passes nil for both on Inconsistent/TimedOut outcomes per spec
// §4.D step 3 ("recorded as null").
func (s *Store) AppendLog(ctx context.Context, requestID int64, attemptID uuid.UUID, outcome transport.Outcome) error {
	var body pgtype.Text
	if outcome.Body != nil {
		body = pgtype.Text{String: *outcome.Body, Valid: true}
	}
	var headersJSON []byte
	if outcome.Headers != nil {
		encoded, err := encodeHeaders(outcome.Headers)
		if err != nil {
			return err
		}
		headersJSON = encoded
	}
	return s.queries.AppendRequestLog(ctx, requestsqlc.AppendRequestLogParams{
		RequestID:       requestID,
		AttemptID:       attemptID,
		ResponseCode:    int32(outcome.Code),
		ResponseBody:    body,
		ResponseHeaders: headersJSON,
	})
}

// Abandon implements the external "abandon" action (spec §4.D state
// machine / §7): sets state=abandoned unless the row is already
// terminal, in which case ErrRowTerminal is returned.
func (s *Store) Abandon(ctx context.Context, id int64) error {
	n, err := s.queries.AbandonRequest(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRowTerminal
	}
	return nil
}

// UnlockStuck implements the administrative stuck-pending recovery
// action (spec §5): flips a pending row back to ready and clears its
// lock. Returns ErrRowNotPending if the row is not currently pending.
func (s *Store) UnlockStuck(ctx context.Context, id int64) error {
	n, err := s.queries.UnlockStuckRequest(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRowNotPending
	}
	return nil
}
