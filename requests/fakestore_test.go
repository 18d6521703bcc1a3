package requests

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nbj/request-insurance/transport"
)

// fakeStore is an in-memory requestStore used to unit test Worker/
// processRow logic without a real Postgres — integration tests exercise
// the concrete *Store separately.
type fakeStore struct {
	mu sync.Mutex

	rows map[int64]*Request
	logs []RequestLog

	claimQueue [][]int64 // one slice of ids per ClaimReadyBatch call
	claimCalls int

	promoted int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[int64]*Request{}}
}

func (f *fakeStore) put(r Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := r
	f.rows[r.ID] = &cp
}

func (f *fakeStore) get(id int64) Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

func (f *fakeStore) ClaimReadyBatch(ctx context.Context, limit int32) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCalls++
	if f.claimCalls-1 < len(f.claimQueue) {
		return f.claimQueue[f.claimCalls-1], nil
	}
	return nil, nil
}

func (f *fakeStore) Load(ctx context.Context, ids []int64) ([]Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.rows[id])
	}
	return out, nil
}

func (f *fakeStore) Complete(ctx context.Context, id int64, attempt AttemptInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[id]
	r.State = StateCompleted
	now := time.Now()
	r.CompletedAt = &now
	r.LockedAt = nil
	return nil
}

func (f *fakeStore) Fail(ctx context.Context, id int64, retryCount int32, attempt AttemptInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[id]
	r.State = StateFailed
	r.RetryCount = retryCount
	r.LockedAt = nil
	return nil
}

func (f *fakeStore) Defer(ctx context.Context, id int64, retryAt time.Time, retryCount int32, attempt AttemptInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[id]
	r.State = StateWaiting
	r.RetryAt = &retryAt
	r.RetryCount = retryCount
	r.LockedAt = nil
	return nil
}

func (f *fakeStore) Pause(ctx context.Context, id int64, retryAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[id]
	r.State = StateWaiting
	r.RetryAt = &retryAt
	r.LockedAt = nil
	return nil
}

func (f *fakeStore) PromoteWaitingToReady(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.promoted, nil
}

func (f *fakeStore) AppendLog(ctx context.Context, requestID int64, attemptID uuid.UUID, outcome transport.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, RequestLog{
		RequestID:    requestID,
		AttemptID:    attemptID,
		ResponseCode: int32(outcome.Code),
		AttemptedAt:  time.Now(),
	})
	return nil
}

// fakeTransport returns a scripted sequence of outcomes, one per call,
// repeating the last entry once exhausted.
type fakeTransport struct {
	mu       sync.Mutex
	outcomes []transport.Outcome
	errs     []error
	calls    int
}

func (t *fakeTransport) Send(ctx context.Context, req transport.Request, timeout time.Duration) (transport.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.calls
	if i >= len(t.outcomes) {
		i = len(t.outcomes) - 1
	}
	t.calls++
	var err error
	if i < len(t.errs) {
		err = t.errs[i]
	}
	return t.outcomes[i], err
}
