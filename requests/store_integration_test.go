//go:build integration

package requests

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remiges-tech/logharbour/logharbour"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcwait "github.com/testcontainers/testcontainers-go/wait"

	"github.com/nbj/request-insurance/transport"
)

// newTestStore spins up an ephemeral postgres:16-alpine container,
// applies the embedded migrations, and returns a Store wired against it
// — mirroring the teacher's sweep_integration_test.go /
// batch_recovery_integration_test.go setup.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("requests"),
		postgres.WithUsername("requests"),
		postgres.WithPassword("requests"),
		testcontainers.WithWaitStrategy(tcwait.ForListeningPort("5432/tcp")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, MigrateDatabase(ctx, conn))
	require.NoError(t, conn.Close(ctx))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := logharbour.NewLogger(&logharbour.LoggerContext{}, "requests-integration-test", io.Discard)

	store, err := NewStore(pool, logger, []byte("integration test master secret key!"))
	require.NoError(t, err)
	return store
}

func TestStoreInsertLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, Request{
		URL:     "http://example.test/webhook",
		Method:  "POST",
		Headers: map[string][]string{"Authorization": {"Bearer secret"}, "X-Trace-Id": {"abc"}},
		Payload: `{"hello":"world"}`,
	})
	require.NoError(t, err)

	rows, err := store.Load(ctx, []int64{id})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, StateReady, rows[0].State)
	require.Equal(t, `{"hello":"world"}`, rows[0].Payload)
	require.Equal(t, "Bearer secret", rows[0].Headers["Authorization"][0])
	require.Equal(t, "abc", rows[0].Headers["X-Trace-Id"][0])
}

func TestStoreClaimReadyBatchSkipsLockedRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := store.Insert(ctx, Request{URL: "http://example.test", Method: "GET"})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	first, err := store.ClaimReadyBatch(ctx, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := store.ClaimReadyBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, second, 2, "the three already-claimed rows must not be reclaimed")

	var all []int64
	all = append(all, first...)
	all = append(all, second...)
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	require.Equal(t, ids, all)
}

// TestStoreMultiWorkerClaimIsExclusive is the K-workers-one-store
// property (invariant I5): N concurrent claimers against the same Store
// never observe the same row twice.
func TestStoreMultiWorkerClaimIsExclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const nRows = 40
	for i := 0; i < nRows; i++ {
		_, err := store.Insert(ctx, Request{URL: "http://example.test", Method: "GET"})
		require.NoError(t, err)
	}

	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				claimed, err := store.ClaimReadyBatch(ctx, 5)
				require.NoError(t, err)
				if len(claimed) == 0 {
					return
				}
				mu.Lock()
				for _, id := range claimed {
					require.False(t, seen[id], "row %d claimed twice", id)
					seen[id] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, nRows)
}

func TestStoreCompleteTransitionsToTerminal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, Request{URL: "http://example.test", Method: "GET"})
	require.NoError(t, err)
	_, err = store.ClaimReadyBatch(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, store.Complete(ctx, id, AttemptInfo{WallMs: 12.5, CPUMs: 1.2}))

	rows, err := store.Load(ctx, []int64{id})
	require.NoError(t, err)
	require.Equal(t, StateCompleted, rows[0].State)
	require.Nil(t, rows[0].LockedAt, "Complete must clear the claim lock")
}

func TestStorePromoteWaitingToReadyIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, Request{URL: "http://example.test", Method: "GET"})
	require.NoError(t, err)
	_, err = store.ClaimReadyBatch(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, store.Defer(ctx, id, time.Now().Add(-time.Second), 1, AttemptInfo{}))

	n, err := store.PromoteWaitingToReady(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// Running again immediately must promote nothing further (L3: running
	// the sweep twice behaves like running it once).
	n, err = store.PromoteWaitingToReady(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	rows, err := store.Load(ctx, []int64{id})
	require.NoError(t, err)
	require.Equal(t, StateReady, rows[0].State)
}

func TestStoreAbandonRejectsTerminalRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, Request{URL: "http://example.test", Method: "GET"})
	require.NoError(t, err)
	_, err = store.ClaimReadyBatch(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, id, AttemptInfo{}))

	err = store.Abandon(ctx, id)
	require.ErrorIs(t, err, ErrRowTerminal)
}

func TestStoreUnlockStuckOnlyAffectsPendingRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, Request{URL: "http://example.test", Method: "GET"})
	require.NoError(t, err)

	// Not yet claimed — still ready, not pending.
	err = store.UnlockStuck(ctx, id)
	require.ErrorIs(t, err, ErrRowNotPending)

	_, err = store.ClaimReadyBatch(ctx, 10)
	require.NoError(t, err)

	require.NoError(t, store.UnlockStuck(ctx, id))
	rows, err := store.Load(ctx, []int64{id})
	require.NoError(t, err)
	require.Equal(t, StateReady, rows[0].State)
	require.Nil(t, rows[0].LockedAt)
}

func TestStoreAppendLogRecordsAttempt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, Request{URL: "http://example.test", Method: "GET"})
	require.NoError(t, err)

	require.NoError(t, store.AppendLog(ctx, id, uuid.New(), transport.Outcome{Code: 503}))
}
