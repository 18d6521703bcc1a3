package requests

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/nbj/request-insurance/transport"
)

// errorTickPenalty is the sleep applied after a cycle error, to avoid
// log flooding when storage is persistently unavailable (spec §4.B
// step 5).
const errorTickPenalty = 5 * time.Second

// requestStore is the subset of *Store the Worker Loop and Request
// Processor depend on. Declaring it as an interface (rather than taking
// *Store directly) lets unit tests exercise tick timing, shutdown, and
// outcome-application logic against a fake without a real Postgres —
// integration tests still exercise the concrete *Store end to end.
type requestStore interface {
	ClaimReadyBatch(ctx context.Context, limit int32) ([]int64, error)
	Load(ctx context.Context, ids []int64) ([]Request, error)
	Complete(ctx context.Context, id int64, attempt AttemptInfo) error
	Fail(ctx context.Context, id int64, retryCount int32, attempt AttemptInfo) error
	Defer(ctx context.Context, id int64, retryAt time.Time, retryCount int32, attempt AttemptInfo) error
	Pause(ctx context.Context, id int64, retryAt time.Time) error
	PromoteWaitingToReady(ctx context.Context) (int64, error)
	AppendLog(ctx context.Context, requestID int64, attemptID uuid.UUID, outcome transport.Outcome) error
}

var _ requestStore = (*Store)(nil)

// Worker runs the tick loop of spec §4.B: each tick claims a batch,
// dispatches it through the Request Processor, runs the Waiting Sweeper
// at most once per wall-clock second, and sleeps the remainder of the
// tick.
type Worker struct {
	store      requestStore
	transport  transport.Transport
	cfg        Config
	logger     *logharbour.Logger
	instanceID string
	sweeper    *sweepGate

	// reconnect, if set, is invoked at the start of every tick when
	// cfg.UseDBReconnect is true (spec §4.B step 1). NewWorker leaves it
	// nil and nothing outside this package can set it, so no per-tick
	// reconnect happens; *pgxpool.Pool manages its own connections.
	reconnect func(ctx context.Context) error
}

// NewWorker constructs a Worker. Returns an error for the impossible
// configurations spec §7 calls out as fatal at construction: invalid
// batch size, a nil Store, a nil Transport.
func NewWorker(store requestStore, t transport.Transport, logger *logharbour.Logger, cfg Config) (*Worker, error) {
	if store == nil {
		return nil, errors.New("requests: NewWorker: store must not be nil")
	}
	if t == nil {
		return nil, errors.New("requests: NewWorker: transport must not be nil")
	}
	if logger == nil {
		return nil, errors.New("requests: NewWorker: logger must not be nil")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("requests: NewWorker: batchSize must be positive, got %d", cfg.BatchSize)
	}

	id, err := newInstanceID()
	if err != nil {
		return nil, err
	}

	return &Worker{
		store:      store,
		transport:  t,
		cfg:        cfg,
		logger:     logger,
		instanceID: id,
		sweeper:    newSweepGate(time.Now()),
	}, nil
}

// newInstanceID generates the 8-character random per-instance log tag
// spec §4.B calls for, mirroring the teacher's per-JobManager
// instanceID field used to attribute log lines to a specific process.
func newInstanceID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("requests: generating instance id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Run is the tick loop. It blocks until ctx is cancelled or a SIGTERM/
// SIGQUIT-derived cancellation arrives (wired by the caller via
// signal.NotifyContext — see cmd/request-insurance-worker), and returns
// nil on clean shutdown. A cycle in progress always runs to completion;
// ctx is only consulted between ticks (spec §4.B "Termination").
func (w *Worker) Run(ctx context.Context) error {
	if !w.cfg.Enabled {
		w.logger.Info().LogActivity("worker disabled, not starting", map[string]any{"instanceId": w.instanceID})
		return nil
	}

	w.logger.Info().LogActivity("worker starting", map[string]any{
		"instanceId": w.instanceID,
		"batchSize":  w.cfg.BatchSize,
		"tick":       w.cfg.TickInterval.String(),
	})

	for {
		start := time.Now()

		if w.cfg.UseDBReconnect && w.reconnect != nil {
			if err := w.reconnect(context.Background()); err != nil {
				w.logger.Error(err).LogActivity("per-tick reconnect failed", map[string]any{"instanceId": w.instanceID})
			}
		}

		if err := w.cycle(); err != nil {
			w.logger.Error(err).LogActivity("cycle failed", map[string]any{"instanceId": w.instanceID})
			if sleptForShutdown(ctx, errorTickPenalty) {
				return nil
			}
			continue
		}

		elapsed := time.Since(start)
		remaining := w.cfg.TickInterval - elapsed
		if sleptForShutdown(ctx, remaining) {
			w.logger.Info().LogActivity("worker shutting down", map[string]any{"instanceId": w.instanceID})
			return nil
		}
	}
}

// sleptForShutdown sleeps for d (skipping non-positive durations) and
// reports whether ctx was cancelled while doing so.
func sleptForShutdown(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

// cycle runs one claim-and-process pass plus the gated Sweeper (spec
// §4.B step 2). Storage errors from the claim (other than
// ErrClaimFailed) or from loading the claimed rows propagate —
// ErrClaimFailed, sweep failures and per-row processor failures are
// logged and absorbed here so the tick otherwise completes normally.
func (w *Worker) cycle() error {
	ctx := context.Background()

	ids, err := w.store.ClaimReadyBatch(ctx, w.cfg.BatchSize)
	if err != nil {
		if errors.Is(err, ErrClaimFailed) {
			w.logger.Error(err).LogActivity("claim failed, aborting cycle", map[string]any{"instanceId": w.instanceID})
		} else {
			return err
		}
	} else if len(ids) > 0 {
		rows, err := w.store.Load(ctx, ids)
		if err != nil {
			return err
		}
		for _, row := range rows {
			w.processRow(row)
		}
	}

	if w.sweeper.tryEnter(time.Now()) {
		n, err := w.store.PromoteWaitingToReady(ctx)
		if err != nil {
			w.logger.Error(err).LogActivity("sweep failed", map[string]any{"instanceId": w.instanceID})
		} else if n > 0 {
			w.logger.Info().LogActivity("swept waiting rows back to ready", map[string]any{
				"instanceId": w.instanceID,
				"nPromoted":  n,
			})
		}
	}

	return nil
}
