package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/remiges-tech/logharbour/logharbour"

	"github.com/nbj/request-insurance/transport"
)

// processRow implements the Request Processor for one claimed row (spec
// §4.D). It never returns an error to the caller: every failure mode —
// transport error, storage error, an unexpected panic — is caught,
// logged, and folded into a row mutation so the Worker Loop can move on
// to the next row in the batch.
func (w *Worker) processRow(row Request) {
	attemptID := uuid.New()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(fmt.Errorf("%w: panic: %v", ErrProcessorBug, r)).LogActivity("processor panic, pausing request", map[string]any{
				"requestId": row.ID,
				"attemptId": attemptID.String(),
			})
			if err := w.store.Pause(context.Background(), row.ID, time.Now().Add(w.cfg.PauseRetryDelay)); err != nil {
				w.logger.Error(err).LogActivity("failed to pause request after processor panic", map[string]any{"requestId": row.ID})
			}
		}
	}()

	sendCtx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	outcome, sendErr := w.transport.Send(sendCtx, transport.Request{
		Method:  row.Method,
		URL:     row.URL,
		Headers: row.Headers,
		Payload: row.Payload,
	}, w.cfg.Timeout)
	cancel()

	if sendErr != nil {
		// spec §6: "Any thrown error from the transport is caught and
		// mapped to Inconsistent."
		outcome = transport.Outcome{Code: -1}
	}

	kind := ClassifyCode(outcome.Code)

	logCtx := context.Background()
	if err := w.store.AppendLog(logCtx, row.ID, attemptID, outcome); err != nil {
		w.logger.Error(err).LogActivity("failed to append request log", map[string]any{"requestId": row.ID})
	}

	w.applyOutcome(logCtx, row, attemptID, outcome, kind)
}

// applyOutcome computes and persists the next state for row given the
// classified outcome of this attempt (spec §4.D step 4).
func (w *Worker) applyOutcome(ctx context.Context, row Request, attemptID uuid.UUID, outcome transport.Outcome, kind OutcomeKind) {
	attempt := AttemptInfo{CPUMs: outcome.CPUMs, WallMs: outcome.WallMs}
	now := time.Now()

	var (
		err     error
		toState State
		change  map[string]any
	)

	switch {
	case kind == OutcomeSuccessful:
		toState = StateCompleted
		err = w.store.Complete(ctx, row.ID, attempt)
		change = map[string]any{"retryCount": row.RetryCount}

	case kind == OutcomeClientError || (kind == OutcomeInconsistent && !row.RetryInconsistent):
		// Non-retryable: this attempt counts, so retry_count advances
		// even though the row is terminal (end-to-end scenarios 2/6).
		toState = StateFailed
		newCount := row.RetryCount + 1
		err = w.store.Fail(ctx, row.ID, newCount, attempt)
		change = map[string]any{"retryCount": newCount}

	default:
		newCount := row.RetryCount + 1
		if row.RetryCount >= w.cfg.MaxRetries {
			// Exhausted: the count stays at its prior value — this
			// final attempt merely discovers the ceiling rather than
			// scheduling a retry that will never run (end-to-end
			// scenario 4 anchors retry_count at its pre-exhaustion
			// value on the terminal failed row).
			toState = StateFailed
			err = w.store.Fail(ctx, row.ID, row.RetryCount, attempt)
			change = map[string]any{"retryCount": row.RetryCount, "exhausted": true}
		} else {
			toState = StateWaiting
			retryAt := computeRetryAt(now, w.cfg.BaseRetryDelay, row.RetryFactor, row.RetryCount, w.cfg.RetryCeiling)
			err = w.store.Defer(ctx, row.ID, retryAt, newCount, attempt)
			change = map[string]any{"retryCount": newCount, "retryAt": retryAt}
		}
	}

	if err != nil {
		w.logger.Error(err).LogActivity("failed to persist outcome", map[string]any{
			"requestId": row.ID,
			"outcome":   kind.String(),
		})
		return
	}

	w.logger.LogDataChange("request state transitioned", logharbour.ChangeInfo{
		Entity: "Request",
		Op:     "StateTransitioned",
		Changes: []logharbour.ChangeDetail{
			{"state", string(row.State), string(toState)},
		},
	})
	w.logger.Info().LogActivity("request processed", mergeFields(map[string]any{
		"requestId": row.ID,
		"attemptId": attemptID.String(),
		"outcome":   kind.String(),
		"toState":   string(toState),
	}, change))
}

func mergeFields(base, extra map[string]any) map[string]any {
	for k, v := range extra {
		base[k] = v
	}
	return base
}
