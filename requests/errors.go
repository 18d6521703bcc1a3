package requests

import "errors"

// ErrClaimFailed is raised by the Batch Claimer when the UPDATE half of a
// claim affects zero rows despite a non-empty SELECT (spec §4.C) — the
// claimer lost a race with a concurrent claimer and the caller should
// simply proceed to the next tick.
var ErrClaimFailed = errors.New("requests: claim failed, lost race for selected rows")

// ErrTransientStorage wraps a deadlock or connection-loss error from the
// store after the internal retry budget (5 retries after the first
// attempt, spec §4.A/§7) has been exhausted.
var ErrTransientStorage = errors.New("requests: transient storage error")

// ErrProcessorBug marks the recovered-panic / unexpected-error path of
// the Request Processor (spec §4.D step 5, §7 "ProcessorBug"). It never
// escapes Worker.Run; it is logged and the affected row is paused.
var ErrProcessorBug = errors.New("requests: processor bug")

// ErrRowTerminal is returned by Abandon when the target row is already in
// a terminal state (spec §4.D state machine: "must refuse rows whose
// state is already terminal").
var ErrRowTerminal = errors.New("requests: row already in a terminal state")

// ErrRowNotPending is returned by UnlockStuck when the target row is not
// currently in state pending.
var ErrRowNotPending = errors.New("requests: row is not pending")
