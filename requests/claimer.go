package requests

import (
	"context"
	"fmt"
	"time"

	"github.com/nbj/request-insurance/requests/pg/requestsqlc"
)

// Duration thresholds at which a claim is logged, per spec §4.C — these
// exist to surface contention or a missing index on the Ready Predicate.
const (
	claimDurationInfo     = 30 * time.Second
	claimDurationWarn     = 60 * time.Second
	claimDurationCritical = 80 * time.Second
)

// ClaimReadyBatch implements the Batch Claimer (spec §4.C): within one
// transaction, SELECT up to limit rows matching the Ready Predicate
// ordered by (priority, id) with row-level write locks (skipping rows a
// concurrent claimer already holds), then UPDATE them to pending+locked.
// Deadlocks/serialization failures retry up to 5 times. A non-empty
// selection whose UPDATE affects zero rows raises ErrClaimFailed.
func (s *Store) ClaimReadyBatch(ctx context.Context, limit int32) ([]int64, error) {
	start := time.Now()
	var claimed []int64

	err := s.withTxRetry(ctx, 5, func(q requestsqlc.Querier) error {
		candidates, err := q.SelectReadyCandidates(ctx, limit)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			claimed = nil
			return nil
		}
		ids, err := q.ClaimRequests(ctx, candidates)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrClaimFailed
		}
		claimed = ids
		return nil
	})

	s.logClaimDuration(ctx, time.Since(start), len(claimed))

	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *Store) logClaimDuration(ctx context.Context, elapsed time.Duration, nClaimed int) {
	fields := map[string]any{
		"elapsedMs": elapsed.Milliseconds(),
		"nClaimed":  nClaimed,
	}
	switch {
	case elapsed >= claimDurationCritical:
		s.logger.Error(fmt.Errorf("claim took %s", elapsed)).LogActivity("claim duration exceeded critical threshold", fields)
	case elapsed >= claimDurationWarn:
		s.logger.Warn().LogActivity("claim duration exceeded warn threshold", fields)
	case elapsed >= claimDurationInfo:
		s.logger.Info().LogActivity("claim duration exceeded info threshold", fields)
	}
}
