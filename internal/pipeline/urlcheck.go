package pipeline

import (
	"context"
	"fmt"

	"github.com/costa-rica/NewsNexusDeduper01/internal/db"
	"github.com/costa-rica/NewsNexusDeduper01/internal/urlcanon"
)

// RunURLCheck scores every pending pair 1.0 or 0.0 on canonical-URL
// equality. A missing or uncanonicalizable URL on either side is a defined
// no-match, not an error. Force clears the column and then rescans every
// row via keyset pagination instead of draining the pending set.
func (s *Service) RunURLCheck(ctx context.Context, opts StageOptions) (StageResult, error) {
	batchSize := normalizeBatchSize(opts.BatchSize, DefaultBatchSize)
	logger := s.stageLogger(db.StageURLCheck)
	result := StageResult{Stage: db.StageURLCheck}

	var fetch fetchFunc
	if opts.Force {
		cleared, err := s.store.ResetStage(ctx, db.StageURLCheck)
		if err != nil {
			return result, fmt.Errorf("clear url scores: %w", err)
		}
		result.Cleared = cleared
		logger.Info().Int64("cleared", cleared).Msg("force mode: rescanning all pairs")

		var afterID int64
		fetch = func(ctx context.Context) ([]db.PendingPair, error) {
			pairs, err := s.store.FetchAllForURLStage(ctx, afterID, batchSize)
			if err != nil {
				return nil, err
			}
			if len(pairs) > 0 {
				afterID = pairs[len(pairs)-1].RatingID
			}
			return pairs, nil
		}
	} else {
		fetch = func(ctx context.Context) ([]db.PendingPair, error) {
			return s.store.FetchPendingForStage(ctx, db.StageURLCheck, batchSize)
		}
	}

	err := s.drain(ctx, logger, db.StageURLCheck, &result, fetch, scoreURLPair, isExactMatch)
	if err != nil {
		return result, err
	}

	logger.Info().
		Int64("processed", result.Processed).
		Int64("matches", result.Matches).
		Msg("url check finished")
	return result, nil
}

func scoreURLPair(pair db.PendingPair) (float64, error) {
	if pair.URLNew == nil || pair.URLApproved == nil {
		return 0.0, nil
	}
	if urlcanon.Match(*pair.URLNew, *pair.URLApproved) {
		return 1.0, nil
	}
	return 0.0, nil
}

func isExactMatch(score float64) bool {
	return score == 1.0
}
