package pipeline

import (
	"context"
	"fmt"

	"github.com/costa-rica/NewsNexusDeduper01/internal/db"
	"github.com/costa-rica/NewsNexusDeduper01/internal/texthash"
)

// RunContentHash scores every pending pair 1.0 or 0.0 on normalized
// content-digest equality of the approved report headline/text. Force
// clears the column first and then drains the pending set as usual.
func (s *Service) RunContentHash(ctx context.Context, opts StageOptions) (StageResult, error) {
	batchSize := normalizeBatchSize(opts.BatchSize, DefaultBatchSize)
	logger := s.stageLogger(db.StageContentHash)
	result := StageResult{Stage: db.StageContentHash}

	if opts.Force {
		cleared, err := s.store.ResetStage(ctx, db.StageContentHash)
		if err != nil {
			return result, fmt.Errorf("clear content scores: %w", err)
		}
		result.Cleared = cleared
		logger.Info().Int64("cleared", cleared).Msg("force mode: content scores cleared")
	}

	fetch := func(ctx context.Context) ([]db.PendingPair, error) {
		return s.store.FetchPendingForStage(ctx, db.StageContentHash, batchSize)
	}

	err := s.drain(ctx, logger, db.StageContentHash, &result, fetch, scoreContentPair, isExactMatch)
	if err != nil {
		return result, err
	}

	logger.Info().
		Int64("processed", result.Processed).
		Int64("matches", result.Matches).
		Int64("errors", result.Errors).
		Msg("content hash finished")
	return result, nil
}

func scoreContentPair(pair db.PendingPair) (float64, error) {
	if pair.HeadlineNew == nil && pair.TextNew == nil {
		return 0.0, fmt.Errorf("no report content for new article %d", pair.ArticleIDNew)
	}
	if pair.HeadlineApproved == nil && pair.TextApproved == nil {
		return 0.0, fmt.Errorf("no report content for approved article %d", pair.ArticleIDApproved)
	}

	hashNew := texthash.ContentHash(derefString(pair.HeadlineNew), derefString(pair.TextNew))
	hashApproved := texthash.ContentHash(derefString(pair.HeadlineApproved), derefString(pair.TextApproved))
	return texthash.Similarity(hashNew, hashApproved), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
