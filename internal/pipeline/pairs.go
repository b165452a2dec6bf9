package pipeline

import (
	"context"
	"fmt"

	"github.com/costa-rica/NewsNexusDeduper01/internal/db"
)

const insertBatchSize = 1000

// GenerateResult summarizes one pair-generation run.
type GenerateResult struct {
	CSVArticlesLoaded int   `json:"csvArticlesLoaded"`
	ApprovedArticles  int   `json:"approvedArticles"`
	NewPairs          int64 `json:"newPairs"`
	ExistingPairs     int64 `json:"existingPairs"`
	TotalPairs        int64 `json:"totalPairs"`
}

// GeneratePairs emits the cartesian product of newIDs x approved article ids
// with insert-if-absent semantics, so a re-run with the same inputs inserts
// nothing. All three score columns of a fresh pair start NULL.
func (s *Service) GeneratePairs(ctx context.Context, newIDs []int64, force bool) (GenerateResult, error) {
	result := GenerateResult{CSVArticlesLoaded: len(newIDs)}
	if len(newIDs) == 0 {
		s.logger.Info().Msg("no new article ids, nothing to pair")
		return result, nil
	}

	approvedIDs, err := s.store.ApprovedArticleIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch approved article ids: %w", err)
	}
	result.ApprovedArticles = len(approvedIDs)
	if len(approvedIDs) == 0 {
		s.logger.Info().Msg("no approved articles, nothing to pair")
		return result, nil
	}

	if !force {
		existing, err := s.store.CountExistingPairsForNewIDs(ctx, newIDs)
		if err != nil {
			return result, fmt.Errorf("count existing pairs: %w", err)
		}
		s.logger.Info().Int64("existing_pairs", existing).Msg("existing pairs among csv article ids")
	}

	totalPossible := int64(len(newIDs)) * int64(len(approvedIDs))
	s.logger.Info().
		Int("new_articles", len(newIDs)).
		Int("approved_articles", len(approvedIDs)).
		Int64("possible_pairs", totalPossible).
		Msg("generating article pairs")

	batch := make([]db.PairKey, 0, insertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, err := s.store.InsertPairsBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("insert pair batch: %w", err)
		}
		result.NewPairs += inserted
		batch = batch[:0]
		return nil
	}

	for _, newID := range newIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		for _, approvedID := range approvedIDs {
			batch = append(batch, db.PairKey{ArticleIDNew: newID, ArticleIDApproved: approvedID})
			if len(batch) == insertBatchSize {
				if err := flush(); err != nil {
					return result, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return result, err
	}

	result.ExistingPairs = totalPossible - result.NewPairs

	total, err := s.store.CountPairs(ctx)
	if err != nil {
		return result, fmt.Errorf("count pairs: %w", err)
	}
	result.TotalPairs = total

	s.logger.Info().
		Int64("new_pairs", result.NewPairs).
		Int64("existing_pairs", result.ExistingPairs).
		Int64("total_pairs", result.TotalPairs).
		Msg("pair generation finished")
	return result, nil
}
