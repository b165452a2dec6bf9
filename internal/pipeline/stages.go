package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/costa-rica/NewsNexusDeduper01/internal/db"
	"github.com/costa-rica/NewsNexusDeduper01/internal/embedding"
)

// StageOptions tunes one stage run.
type StageOptions struct {
	BatchSize int
	Force     bool
}

// StageResult summarizes one stage run.
type StageResult struct {
	Stage             db.Stage `json:"stage"`
	Processed         int64    `json:"processed"`
	Matches           int64    `json:"matches"`
	Errors            int64    `json:"errors"`
	Cleared           int64    `json:"cleared"`
	AverageSimilarity float64  `json:"averageSimilarity,omitempty"`
	CachedEmbeddings  int      `json:"cachedEmbeddings,omitempty"`
}

func (r StageResult) MatchRate() float64 {
	if r.Processed == 0 {
		return 0.0
	}
	return float64(r.Matches) / float64(r.Processed)
}

func normalizeBatchSize(size, fallback int) int {
	if size <= 0 {
		return fallback
	}
	return size
}

type fetchFunc func(ctx context.Context) ([]db.PendingPair, error)
type scoreFunc func(pair db.PendingPair) (float64, error)

// drain fetches batches until the well runs dry, scoring each row with
// per-row failure isolation and writing each batch in one transaction.
// Cancellation is honored between batches; a mid-batch cancel finishes the
// batch first.
func (s *Service) drain(
	ctx context.Context,
	logger zerolog.Logger,
	stage db.Stage,
	result *StageResult,
	fetch fetchFunc,
	score scoreFunc,
	isMatch func(float64) bool,
) error {
	stageLabel := string(stage)
	batchNum := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pairs, err := fetch(ctx)
		if err != nil {
			return fmt.Errorf("fetch %s batch: %w", stage, err)
		}
		if len(pairs) == 0 {
			return nil
		}
		batchNum++

		updates := make([]db.ScoreUpdate, 0, len(pairs))
		batchMatches := int64(0)
		for _, pair := range pairs {
			value, scoreErr := score(pair)
			if scoreErr != nil {
				// An unavailable embedding service fails the run, not the row.
				if errors.Is(scoreErr, embedding.ErrUnavailable) {
					return scoreErr
				}
				logger.Warn().
					Err(scoreErr).
					Int64("rating_id", pair.RatingID).
					Msg("pair scoring failed, writing 0.0")
				s.metrics.PairErrors.WithLabelValues(stageLabel).Inc()
				result.Errors++
				value = 0.0
			}
			if isMatch(value) {
				batchMatches++
				s.metrics.PairMatches.WithLabelValues(stageLabel).Inc()
			}
			updates = append(updates, db.ScoreUpdate{RatingID: pair.RatingID, Score: value})
		}

		if err := s.store.WriteScoresBatch(ctx, stage, updates); err != nil {
			return fmt.Errorf("write %s batch: %w", stage, err)
		}
		result.Processed += int64(len(pairs))
		result.Matches += batchMatches
		s.metrics.PairsProcessed.WithLabelValues(stageLabel).Add(float64(len(pairs)))

		logger.Info().
			Int("batch", batchNum).
			Int("pairs", len(pairs)).
			Int64("batch_matches", batchMatches).
			Int64("total_processed", result.Processed).
			Msg("batch written")
	}
}

func (s *Service) stageLogger(stage db.Stage) zerolog.Logger {
	return s.logger.With().
		Str("run_id", uuid.NewString()).
		Str("stage", string(stage)).
		Logger()
}
