package pipeline

import (
	"context"
	"fmt"

	"github.com/costa-rica/NewsNexusDeduper01/internal/db"
	"github.com/costa-rica/NewsNexusDeduper01/internal/embedding"
)

// DefaultEmbeddingBatchSize is smaller than the other stages because each
// uncached article costs a model call.
const DefaultEmbeddingBatchSize = 500

// HighSimilarityThreshold is the embedding score above which a pair counts
// as a likely duplicate in stats and metrics.
const HighSimilarityThreshold = 0.8

// RunEmbeddingSearch scores every pending pair with the cosine similarity
// of the two articles' embedding vectors, clamped to [0, 1]. Vectors are
// cached per article id in the engine, so an article embeds at most once
// per run. An unavailable service aborts the run with
// embedding.ErrUnavailable; pending rows stay NULL for the next attempt.
func (s *Service) RunEmbeddingSearch(ctx context.Context, engine *embedding.Engine, opts StageOptions) (StageResult, error) {
	result := StageResult{Stage: db.StageEmbeddingSearch}
	if !engine.Available() {
		return result, embedding.ErrUnavailable
	}

	batchSize := normalizeBatchSize(opts.BatchSize, DefaultEmbeddingBatchSize)
	logger := s.stageLogger(db.StageEmbeddingSearch)

	if opts.Force {
		cleared, err := s.store.ResetStage(ctx, db.StageEmbeddingSearch)
		if err != nil {
			return result, fmt.Errorf("clear embedding scores: %w", err)
		}
		result.Cleared = cleared
		logger.Info().Int64("cleared", cleared).Msg("force mode: embedding scores cleared")
	}

	fetch := func(ctx context.Context) ([]db.PendingPair, error) {
		return s.store.FetchPendingForStage(ctx, db.StageEmbeddingSearch, batchSize)
	}

	var similaritySum float64
	score := func(pair db.PendingPair) (float64, error) {
		value, err := s.scoreEmbeddingPair(ctx, engine, pair)
		if err != nil {
			return value, err
		}
		similaritySum += value
		s.metrics.EmbeddingCacheSize.Set(float64(engine.CacheSize()))
		return value, nil
	}

	err := s.drain(ctx, logger, db.StageEmbeddingSearch, &result, fetch, score, isHighSimilarity)

	result.CachedEmbeddings = engine.CacheSize()
	scored := result.Processed - result.Errors
	if scored > 0 {
		result.AverageSimilarity = similaritySum / float64(scored)
	}
	if err != nil {
		return result, err
	}

	logger.Info().
		Int64("processed", result.Processed).
		Int64("high_similarity", result.Matches).
		Float64("avg_similarity", result.AverageSimilarity).
		Int("cached_embeddings", result.CachedEmbeddings).
		Msg("embedding search finished")
	return result, nil
}

func (s *Service) scoreEmbeddingPair(ctx context.Context, engine *embedding.Engine, pair db.PendingPair) (float64, error) {
	if pair.HeadlineNew == nil && pair.TextNew == nil {
		return 0.0, fmt.Errorf("no report content for new article %d", pair.ArticleIDNew)
	}
	if pair.HeadlineApproved == nil && pair.TextApproved == nil {
		return 0.0, fmt.Errorf("no report content for approved article %d", pair.ArticleIDApproved)
	}

	vectorNew, err := engine.Vector(ctx, pair.ArticleIDNew, derefString(pair.HeadlineNew), derefString(pair.TextNew))
	if err != nil {
		return 0.0, err
	}
	vectorApproved, err := engine.Vector(ctx, pair.ArticleIDApproved, derefString(pair.HeadlineApproved), derefString(pair.TextApproved))
	if err != nil {
		return 0.0, err
	}
	return embedding.CosineSimilarity(vectorNew, vectorApproved), nil
}

func isHighSimilarity(score float64) bool {
	return score > HighSimilarityThreshold
}
