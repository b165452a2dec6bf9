// Package pipeline generates article pairs and drains the three scoring
// stages over them.
package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/costa-rica/NewsNexusDeduper01/internal/db"
	"github.com/costa-rica/NewsNexusDeduper01/internal/metrics"
)

const DefaultBatchSize = 1000

// PairStore is the persistence surface the pipeline runs against.
// *db.Store implements it; tests substitute stubs.
type PairStore interface {
	InsertPairsBatch(ctx context.Context, pairs []db.PairKey) (int64, error)
	FetchPendingForStage(ctx context.Context, stage db.Stage, limit int) ([]db.PendingPair, error)
	FetchAllForURLStage(ctx context.Context, afterID int64, limit int) ([]db.PendingPair, error)
	WriteScoresBatch(ctx context.Context, stage db.Stage, updates []db.ScoreUpdate) error
	ResetStage(ctx context.Context, stage db.Stage) (int64, error)
	StageStats(ctx context.Context, stage db.Stage) (db.StageStats, error)
	CountPairs(ctx context.Context) (int64, error)
	CountExistingPairsForNewIDs(ctx context.Context, newIDs []int64) (int64, error)
	UniqueNewArticles(ctx context.Context) (int64, error)
	UniqueApprovedArticles(ctx context.Context) (int64, error)
	ClearAllPairs(ctx context.Context) (int64, error)
	ApprovedArticleIDs(ctx context.Context) ([]int64, error)
}

type Service struct {
	store   PairStore
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(store PairStore, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// ResetAll deletes every pair row.
func (s *Service) ResetAll(ctx context.Context) (int64, error) {
	return s.store.ClearAllPairs(ctx)
}
