package pipeline

import (
	"context"
	"fmt"

	"github.com/costa-rica/NewsNexusDeduper01/internal/db"
)

// StageStatus reports progress of one score column.
type StageStatus struct {
	Stage             string   `json:"stage"`
	Total             int64    `json:"totalPairs"`
	Completed         int64    `json:"completed"`
	Pending           int64    `json:"pending"`
	Matching          int64    `json:"matching"`
	CompletionPercent float64  `json:"completionPercent"`
	AverageSimilarity *float64 `json:"averageSimilarity,omitempty"`
}

// StatusReport is the payload of the status command and GET /api/status.
type StatusReport struct {
	TotalPairs             int64         `json:"totalPairs"`
	UniqueNewArticles      int64         `json:"uniqueNewArticles"`
	UniqueApprovedArticles int64         `json:"uniqueApprovedArticles"`
	ApprovedArticles       int           `json:"approvedArticles"`
	Stages                 []StageStatus `json:"stages"`
}

// Status aggregates pair counts and per-stage progress.
func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	var report StatusReport

	total, err := s.store.CountPairs(ctx)
	if err != nil {
		return report, err
	}
	report.TotalPairs = total

	uniqueNew, err := s.store.UniqueNewArticles(ctx)
	if err != nil {
		return report, err
	}
	report.UniqueNewArticles = uniqueNew

	uniqueApproved, err := s.store.UniqueApprovedArticles(ctx)
	if err != nil {
		return report, err
	}
	report.UniqueApprovedArticles = uniqueApproved

	approvedIDs, err := s.store.ApprovedArticleIDs(ctx)
	if err != nil {
		return report, err
	}
	report.ApprovedArticles = len(approvedIDs)

	for _, stage := range db.Stages() {
		stats, err := s.store.StageStats(ctx, stage)
		if err != nil {
			return report, fmt.Errorf("stats for %s: %w", stage, err)
		}

		status := StageStatus{
			Stage:             string(stage),
			Total:             stats.Total,
			Completed:         stats.Completed,
			Pending:           stats.Pending(),
			Matching:          stats.Matching,
			AverageSimilarity: stats.Average,
		}
		if stats.Total > 0 {
			status.CompletionPercent = float64(stats.Completed) / float64(stats.Total) * 100
		}
		report.Stages = append(report.Stages, status)
	}

	return report, nil
}
