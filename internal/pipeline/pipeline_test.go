package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/costa-rica/NewsNexusDeduper01/internal/db"
	"github.com/costa-rica/NewsNexusDeduper01/internal/embedding"
	"github.com/costa-rica/NewsNexusDeduper01/internal/metrics"
)

type ratingRow struct {
	id       int64
	newID    int64
	approved int64
	url      *float64
	content  *float64
	embed    *float64
}

type report struct {
	headline *string
	text     *string
}

// stubStore is an in-memory PairStore.
type stubStore struct {
	rows        []*ratingRow
	nextID      int64
	articleURLs map[int64]*string
	reports     map[int64]report
	approvedIDs []int64

	failNextWrites int
	insertCalls    int
}

func newStubStore() *stubStore {
	return &stubStore{
		articleURLs: make(map[int64]*string),
		reports:     make(map[int64]report),
	}
}

func (s *stubStore) addArticleURL(id int64, url string) {
	s.articleURLs[id] = &url
}

func (s *stubStore) addReport(id int64, headline, text string) {
	s.reports[id] = report{headline: &headline, text: &text}
}

func (s *stubStore) stageScore(row *ratingRow, stage db.Stage) **float64 {
	switch stage {
	case db.StageURLCheck:
		return &row.url
	case db.StageContentHash:
		return &row.content
	default:
		return &row.embed
	}
}

func (s *stubStore) InsertPairsBatch(_ context.Context, pairs []db.PairKey) (int64, error) {
	s.insertCalls++
	var inserted int64
	for _, pair := range pairs {
		exists := false
		for _, row := range s.rows {
			if row.newID == pair.ArticleIDNew && row.approved == pair.ArticleIDApproved {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		s.nextID++
		s.rows = append(s.rows, &ratingRow{
			id:       s.nextID,
			newID:    pair.ArticleIDNew,
			approved: pair.ArticleIDApproved,
		})
		inserted++
	}
	return inserted, nil
}

func (s *stubStore) FetchPendingForStage(_ context.Context, stage db.Stage, limit int) ([]db.PendingPair, error) {
	var pairs []db.PendingPair
	for _, row := range s.rows {
		if *s.stageScore(row, stage) != nil {
			continue
		}
		pairs = append(pairs, s.toPendingPair(row, stage))
		if len(pairs) == limit {
			break
		}
	}
	return pairs, nil
}

func (s *stubStore) FetchAllForURLStage(_ context.Context, afterID int64, limit int) ([]db.PendingPair, error) {
	var pairs []db.PendingPair
	for _, row := range s.rows {
		if row.id <= afterID {
			continue
		}
		pairs = append(pairs, s.toPendingPair(row, db.StageURLCheck))
		if len(pairs) == limit {
			break
		}
	}
	return pairs, nil
}

func (s *stubStore) toPendingPair(row *ratingRow, stage db.Stage) db.PendingPair {
	pair := db.PendingPair{
		RatingID:          row.id,
		ArticleIDNew:      row.newID,
		ArticleIDApproved: row.approved,
	}
	if stage == db.StageURLCheck {
		pair.URLNew = s.articleURLs[row.newID]
		pair.URLApproved = s.articleURLs[row.approved]
		return pair
	}
	if rep, ok := s.reports[row.newID]; ok {
		pair.HeadlineNew = rep.headline
		pair.TextNew = rep.text
	}
	if rep, ok := s.reports[row.approved]; ok {
		pair.HeadlineApproved = rep.headline
		pair.TextApproved = rep.text
	}
	return pair
}

func (s *stubStore) WriteScoresBatch(_ context.Context, stage db.Stage, updates []db.ScoreUpdate) error {
	if s.failNextWrites > 0 {
		s.failNextWrites--
		return fmt.Errorf("simulated write failure")
	}
	for _, update := range updates {
		for _, row := range s.rows {
			if row.id == update.RatingID {
				value := update.Score
				*s.stageScore(row, stage) = &value
				break
			}
		}
	}
	return nil
}

func (s *stubStore) ResetStage(_ context.Context, stage db.Stage) (int64, error) {
	var cleared int64
	for _, row := range s.rows {
		slot := s.stageScore(row, stage)
		if *slot != nil {
			*slot = nil
			cleared++
		}
	}
	return cleared, nil
}

func (s *stubStore) StageStats(_ context.Context, stage db.Stage) (db.StageStats, error) {
	stats := db.StageStats{Stage: stage}
	var sum float64
	for _, row := range s.rows {
		stats.Total++
		score := *s.stageScore(row, stage)
		if score == nil {
			continue
		}
		stats.Completed++
		sum += *score
		if stage == db.StageEmbeddingSearch {
			if *score > HighSimilarityThreshold {
				stats.Matching++
			}
		} else if *score == 1.0 {
			stats.Matching++
		}
	}
	if stage == db.StageEmbeddingSearch && stats.Completed > 0 {
		avg := sum / float64(stats.Completed)
		stats.Average = &avg
	}
	return stats, nil
}

func (s *stubStore) CountPairs(_ context.Context) (int64, error) {
	return int64(len(s.rows)), nil
}

func (s *stubStore) CountExistingPairsForNewIDs(_ context.Context, newIDs []int64) (int64, error) {
	ids := make(map[int64]struct{}, len(newIDs))
	for _, id := range newIDs {
		ids[id] = struct{}{}
	}
	var count int64
	for _, row := range s.rows {
		if _, ok := ids[row.newID]; ok {
			count++
		}
	}
	return count, nil
}

func (s *stubStore) UniqueNewArticles(_ context.Context) (int64, error) {
	seen := make(map[int64]struct{})
	for _, row := range s.rows {
		seen[row.newID] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (s *stubStore) UniqueApprovedArticles(_ context.Context) (int64, error) {
	seen := make(map[int64]struct{})
	for _, row := range s.rows {
		seen[row.approved] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (s *stubStore) ClearAllPairs(_ context.Context) (int64, error) {
	deleted := int64(len(s.rows))
	s.rows = nil
	return deleted, nil
}

func (s *stubStore) ApprovedArticleIDs(_ context.Context) ([]int64, error) {
	ids := append([]int64(nil), s.approvedIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func newTestService(store PairStore) *Service {
	return NewService(store, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
}

func TestGeneratePairsCartesianProduct(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101, 102, 103}
	service := newTestService(store)

	result, err := service.GeneratePairs(context.Background(), []int64{1, 2}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewPairs != 6 {
		t.Fatalf("expected 6 new pairs, got %d", result.NewPairs)
	}
	if result.TotalPairs != 6 {
		t.Fatalf("expected 6 total pairs, got %d", result.TotalPairs)
	}
	if result.ApprovedArticles != 3 || result.CSVArticlesLoaded != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	for _, row := range store.rows {
		if row.url != nil || row.content != nil || row.embed != nil {
			t.Fatalf("fresh pair must start with NULL scores")
		}
	}
}

func TestGeneratePairsIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101, 102}
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1, 2}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := service.GeneratePairs(ctx, []int64{1, 2}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.NewPairs != 0 {
		t.Fatalf("re-run must insert nothing, got %d", second.NewPairs)
	}
	if second.ExistingPairs != 4 {
		t.Fatalf("expected 4 existing pairs, got %d", second.ExistingPairs)
	}
	if second.TotalPairs != 4 {
		t.Fatalf("expected 4 total pairs, got %d", second.TotalPairs)
	}
}

func TestGeneratePairsEmptyInputs(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	service := newTestService(store)
	ctx := context.Background()

	result, err := service.GeneratePairs(ctx, nil, false)
	if err != nil || result.TotalPairs != 0 {
		t.Fatalf("expected zero-count result for no csv ids, got %+v err=%v", result, err)
	}

	result, err = service.GeneratePairs(ctx, []int64{1}, false)
	if err != nil || result.NewPairs != 0 {
		t.Fatalf("expected zero-count result for no approved articles, got %+v err=%v", result, err)
	}
}

func TestRunURLCheckScoresPendingPairs(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101, 102}
	store.addArticleURL(1, "https://www.example.com/story?utm_source=x")
	store.addArticleURL(101, "https://example.com/story")
	store.addArticleURL(102, "https://example.com/other")
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := service.RunURLCheck(ctx, StageOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected 2 processed pairs, got %d", result.Processed)
	}
	if result.Matches != 1 {
		t.Fatalf("expected 1 match, got %d", result.Matches)
	}

	for _, row := range store.rows {
		if row.url == nil {
			t.Fatalf("expected every pair scored")
		}
		want := 0.0
		if row.approved == 101 {
			want = 1.0
		}
		if *row.url != want {
			t.Fatalf("pair (%d,%d): score %v, want %v", row.newID, row.approved, *row.url, want)
		}
	}
}

func TestRunURLCheckMissingURLIsNoMatch(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101}
	store.addArticleURL(101, "https://example.com/story")
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := service.RunURLCheck(ctx, StageOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Errors != 0 {
		t.Fatalf("missing url is a defined no-match, not an error; got %d errors", result.Errors)
	}
	if *store.rows[0].url != 0.0 {
		t.Fatalf("expected 0.0 score, got %v", *store.rows[0].url)
	}
}

func TestRunURLCheckForceRescansAllRows(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101, 102}
	store.addArticleURL(1, "https://example.com/story")
	store.addArticleURL(101, "https://example.com/story")
	store.addArticleURL(102, "https://example.com/other")
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.RunURLCheck(ctx, StageOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second plain run drains nothing; everything is already scored.
	again, err := service.RunURLCheck(ctx, StageOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Processed != 0 {
		t.Fatalf("expected no pending work, got %d", again.Processed)
	}

	forced, err := service.RunURLCheck(ctx, StageOptions{Force: true, BatchSize: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forced.Cleared != 2 {
		t.Fatalf("expected 2 cleared scores, got %d", forced.Cleared)
	}
	if forced.Processed != 2 {
		t.Fatalf("force must rescan every row, got %d", forced.Processed)
	}
	if forced.Matches != 1 {
		t.Fatalf("expected 1 match after rescan, got %d", forced.Matches)
	}
}

func TestRunContentHashMatchesAndErrors(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101, 102}
	store.addReport(1, "Breaking: Fire!", "The building burned down.")
	store.addReport(101, "breaking fire", "the building burned down")
	// 102 has no report row at all: an input error for that pair.
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := service.RunContentHash(ctx, StageOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected 2 processed pairs, got %d", result.Processed)
	}
	if result.Matches != 1 {
		t.Fatalf("expected 1 match, got %d", result.Matches)
	}
	if result.Errors != 1 {
		t.Fatalf("expected 1 error for the missing report, got %d", result.Errors)
	}

	for _, row := range store.rows {
		if row.content == nil {
			t.Fatalf("failed pair must still be scored 0.0")
		}
		want := 0.0
		if row.approved == 101 {
			want = 1.0
		}
		if *row.content != want {
			t.Fatalf("pair (%d,%d): score %v, want %v", row.newID, row.approved, *row.content, want)
		}
	}
}

func TestDrainResumesAfterWriteFailure(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101}
	store.addReport(1, "headline", "text")
	store.addReport(101, "headline", "text")
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.failNextWrites = 1
	result, err := service.RunContentHash(ctx, StageOptions{})
	if err == nil {
		t.Fatalf("expected write failure to surface")
	}
	if result.Processed != 0 {
		t.Fatalf("failed batch must not count as processed, got %d", result.Processed)
	}
	if store.rows[0].content != nil {
		t.Fatalf("failed batch must leave the column NULL")
	}

	// Re-invocation picks the same rows back up.
	result, err = service.RunContentHash(ctx, StageOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 1 || result.Matches != 1 {
		t.Fatalf("expected resume to score the pair, got %+v", result)
	}
}

func TestRunContentHashForceRecomputesReproducibly(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101}
	store.addReport(1, "same", "content")
	store.addReport(101, "same", "content")
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.RunContentHash(ctx, StageOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := *store.rows[0].content

	forced, err := service.RunContentHash(ctx, StageOptions{Force: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if forced.Cleared != 1 || forced.Processed != 1 {
		t.Fatalf("unexpected force result: %+v", forced)
	}
	if *store.rows[0].content != first {
		t.Fatalf("force recompute must reproduce %v, got %v", first, *store.rows[0].content)
	}
}

type textVectorEncoder struct {
	calls int
}

func (e *textVectorEncoder) Encode(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		// Even-length texts share one axis, odd-length texts the other.
		if len(text)%2 == 0 {
			out = append(out, []float64{1, 0})
		} else {
			out = append(out, []float64{0, 1})
		}
	}
	return out, nil
}

func TestRunEmbeddingSearchScoresPairs(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101, 102}
	store.addReport(1, "aa", "aa")    // combined "aa. aa" (6 runes)
	store.addReport(101, "bb", "bb")  // same parity, same vector
	store.addReport(102, "ccc", "cc") // odd length, orthogonal vector
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	encoder := &textVectorEncoder{}
	engine := embedding.NewEngineWithEncoder(encoder, 2)
	result, err := service.RunEmbeddingSearch(ctx, engine, StageOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected 2 processed pairs, got %d", result.Processed)
	}
	if result.Matches != 1 {
		t.Fatalf("expected 1 high-similarity pair, got %d", result.Matches)
	}
	if result.CachedEmbeddings != 3 {
		t.Fatalf("expected 3 cached articles, got %d", result.CachedEmbeddings)
	}
	// Probe plus one call per distinct article.
	if encoder.calls != 4 {
		t.Fatalf("expected 4 encoder calls, got %d", encoder.calls)
	}

	for _, row := range store.rows {
		if row.embed == nil {
			t.Fatalf("expected every pair scored")
		}
		want := 0.0
		if row.approved == 101 {
			want = 1.0
		}
		if *row.embed != want {
			t.Fatalf("pair (%d,%d): score %v, want %v", row.newID, row.approved, *row.embed, want)
		}
	}
}

func TestRunEmbeddingSearchUnavailableEngine(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101}
	store.addReport(1, "a", "b")
	store.addReport(101, "a", "b")
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine := embedding.NewEngine(embedding.Options{Endpoint: ""})
	_, err := service.RunEmbeddingSearch(ctx, engine, StageOptions{})
	if !errors.Is(err, embedding.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if store.rows[0].embed != nil {
		t.Fatalf("unavailable service must leave scores NULL")
	}
}

func TestStatusAggregatesStages(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.approvedIDs = []int64{101, 102}
	store.addArticleURL(1, "https://example.com/a")
	store.addArticleURL(101, "https://example.com/a")
	store.addArticleURL(102, "https://example.com/b")
	service := newTestService(store)
	ctx := context.Background()

	if _, err := service.GeneratePairs(ctx, []int64{1}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.RunURLCheck(ctx, StageOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := service.Status(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.TotalPairs != 2 {
		t.Fatalf("expected 2 total pairs, got %d", status.TotalPairs)
	}
	if status.UniqueNewArticles != 1 || status.UniqueApprovedArticles != 2 {
		t.Fatalf("unexpected unique counts: %+v", status)
	}
	if len(status.Stages) != 3 {
		t.Fatalf("expected 3 stage entries, got %d", len(status.Stages))
	}

	urlStage := status.Stages[0]
	if urlStage.Stage != string(db.StageURLCheck) {
		t.Fatalf("expected urlCheck first, got %q", urlStage.Stage)
	}
	if urlStage.Completed != 2 || urlStage.Pending != 0 || urlStage.Matching != 1 {
		t.Fatalf("unexpected url stage status: %+v", urlStage)
	}
	if urlStage.CompletionPercent != 100.0 {
		t.Fatalf("expected 100%% completion, got %v", urlStage.CompletionPercent)
	}

	contentStage := status.Stages[1]
	if contentStage.Completed != 0 || contentStage.Pending != 2 {
		t.Fatalf("unexpected content stage status: %+v", contentStage)
	}
}
