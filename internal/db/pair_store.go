package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/costa-rica/NewsNexusDeduper01/internal/globaltime"
)

// Question placeholders survive both drivers; gorm rewrites them for postgres.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// PairKey identifies one (new, approved) pair by article ids.
type PairKey struct {
	ArticleIDNew      int64
	ArticleIDApproved int64
}

// PendingPair is one rating row joined against the fields a stage scores.
// Pointer fields are NULL when the source row or field is missing.
type PendingPair struct {
	RatingID          int64
	ArticleIDNew      int64
	ArticleIDApproved int64

	URLNew      *string
	URLApproved *string

	HeadlineNew      *string
	TextNew          *string
	HeadlineApproved *string
	TextApproved     *string
}

// ScoreUpdate carries one computed score back to its rating row.
type ScoreUpdate struct {
	RatingID int64
	Score    float64
}

// StageStats summarizes one score column.
type StageStats struct {
	Stage     Stage
	Total     int64
	Completed int64
	Matching  int64
	Average   *float64
}

func (s StageStats) Pending() int64 {
	return s.Total - s.Completed
}

// Store runs all ArticleDuplicateRatings queries through the pool.
type Store struct {
	pool *Pool
}

func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// InsertPairsBatch inserts the given pairs, silently skipping ones that
// already exist. Returns the number of rows actually inserted.
func (s *Store) InsertPairsBatch(ctx context.Context, pairs []PairKey) (int64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	now := globaltime.UTC()
	ins := builder.Insert(`"ArticleDuplicateRatings"`).
		Columns(`"articleIdNew"`, `"articleIdApproved"`, `"createdAt"`, `"updatedAt"`)
	for _, pair := range pairs {
		ins = ins.Values(pair.ArticleIDNew, pair.ArticleIDApproved, now, now)
	}
	ins = ins.Suffix(`ON CONFLICT ("articleIdNew", "articleIdApproved") DO NOTHING`)

	query, args, err := ins.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build pair insert: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert pair batch: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FetchPendingForStage returns up to limit rows whose stage column is NULL,
// joined against the fields that stage needs. The URL stage reads Articles on
// both sides; the content and embedding stages read the approved report text.
func (s *Store) FetchPendingForStage(ctx context.Context, stage Stage, limit int) ([]PendingPair, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}

	var sel sq.SelectBuilder
	if stage == StageURLCheck {
		sel = urlStageSelect().Where(`adr."urlCheck" IS NULL`)
	} else {
		sel = textStageSelect().Where(fmt.Sprintf(`adr.%s IS NULL`, stage.Column()))
	}
	sel = sel.OrderBy(`adr."id"`).Limit(uint64(limit))

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}
	return s.scanPairs(ctx, stage, query, args)
}

// FetchAllForURLStage pages over every rating row regardless of its current
// urlCheck value. Used by the URL stage's forced full rescan.
func (s *Store) FetchAllForURLStage(ctx context.Context, afterID int64, limit int) ([]PendingPair, error) {
	sel := urlStageSelect().
		Where(`adr."id" > ?`, afterID).
		OrderBy(`adr."id"`).
		Limit(uint64(limit))

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rescan query: %w", err)
	}
	return s.scanPairs(ctx, StageURLCheck, query, args)
}

func urlStageSelect() sq.SelectBuilder {
	return builder.Select(
		`adr."id"`, `adr."articleIdNew"`, `adr."articleIdApproved"`,
		`a1."url"`, `a2."url"`,
	).
		From(`"ArticleDuplicateRatings" adr`).
		LeftJoin(`"Articles" a1 ON a1."id" = adr."articleIdNew"`).
		LeftJoin(`"Articles" a2 ON a2."id" = adr."articleIdApproved"`)
}

func textStageSelect() sq.SelectBuilder {
	return builder.Select(
		`adr."id"`, `adr."articleIdNew"`, `adr."articleIdApproved"`,
		`aa1."headlineForPdfReport"`, `aa1."textForPdfReport"`,
		`aa2."headlineForPdfReport"`, `aa2."textForPdfReport"`,
	).
		From(`"ArticleDuplicateRatings" adr`).
		LeftJoin(`"ArticleApproveds" aa1 ON aa1."articleId" = adr."articleIdNew"`).
		LeftJoin(`"ArticleApproveds" aa2 ON aa2."articleId" = adr."articleIdApproved"`)
}

func (s *Store) scanPairs(ctx context.Context, stage Stage, query string, args []any) ([]PendingPair, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s pairs: %w", stage, err)
	}
	defer rows.Close()

	var pairs []PendingPair
	for rows.Next() {
		var pair PendingPair
		if stage == StageURLCheck {
			err = rows.Scan(&pair.RatingID, &pair.ArticleIDNew, &pair.ArticleIDApproved,
				&pair.URLNew, &pair.URLApproved)
		} else {
			err = rows.Scan(&pair.RatingID, &pair.ArticleIDNew, &pair.ArticleIDApproved,
				&pair.HeadlineNew, &pair.TextNew,
				&pair.HeadlineApproved, &pair.TextApproved)
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s pair: %w", stage, err)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s pairs: %w", stage, err)
	}
	return pairs, nil
}

// WriteScoresBatch writes one batch of scores for a stage in a single
// transaction. Either every update lands or none do.
func (s *Store) WriteScoresBatch(ctx context.Context, stage Stage, updates []ScoreUpdate) error {
	if !stage.Valid() {
		return fmt.Errorf("unknown stage %q", stage)
	}
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin score batch: %w", err)
	}

	now := globaltime.UTC()
	query := fmt.Sprintf(
		`UPDATE "ArticleDuplicateRatings" SET %s = ?, "updatedAt" = ? WHERE "id" = ?`,
		stage.Column(),
	)
	for _, update := range updates {
		if _, err := tx.Exec(ctx, query, update.Score, now, update.RatingID); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("write %s score for rating %d: %w", stage, update.RatingID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit score batch: %w", err)
	}
	return nil
}

// ResetStage sets the stage column back to NULL for every scored row and
// returns how many rows were cleared.
func (s *Store) ResetStage(ctx context.Context, stage Stage) (int64, error) {
	if !stage.Valid() {
		return 0, fmt.Errorf("unknown stage %q", stage)
	}

	col := stage.Column()
	query := fmt.Sprintf(
		`UPDATE "ArticleDuplicateRatings" SET %s = NULL, "updatedAt" = ? WHERE %s IS NOT NULL`,
		col, col,
	)
	tag, err := s.pool.Exec(ctx, query, globaltime.UTC())
	if err != nil {
		return 0, fmt.Errorf("reset %s: %w", stage, err)
	}
	return tag.RowsAffected(), nil
}

// StageStats reports total, completed and matching counts for one stage.
// Matching means score == 1.0 except for the embedding stage, which counts
// scores above its 0.8 high-similarity threshold and also averages them.
func (s *Store) StageStats(ctx context.Context, stage Stage) (StageStats, error) {
	if !stage.Valid() {
		return StageStats{}, fmt.Errorf("unknown stage %q", stage)
	}

	col := stage.Column()
	matchCond := fmt.Sprintf(`%s = 1.0`, col)
	if stage == StageEmbeddingSearch {
		matchCond = fmt.Sprintf(`%s > 0.8`, col)
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COUNT(%s),
		       COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0),
		       AVG(%s)
		FROM "ArticleDuplicateRatings"`,
		col, matchCond, col,
	)

	stats := StageStats{Stage: stage}
	var avg sql.NullFloat64
	err := s.pool.QueryRow(ctx, query).Scan(&stats.Total, &stats.Completed, &stats.Matching, &avg)
	if err != nil {
		return StageStats{}, fmt.Errorf("stage stats for %s: %w", stage, err)
	}
	if stage == StageEmbeddingSearch && avg.Valid {
		value := avg.Float64
		stats.Average = &value
	}
	return stats, nil
}

func (s *Store) CountPairs(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM "ArticleDuplicateRatings"`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pairs: %w", err)
	}
	return count, nil
}

// CountExistingPairsForNewIDs counts rating rows whose new-article id is in
// the given set. Reporting only; insertion stays insert-if-absent.
func (s *Store) CountExistingPairsForNewIDs(ctx context.Context, newIDs []int64) (int64, error) {
	if len(newIDs) == 0 {
		return 0, nil
	}

	sel := builder.Select(`COUNT(*)`).
		From(`"ArticleDuplicateRatings"`).
		Where(sq.Eq{`"articleIdNew"`: newIDs})
	query, args, err := sel.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build existing-pair count: %w", err)
	}

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count existing pairs: %w", err)
	}
	return count, nil
}

func (s *Store) UniqueNewArticles(ctx context.Context) (int64, error) {
	return s.countDistinct(ctx, `"articleIdNew"`)
}

func (s *Store) UniqueApprovedArticles(ctx context.Context) (int64, error) {
	return s.countDistinct(ctx, `"articleIdApproved"`)
}

func (s *Store) countDistinct(ctx context.Context, column string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT %s) FROM "ArticleDuplicateRatings"`, column)
	var count int64
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct %s: %w", column, err)
	}
	return count, nil
}

// ClearAllPairs deletes every rating row and returns the number deleted.
func (s *Store) ClearAllPairs(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM "ArticleDuplicateRatings"`)
	if err != nil {
		return 0, fmt.Errorf("clear pairs: %w", err)
	}
	return tag.RowsAffected(), nil
}
