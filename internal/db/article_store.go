package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

func (s *Store) ArticleExists(ctx context.Context, articleID int64) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM "Articles" WHERE "id" = ?`, articleID).Scan(&one)
	if IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check article %d: %w", articleID, err)
	}
	return true, nil
}

// ExistingArticleIDs returns the subset of ids present in Articles.
func (s *Store) ExistingArticleIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	existing := make(map[int64]struct{}, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	sel := builder.Select(`"id"`).From(`"Articles"`).Where(sq.Eq{`"id"`: ids})
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article id filter: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter article ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan article id: %w", err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article ids: %w", err)
	}
	return existing, nil
}

// ApprovedArticleIDs returns every ArticleApproveds.articleId in id order.
func (s *Store) ApprovedArticleIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT "articleId" FROM "ArticleApproveds" ORDER BY "articleId"`)
	if err != nil {
		return nil, fmt.Errorf("query approved article ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan approved article id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approved article ids: %w", err)
	}
	return ids, nil
}
