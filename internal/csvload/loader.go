// Package csvload reads the article-id CSV export that seeds a dedup run.
package csvload

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ArticleSource answers which of the given ids exist in Articles.
type ArticleSource interface {
	ExistingArticleIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
}

// Result summarizes one CSV load.
type Result struct {
	ValidIDs    []int64
	InvalidIDs  []int64
	SkippedRows int
}

type Loader struct {
	source ArticleSource
	logger zerolog.Logger
}

func NewLoader(source ArticleSource, logger zerolog.Logger) *Loader {
	return &Loader{
		source: source,
		logger: logger,
	}
}

// LoadArticleIDs reads a CSV with an articleId column, skipping blank rows,
// warning on non-integer ids and de-duplicating while preserving order. With
// validate set, ids absent from Articles move to InvalidIDs instead of
// failing the load.
func (l *Loader) LoadArticleIDs(ctx context.Context, path string, validate bool) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open csv file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}

	idColumn := -1
	for i, field := range header {
		// The export sometimes starts with a UTF-8 BOM.
		field = strings.TrimSpace(strings.TrimPrefix(field, "\uFEFF"))
		if field == "articleId" {
			idColumn = i
			break
		}
	}
	if idColumn < 0 {
		return Result{}, fmt.Errorf("csv file must have an articleId column, found: %v", header)
	}

	var result Result
	seen := make(map[int64]struct{})
	rowNum := 1
	for {
		rowNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read csv row %d: %w", rowNum, err)
		}
		if idColumn >= len(record) {
			continue
		}

		raw := strings.TrimSpace(record[idColumn])
		if raw == "" {
			continue
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			l.logger.Warn().Int("row", rowNum).Str("value", raw).Msg("skipping invalid article id")
			result.SkippedRows++
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result.ValidIDs = append(result.ValidIDs, id)
	}

	l.logger.Info().Int("count", len(result.ValidIDs)).Str("path", path).Msg("loaded unique article ids from csv")

	if !validate || l.source == nil || len(result.ValidIDs) == 0 {
		return result, nil
	}

	existing, err := l.source.ExistingArticleIDs(ctx, result.ValidIDs)
	if err != nil {
		return Result{}, fmt.Errorf("validate article ids: %w", err)
	}

	valid := result.ValidIDs[:0]
	for _, id := range result.ValidIDs {
		if _, ok := existing[id]; ok {
			valid = append(valid, id)
			continue
		}
		l.logger.Warn().Int64("article_id", id).Msg("article id not found in Articles table")
		result.InvalidIDs = append(result.InvalidIDs, id)
	}
	result.ValidIDs = valid
	return result, nil
}
