package csvload

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

type stubArticleSource struct {
	existing map[int64]struct{}
}

func (s *stubArticleSource) ExistingArticleIDs(_ context.Context, ids []int64) (map[int64]struct{}, error) {
	found := make(map[int64]struct{})
	for _, id := range ids {
		if _, ok := s.existing[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "articles.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadArticleIDsDeduplicatesPreservingOrder(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "articleId\n3\n1\n3\n2\n1\n")
	loader := NewLoader(nil, zerolog.Nop())

	result, err := loader.LoadArticleIDs(context.Background(), path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(result.ValidIDs, []int64{3, 1, 2}) {
		t.Fatalf("unexpected ids: %v", result.ValidIDs)
	}
}

func TestLoadArticleIDsHandlesBOMAndExtraColumns(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "\uFEFFtitle,articleId\nfoo,10\nbar,11\n")
	loader := NewLoader(nil, zerolog.Nop())

	result, err := loader.LoadArticleIDs(context.Background(), path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(result.ValidIDs, []int64{10, 11}) {
		t.Fatalf("unexpected ids: %v", result.ValidIDs)
	}
}

func TestLoadArticleIDsSkipsBlankAndInvalidRows(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "articleId\n5\n\nnot-a-number\n 6 \n")
	loader := NewLoader(nil, zerolog.Nop())

	result, err := loader.LoadArticleIDs(context.Background(), path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(result.ValidIDs, []int64{5, 6}) {
		t.Fatalf("unexpected ids: %v", result.ValidIDs)
	}
	if result.SkippedRows != 1 {
		t.Fatalf("expected 1 skipped row, got %d", result.SkippedRows)
	}
}

func TestLoadArticleIDsMissingColumn(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "id,title\n1,foo\n")
	loader := NewLoader(nil, zerolog.Nop())

	if _, err := loader.LoadArticleIDs(context.Background(), path, false); err == nil {
		t.Fatalf("expected error for missing articleId column")
	}
}

func TestLoadArticleIDsValidatesAgainstArticles(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "articleId\n1\n2\n3\n")
	source := &stubArticleSource{existing: map[int64]struct{}{1: {}, 3: {}}}
	loader := NewLoader(source, zerolog.Nop())

	result, err := loader.LoadArticleIDs(context.Background(), path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(result.ValidIDs, []int64{1, 3}) {
		t.Fatalf("unexpected valid ids: %v", result.ValidIDs)
	}
	if !reflect.DeepEqual(result.InvalidIDs, []int64{2}) {
		t.Fatalf("unexpected invalid ids: %v", result.InvalidIDs)
	}
}

func TestLoadArticleIDsMissingFile(t *testing.T) {
	t.Parallel()

	loader := NewLoader(nil, zerolog.Nop())
	if _, err := loader.LoadArticleIDs(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), false); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
