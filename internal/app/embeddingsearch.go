package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/costa-rica/NewsNexusDeduper01/internal/cli"
	"github.com/costa-rica/NewsNexusDeduper01/internal/config"
	"github.com/costa-rica/NewsNexusDeduper01/internal/embedding"
	"github.com/costa-rica/NewsNexusDeduper01/internal/pipeline"
)

func runEmbeddingSearch(args []string) int {
	fs := flag.NewFlagSet("embeddingsearch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 0, "Command timeout (0 = no deadline)")
	batchSize := fs.Int("batch-size", pipeline.DefaultEmbeddingBatchSize, "Pairs per batch")
	force := fs.Bool("force", false, "Clear embedding scores before draining")
	model := fs.String("model", "", "Embedding model name (defaults to EMBEDDING_MODEL_NAME)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "embeddingsearch does not accept positional arguments")
		return 2
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	rt, err := bootstrap(ctx, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.close()

	engine := newEmbeddingEngine(rt.cfg, *model)
	result, err := rt.service.RunEmbeddingSearch(ctx, engine, pipeline.StageOptions{
		BatchSize: *batchSize,
		Force:     *force,
	})
	if errors.Is(err, embedding.ErrUnavailable) {
		fmt.Fprintf(os.Stderr, "Embedding service unavailable: %v\n", err)
		fmt.Fprintln(os.Stderr, "Pending pairs stay unscored; set EMBEDDING_SERVICE_URL and re-run.")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding search failed after %d pairs: %v\n", result.Processed, err)
		return 1
	}

	rows := [][]string{
		{"processed_pairs", fmt.Sprintf("%d", result.Processed)},
		{"high_similarity_pairs", fmt.Sprintf("%d", result.Matches)},
		{"avg_similarity", formatFloat(result.AverageSimilarity)},
		{"errors", fmt.Sprintf("%d", result.Errors)},
		{"cached_embeddings", fmt.Sprintf("%d", result.CachedEmbeddings)},
	}
	if result.Cleared > 0 {
		rows = append(rows, []string{"cleared_scores", fmt.Sprintf("%d", result.Cleared)})
	}
	if err := writeTable([]string{"metric", "value"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

func newEmbeddingEngine(cfg *config.Config, modelOverride string) *embedding.Engine {
	modelName := strings.TrimSpace(modelOverride)
	if modelName == "" {
		modelName = cfg.EmbeddingModelName
	}
	return embedding.NewEngine(embedding.Options{
		Endpoint:   cfg.EmbeddingServiceURL,
		ModelName:  modelName,
		Dimensions: cfg.EmbeddingDimensions,
		Timeout:    cfg.EmbeddingTimeout(),
	})
}
