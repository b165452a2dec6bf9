package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/costa-rica/NewsNexusDeduper01/internal/cli"
	"github.com/costa-rica/NewsNexusDeduper01/internal/embedding"
	"github.com/costa-rica/NewsNexusDeduper01/internal/pipeline"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 0, "Command timeout (0 = no deadline)")
	force := fs.Bool("force", false, "Clear each stage's scores before scoring")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "process does not accept positional arguments")
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

	opts := pipeline.StageOptions{Force: *force}

	urlResult, err := rt.service.RunURLCheck(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "URL check failed after %d pairs: %v\n", urlResult.Processed, err)
		return 1
	}

	contentResult, err := rt.service.RunContentHash(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Content hash failed after %d pairs: %v\n", contentResult.Processed, err)
		return 1
	}

	engine := newEmbeddingEngine(rt.cfg, "")
	embeddingResult, err := rt.service.RunEmbeddingSearch(ctx, engine, opts)
	embeddingSkipped := false
	if errors.Is(err, embedding.ErrUnavailable) {
		// The other two signals are still useful without it.
		embeddingSkipped = true
		rt.logger.Warn().Err(err).Msg("embedding stage skipped: service unavailable")
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding search failed after %d pairs: %v\n", embeddingResult.Processed, err)
		return 1
	}

	rows := [][]string{
		{"urlCheck", fmt.Sprintf("%d", urlResult.Processed), fmt.Sprintf("%d", urlResult.Matches), fmt.Sprintf("%d", urlResult.Errors)},
		{"contentHash", fmt.Sprintf("%d", contentResult.Processed), fmt.Sprintf("%d", contentResult.Matches), fmt.Sprintf("%d", contentResult.Errors)},
	}
	if embeddingSkipped {
		rows = append(rows, []string{"embeddingSearch", "skipped", "", ""})
	} else {
		rows = append(rows, []string{"embeddingSearch", fmt.Sprintf("%d", embeddingResult.Processed), fmt.Sprintf("%d", embeddingResult.Matches), fmt.Sprintf("%d", embeddingResult.Errors)})
	}
	if err := writeTable([]string{"stage", "processed", "matches", "errors"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
