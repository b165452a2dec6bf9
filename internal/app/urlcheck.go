package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/costa-rica/NewsNexusDeduper01/internal/cli"
	"github.com/costa-rica/NewsNexusDeduper01/internal/pipeline"
)

func runURLCheck(args []string) int {
	fs := flag.NewFlagSet("urlcheck", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 0, "Command timeout (0 = no deadline)")
	batchSize := fs.Int("batch-size", pipeline.DefaultBatchSize, "Pairs per batch")
	force := fs.Bool("force", false, "Clear url scores and rescan every pair")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "urlcheck does not accept positional arguments")
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

	result, err := rt.service.RunURLCheck(ctx, pipeline.StageOptions{
		BatchSize: *batchSize,
		Force:     *force,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "URL check failed after %d pairs: %v\n", result.Processed, err)
		return 1
	}

	rows := [][]string{
		{"processed_pairs", fmt.Sprintf("%d", result.Processed)},
		{"url_matches_found", fmt.Sprintf("%d", result.Matches)},
		{"match_rate", formatPercent(result.MatchRate() * 100)},
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
