package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/costa-rica/NewsNexusDeduper01/internal/cli"
	"github.com/costa-rica/NewsNexusDeduper01/internal/csvload"
)

func runLoad(args []string) int {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 0, "Command timeout (0 = no deadline)")
	csvPath := fs.String("csv-path", "", "Path to the article-id CSV (defaults to PATH_TO_CSV)")
	force := fs.Bool("force", false, "Skip the existing-pair pre-count")
	skipValidation := fs.Bool("skip-validation", false, "Do not check csv ids against the Articles table")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "load does not accept positional arguments")
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

	path := strings.TrimSpace(*csvPath)
	if path == "" {
		path = strings.TrimSpace(rt.cfg.PathToCSV)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no CSV path: pass --csv-path or set PATH_TO_CSV")
		return 2
	}

	loader := csvload.NewLoader(rt.store, rt.logger)
	loaded, err := loader.LoadArticleIDs(ctx, path, !*skipValidation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load CSV: %v\n", err)
		return 1
	}
	if len(loaded.InvalidIDs) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d csv ids not found in Articles table\n", len(loaded.InvalidIDs))
	}

	result, err := rt.service.GeneratePairs(ctx, loaded.ValidIDs, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate pairs: %v\n", err)
		return 1
	}

	rows := [][]string{
		{"csv_articles_loaded", fmt.Sprintf("%d", result.CSVArticlesLoaded)},
		{"invalid_csv_ids", fmt.Sprintf("%d", len(loaded.InvalidIDs))},
		{"approved_articles", fmt.Sprintf("%d", result.ApprovedArticles)},
		{"new_pairs", fmt.Sprintf("%d", result.NewPairs)},
		{"existing_pairs", fmt.Sprintf("%d", result.ExistingPairs)},
		{"total_pairs", fmt.Sprintf("%d", result.TotalPairs)},
	}
	if err := writeTable([]string{"metric", "value"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
