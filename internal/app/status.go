package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/costa-rica/NewsNexusDeduper01/internal/cli"
)

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
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

	report, err := rt.service.Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query status: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(report); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	overviewRows := [][]string{
		{"total_pairs", fmt.Sprintf("%d", report.TotalPairs)},
		{"unique_new_articles", fmt.Sprintf("%d", report.UniqueNewArticles)},
		{"unique_approved_articles", fmt.Sprintf("%d", report.UniqueApprovedArticles)},
		{"approved_articles", fmt.Sprintf("%d", report.ApprovedArticles)},
	}
	if err := writeTable([]string{"metric", "value"}, overviewRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render overview table: %v\n", err)
		return 1
	}

	fmt.Println()
	stageRows := make([][]string, 0, len(report.Stages))
	for _, stage := range report.Stages {
		stageRows = append(stageRows, []string{
			stage.Stage,
			fmt.Sprintf("%d", stage.Completed),
			fmt.Sprintf("%d", stage.Pending),
			fmt.Sprintf("%d", stage.Matching),
			formatPercent(stage.CompletionPercent),
			formatFloatPtr(stage.AverageSimilarity),
		})
	}
	if err := writeTable([]string{"stage", "completed", "pending", "matching", "complete", "avg"}, stageRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render stage table: %v\n", err)
		return 1
	}
	return 0
}
