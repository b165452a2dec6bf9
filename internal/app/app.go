package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "load":
		return runLoad(args[1:])
	case "reset":
		return runReset(args[1:])
	case "status":
		return runStatus(args[1:])
	case "urlcheck":
		return runURLCheck(args[1:])
	case "contenthash":
		return runContentHash(args[1:])
	case "embeddingsearch":
		return runEmbeddingSearch(args[1:])
	case "process", "run-once":
		return runProcess(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newsnexus-deduper CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newsnexus-deduper <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health           Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  load             Load article ids from CSV and generate pairs")
	fmt.Fprintln(os.Stderr, "  reset            Delete every pair row (requires --confirm)")
	fmt.Fprintln(os.Stderr, "  status           Show pair counts and per-stage progress")
	fmt.Fprintln(os.Stderr, "  urlcheck         Score pending pairs on canonical-URL match")
	fmt.Fprintln(os.Stderr, "  contenthash      Score pending pairs on content-digest match")
	fmt.Fprintln(os.Stderr, "  embeddingsearch  Score pending pairs on embedding similarity")
	fmt.Fprintln(os.Stderr, "  process          Run urlcheck + contenthash + embeddingsearch")
	fmt.Fprintln(os.Stderr, "  run-once         Alias for process")
	fmt.Fprintln(os.Stderr, "  serve            Start the Echo status server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newsnexus-deduper <command> -h\" for command-specific flags.")
}
