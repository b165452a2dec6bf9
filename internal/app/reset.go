package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/costa-rica/NewsNexusDeduper01/internal/cli"
)

func runReset(args []string) int {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	confirm := fs.Bool("confirm", false, "Required; deletes every pair row")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reset does not accept positional arguments")
		return 2
	}
	if !*confirm {
		fmt.Fprintln(os.Stderr, "reset deletes every ArticleDuplicateRatings row; re-run with --confirm")
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

	deleted, err := rt.service.ResetAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reset pairs: %v\n", err)
		return 1
	}

	fmt.Printf("Deleted %d pair rows\n", deleted)
	return 0
}
