package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/costa-rica/NewsNexusDeduper01/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "health does not accept positional arguments")
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

	if err := rt.pool.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Database ping failed: %v\n", err)
		return 1
	}

	pairs, err := rt.store.CountPairs(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Database query failed: %v\n", err)
		return 1
	}

	fmt.Printf("Database connection OK (%d pair rows)\n", pairs)
	return 0
}
