package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/costa-rica/NewsNexusDeduper01/internal/cli"
	"github.com/costa-rica/NewsNexusDeduper01/internal/config"
	"github.com/costa-rica/NewsNexusDeduper01/internal/db"
	"github.com/costa-rica/NewsNexusDeduper01/internal/logging"
	"github.com/costa-rica/NewsNexusDeduper01/internal/metrics"
	"github.com/costa-rica/NewsNexusDeduper01/internal/pipeline"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

// runtime bundles everything a command needs after bootstrap.
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *db.Pool
	store   *db.Store
	service *pipeline.Service
	metrics *metrics.Metrics
}

func (r *runtime) close() {
	if r != nil && r.pool != nil {
		_ = r.pool.Close()
	}
}

// commandContext cancels on SIGINT/SIGTERM and, when timeout > 0, on the
// deadline. Stage runs default to no deadline since large backlogs can take
// hours; cancellation lands between batches.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func bootstrap(ctx context.Context, envLoader *cli.EnvLoader) (*runtime, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := db.NewStore(pool)
	m := metrics.New(prometheus.DefaultRegisterer)
	service := pipeline.NewService(store, m, logger)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		store:   store,
		service: service,
		metrics: m,
	}, nil
}

func parseOutputFormat(raw, defaultFormat string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	switch format {
	case outputFormatTable, outputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("--format must be table or json")
	}
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}

func formatFloat(value float64) string {
	return fmt.Sprintf("%.3f", value)
}

func formatFloatPtr(value *float64) string {
	if value == nil {
		return ""
	}
	return formatFloat(*value)
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
