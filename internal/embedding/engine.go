// Package embedding scores semantic similarity between articles through an
// external embedding service.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable means the embedding service cannot be used at all, as
// opposed to a single article failing to embed.
var ErrUnavailable = errors.New("embedding service unavailable")

const probeText = "dimension probe"

// Options configures an Engine.
type Options struct {
	Endpoint   string
	ModelName  string
	Dimensions int
	Timeout    time.Duration
}

// Engine caches one embedding vector per article id for the lifetime of a
// run, so each article hits the model at most once no matter how many pairs
// it appears in. Construction is cheap; the service is first contacted on
// first use with a probe that records the model's true dimensionality.
type Engine struct {
	encoder    Encoder
	dimensions int

	mu       sync.Mutex
	cache    map[int64][]float64
	probed   bool
	probeErr error
}

// NewEngine builds an engine from configuration. An empty endpoint yields an
// engine whose Vector calls return ErrUnavailable.
func NewEngine(opts Options) *Engine {
	engine := &Engine{
		dimensions: opts.Dimensions,
		cache:      make(map[int64][]float64),
	}
	if strings.TrimSpace(opts.Endpoint) != "" {
		engine.encoder = newHTTPEncoder(opts.Endpoint, opts.ModelName, opts.Timeout)
	}
	return engine
}

// NewEngineWithEncoder wires a custom encoder. Tests use this to count model
// invocations.
func NewEngineWithEncoder(encoder Encoder, dimensions int) *Engine {
	return &Engine{
		encoder:    encoder,
		dimensions: dimensions,
		cache:      make(map[int64][]float64),
	}
}

// Available reports whether an encoder is configured. It does not contact
// the service.
func (e *Engine) Available() bool {
	return e != nil && e.encoder != nil
}

// Vector returns the embedding for one article, computing and caching it on
// first sight. Empty combined text yields a zero vector without a model
// call. A failed probe makes every subsequent call fail fast with
// ErrUnavailable.
func (e *Engine) Vector(ctx context.Context, articleID int64, headline, text string) ([]float64, error) {
	if e == nil || e.encoder == nil {
		return nil, ErrUnavailable
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if vector, ok := e.cache[articleID]; ok {
		return vector, nil
	}

	combined := CombineText(headline, text)
	if combined == "" {
		vector := make([]float64, e.currentDimensions())
		e.cache[articleID] = vector
		return vector, nil
	}

	if err := e.ensureProbed(ctx); err != nil {
		return nil, err
	}

	vectors, err := e.encoder.Encode(ctx, []string{combined})
	if err != nil {
		return nil, fmt.Errorf("embed article %d: %w", articleID, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed article %d: expected 1 vector, got %d", articleID, len(vectors))
	}

	e.cache[articleID] = vectors[0]
	return vectors[0], nil
}

// CacheSize returns the number of cached article vectors.
func (e *Engine) CacheSize() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

// ensureProbed contacts the service once to learn the model's real
// dimensionality. Callers hold e.mu.
func (e *Engine) ensureProbed(ctx context.Context) error {
	if e.probed {
		return e.probeErr
	}
	e.probed = true

	vectors, err := e.encoder.Encode(ctx, []string{probeText})
	if err != nil {
		e.probeErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		return e.probeErr
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		e.probeErr = fmt.Errorf("%w: probe returned no vector", ErrUnavailable)
		return e.probeErr
	}

	e.dimensions = len(vectors[0])
	return nil
}

func (e *Engine) currentDimensions() int {
	if e.dimensions > 0 {
		return e.dimensions
	}
	return 384
}

// CombineText joins headline and body for embedding. Both present gives
// "headline. text"; one present gives that one; neither gives "".
func CombineText(headline, text string) string {
	headline = strings.TrimSpace(headline)
	text = strings.TrimSpace(text)
	switch {
	case headline != "" && text != "":
		return headline + ". " + text
	case headline != "":
		return headline
	default:
		return text
	}
}
