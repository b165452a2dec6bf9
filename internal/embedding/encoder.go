package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	DefaultModelName      = "all-MiniLM-L6-v2"
	DefaultRequestTimeout = 45 * time.Second
)

// Encoder turns texts into embedding vectors, one vector per input text.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float64, error)
}

type embedRequest struct {
	Texts []string `json:"texts,omitempty"`
	Input []string `json:"input,omitempty"`
	Model string   `json:"model,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Data       []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// httpEncoder talks to an embedding HTTP service. The service either speaks
// the plain {"texts": ...} -> {"embeddings": ...} contract or, when the
// endpoint path ends in /v1/embeddings, the OpenAI-style variant.
type httpEncoder struct {
	endpoint  string
	modelName string
	client    *http.Client
}

func newHTTPEncoder(endpoint, modelName string, timeout time.Duration) *httpEncoder {
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultModelName
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &httpEncoder{
		endpoint:  normalizeEndpoint(endpoint),
		modelName: modelName,
		client:    &http.Client{Timeout: timeout},
	}
}

func (e *httpEncoder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := embedRequest{
		Texts: texts,
		Model: e.modelName,
	}
	if parsed, err := url.Parse(e.endpoint); err == nil && strings.HasSuffix(parsed.Path, "/v1/embeddings") {
		payload = embedRequest{
			Input: texts,
			Model: e.modelName,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed embedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	vectors := parsed.Embeddings
	if len(vectors) == 0 && len(parsed.Data) > 0 {
		sort.Slice(parsed.Data, func(i, j int) bool {
			return parsed.Data[i].Index < parsed.Data[j].Index
		})
		vectors = make([][]float64, 0, len(parsed.Data))
		for _, row := range parsed.Data {
			vectors = append(vectors, row.Embedding)
		}
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", len(texts), len(vectors))
	}
	return vectors, nil
}

func normalizeEndpoint(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/embed"
	}
	return parsed.String()
}
