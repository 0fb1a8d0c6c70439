package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/amishardev/orbi-sub001/internal/apperr"
	"github.com/amishardev/orbi-sub001/internal/config"
)

// Provider turns text into a vector. The pipeline treats it as opaque;
// any unavailability degrades the semantic strategy instead of failing
// the whole computation.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client calls an OpenAI-compatible /embeddings endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	httpc   *http.Client
}

// NewClient builds a provider from config. Returns nil when no base URL
// is configured, which disables the semantic strategy.
func NewClient(cfg *config.Config) *Client {
	if cfg.Embedding.BaseURL == "" {
		return nil
	}
	timeout := cfg.Embedding.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Embedding.BaseURL, "/"),
		apiKey:  cfg.Embedding.APIKey,
		model:   cfg.Embedding.Model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w: %w", apperr.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("embed status %d (%s): %w", resp.StatusCode, string(snippet), apperr.ErrProviderUnavailable)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embed decode: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embed response empty: %w", apperr.ErrProviderUnavailable)
	}
	return parsed.Data[0].Embedding, nil
}

// Cosine computes cosine similarity, clamped at zero so dissimilar
// vectors never rank above the absent-signal baseline.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	res := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if res < 0 {
		return 0
	}
	return res
}
