package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	analysis "github.com/avelinov/trendwatch/internal/domain/analysis"
	materials "github.com/avelinov/trendwatch/internal/domain/materials"
)

// maxErrorBodyBytes caps how much of a Qdrant error response ends up in an
// error message.
const maxErrorBodyBytes = 1024

// pointNamespace makes point IDs a pure function of the material URL, so
// re-importing a material overwrites its point instead of duplicating it.
var pointNamespace = uuid.MustParse("9a7d2c31-5b0e-4c3f-8a46-2f1d9be04c55")

// Client is a minimal REST client to Qdrant. It assumes cosine distance and
// creates the collection if missing. Implements the materials.VectorIndex
// and analysis.Searcher ports.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	http       *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		http:       &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if it does not exist. Qdrant
// answers 200 for an existing collection with the same schema.
func (c *Client) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dim)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	return c.doJSON(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), body, nil)
}

// Upsert writes material points with their payloads
func (c *Client) Upsert(ctx context.Context, items []materials.IndexedMaterial) error {
	if len(items) == 0 {
		return nil
	}
	points := make([]map[string]any, len(items))
	for i, item := range items {
		m := item.Material
		points[i] = map[string]any{
			"id":     uuid.NewSHA1(pointNamespace, []byte(m.URL)).String(),
			"vector": item.Vector,
			"payload": map[string]any{
				"url":         m.URL,
				"title":       m.Title,
				"text":        m.Text(),
				"category":    m.Category,
				"date":        m.Date,
				"source_type": m.SourceType,
			},
		}
	}
	body := map[string]any{"points": points}
	return c.doJSON(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection), body, nil)
}

// Search runs a filtered similarity search, ordered by descending score
func (c *Client) Search(ctx context.Context, vector []float32, q analysis.SearchQuery) ([]analysis.Document, error) {
	var must []map[string]any
	if q.Category != "" {
		must = append(must, map[string]any{"key": "category", "match": map[string]any{"value": q.Category}})
	}
	if q.AsOfDate != "" {
		must = append(must, map[string]any{"key": "date", "match": map[string]any{"value": q.AsOfDate}})
	}
	req := map[string]any{
		"vector":          vector,
		"limit":           q.Limit,
		"score_threshold": q.MinScore,
		"with_payload":    true,
	}
	if len(must) > 0 {
		req["filter"] = map[string]any{"must": must}
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := c.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection), req, &resp)
	if err != nil {
		return nil, err
	}

	docs := make([]analysis.Document, 0, len(resp.Result))
	for _, r := range resp.Result {
		d := analysis.Document{Score: r.Score, Category: q.Category}
		if v, ok := r.Payload["category"].(string); ok && v != "" {
			d.Category = v
		}
		if v, ok := r.Payload["url"].(string); ok {
			d.URL = v
		}
		if v, ok := r.Payload["title"].(string); ok {
			d.Title = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			d.Text = v
		}
		if d.URL == "" || d.Text == "" {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Ping checks the collection is reachable, for health checks
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet,
		fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection), nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, url, resp.StatusCode, snippet)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return nil
}
