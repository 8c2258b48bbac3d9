// Package pinecone is a minimal REST client for the Pinecone vector
// index service: control-plane index lifecycle plus data-plane
// upsert/query/stats against the index's resolved host.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rag-agent/internal/domain"
)

const defaultControlURL = "https://api.pinecone.io"

// apiVersion is sent on every request; Pinecone rejects unversioned
// calls on newer projects.
const apiVersion = "2025-01"

// Client is an owned, explicitly constructed handle to one named
// Pinecone index. There is no hidden global: after a destructive
// overwrite the cached data-plane host is dropped and re-resolved on
// the next call.
type Client struct {
	controlURL string
	apiKey     string
	indexName  string
	cloud      string
	region     string

	host string

	client       *http.Client
	readyTimeout time.Duration
	log          *slog.Logger
}

// Config configures the Pinecone client. ControlURL is overridable
// for tests; Cloud/Region place newly created serverless indexes.
type Config struct {
	APIKey       string
	IndexName    string
	ControlURL   string
	Cloud        string
	Region       string
	Timeout      time.Duration
	ReadyTimeout time.Duration
	Logger       *slog.Logger
}

// NewClient validates the configuration and returns a client. No
// network traffic happens until the first operation.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.NewConfigError("PINECONE_API_KEY", "vector index API key is not set")
	}
	if cfg.IndexName == "" {
		return nil, domain.NewConfigError("PINECONE_INDEX_NAME", "target index name is not set")
	}
	if cfg.ControlURL == "" {
		cfg.ControlURL = defaultControlURL
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		controlURL:   strings.TrimRight(cfg.ControlURL, "/"),
		apiKey:       cfg.APIKey,
		indexName:    cfg.IndexName,
		cloud:        cfg.Cloud,
		region:       cfg.Region,
		client:       &http.Client{Timeout: cfg.Timeout},
		readyTimeout: cfg.ReadyTimeout,
		log:          cfg.Logger,
	}, nil
}

// IndexName returns the name of the index this client is bound to.
func (c *Client) IndexName() string { return c.indexName }

type IndexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// Describe fetches the index description from the control plane.
// Returns domain.ErrIndexNotFound when the index does not exist.
func (c *Client) Describe(ctx context.Context) (*IndexDescription, error) {
	var desc IndexDescription
	err := c.do(ctx, http.MethodGet, c.controlURL+"/indexes/"+c.indexName, nil, &desc, "describe index")
	if err != nil {
		return nil, err
	}
	return &desc, nil
}

// ListIndexes returns the names of all indexes the API key can see.
// Used by the diagnostics layer to verify authentication.
func (c *Client) ListIndexes(ctx context.Context) ([]string, error) {
	var out struct {
		Indexes []struct {
			Name string `json:"name"`
		} `json:"indexes"`
	}
	if err := c.do(ctx, http.MethodGet, c.controlURL+"/indexes", nil, &out, "list indexes"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Indexes))
	for _, idx := range out.Indexes {
		names = append(names, idx.Name)
	}
	return names, nil
}

// EnsureIndex creates the index if it does not exist and waits until
// a newly created index reports ready. Idempotent when the index
// already exists; existing configuration is assumed compatible.
func (c *Client) EnsureIndex(ctx context.Context, dimension int, metric string) error {
	if dimension <= 0 {
		return domain.NewConfigError("PINECONE_DIMENSION", fmt.Sprintf("invalid dimension %d", dimension))
	}
	if metric == "" {
		metric = "cosine"
	}
	desc, err := c.Describe(ctx)
	if err == nil {
		if !desc.Status.Ready {
			return c.waitReady(ctx)
		}
		c.host = desc.Host
		return nil
	}
	if !errorsIsNotFound(err) {
		return err
	}

	body := map[string]any{
		"name":      c.indexName,
		"dimension": dimension,
		"metric":    metric,
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  c.cloud,
				"region": c.region,
			},
		},
	}
	if err := c.do(ctx, http.MethodPost, c.controlURL+"/indexes", body, nil, "create index"); err != nil {
		return err
	}
	c.log.Info("created index", "index", c.indexName, "dimension", dimension, "metric", metric)
	// Creation is eventually consistent; block until the index
	// accepts traffic or the ready timeout elapses.
	return c.waitReady(ctx)
}

// DestroyIndex deletes the index and drops the cached host, since the
// old data-plane handle is stale once the index is gone.
func (c *Client) DestroyIndex(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, c.controlURL+"/indexes/"+c.indexName, nil, nil, "delete index"); err != nil {
		return err
	}
	c.host = ""
	c.log.Info("deleted index", "index", c.indexName)
	return nil
}

// Upsert writes a batch of records, overwriting any record sharing an
// ID. Batching for very large record sets is the caller's concern.
func (c *Client) Upsert(ctx context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	base, err := c.dataURL(ctx)
	if err != nil {
		return err
	}
	vectors := make([]map[string]any, len(records))
	for i, r := range records {
		vectors[i] = map[string]any{
			"id":       r.ID,
			"values":   r.Vector,
			"metadata": r.Metadata,
		}
	}
	return c.do(ctx, http.MethodPost, base+"/vectors/upsert", map[string]any{"vectors": vectors}, nil, "upsert")
}

// Delete removes records by ID. Missing IDs are not an error.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	base, err := c.dataURL(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, base+"/vectors/delete", map[string]any{"ids": ids}, nil, "delete")
}

// Query returns up to topK nearest records, optionally restricted by
// an exact-match metadata filter.
func (c *Client) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]domain.QueryResult, error) {
	if topK <= 0 {
		topK = 3
	}
	base, err := c.dataURL(ctx)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	if len(filter) > 0 {
		conds := make(map[string]any, len(filter))
		for k, v := range filter {
			conds[k] = map[string]any{"$eq": v}
		}
		body["filter"] = conds
	}
	var resp struct {
		Matches []struct {
			ID       string            `json:"id"`
			Score    float64           `json:"score"`
			Metadata map[string]string `json:"metadata"`
		} `json:"matches"`
	}
	if err := c.do(ctx, http.MethodPost, base+"/query", body, &resp, "query"); err != nil {
		return nil, err
	}
	results := make([]domain.QueryResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		results = append(results, domain.QueryResult{
			ID:         m.ID,
			Text:       m.Metadata[domain.MetaText],
			SourcePath: m.Metadata[domain.MetaSourcePath],
			Score:      m.Score,
			Metadata:   m.Metadata,
		})
	}
	return results, nil
}

// Stats reports the vector count and dimension of the index.
func (c *Client) Stats(ctx context.Context) (domain.IndexStats, error) {
	base, err := c.dataURL(ctx)
	if err != nil {
		return domain.IndexStats{}, err
	}
	var resp struct {
		TotalVectorCount int `json:"totalVectorCount"`
		Dimension        int `json:"dimension"`
	}
	if err := c.do(ctx, http.MethodPost, base+"/describe_index_stats", map[string]any{}, &resp, "index stats"); err != nil {
		return domain.IndexStats{}, err
	}
	return domain.IndexStats{VectorCount: resp.TotalVectorCount, Dimension: resp.Dimension}, nil
}

// dataURL resolves and caches the index's data-plane endpoint.
func (c *Client) dataURL(ctx context.Context) (string, error) {
	if c.host == "" {
		desc, err := c.Describe(ctx)
		if err != nil {
			return "", err
		}
		c.host = desc.Host
	}
	if strings.Contains(c.host, "://") {
		return strings.TrimRight(c.host, "/"), nil
	}
	return "https://" + c.host, nil
}

// waitReady polls the control plane until the index reports ready.
func (c *Client) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(c.readyTimeout)
	for {
		desc, err := c.Describe(ctx)
		if err == nil && desc.Status.Ready {
			c.host = desc.Host
			return nil
		}
		if err != nil && !errorsIsNotFound(err) && !domain.IsTransient(err) {
			return err
		}
		if time.Now().After(deadline) {
			return domain.NewTransientError("wait for index", fmt.Errorf("index %s not ready after %s", c.indexName, c.readyTimeout))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// do performs one JSON round trip and maps HTTP failures onto the
// shared error taxonomy.
func (c *Client) do(ctx context.Context, method, url string, body, out any, op string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.NewTransientError(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewConfigError("PINECONE_API_KEY", fmt.Sprintf("%s: service rejected the API key: %s", op, resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %q: %w", op, c.indexName, domain.ErrIndexNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.NewTransientError(op, fmt.Errorf("service returned %s", resp.Status))
	case resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s failed: %s: %s", op, resp.Status, strings.TrimSpace(string(snippet)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, domain.ErrIndexNotFound)
}
