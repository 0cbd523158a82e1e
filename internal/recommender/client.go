// Package recommender wraps the external seat recommender service. The
// service is a black box: its proposals carry no validity guarantee and
// must pass the engine's conflict filter before persistence.
package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Kedesh11/oka-transport-api/internal/dto"
	"github.com/Kedesh11/oka-transport-api/pkg/config"
)

// Client calls the recommender over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a recommender client from configuration.
func NewClient(cfg config.RecommenderConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ProposeAssignments posts the voyage snapshot and decodes the raw
// proposal list. Errors propagate to the caller unretried.
func (c *Client) ProposeAssignments(ctx context.Context, input dto.VoyageSnapshot) ([]dto.SeatProposal, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode voyage snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/seat-proposals", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build recommender request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call recommender: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("recommender returned status %d: %s", resp.StatusCode, string(body))
	}

	var proposals []dto.SeatProposal
	if err := json.NewDecoder(resp.Body).Decode(&proposals); err != nil {
		return nil, fmt.Errorf("decode recommender response: %w", err)
	}

	c.logger.Debug("recommender responded",
		zap.Int64("voyage_id", input.VoyageID),
		zap.Int("proposals", len(proposals)),
		zap.Duration("latency", time.Since(start)))
	return proposals, nil
}
