package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
)

// Client implements domain.Predictor against the predictive risk service's
// HTTP endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a predictor client. The timeout bounds every call; the
// caller may impose a tighter deadline through the context.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// request is the body the predictive service expects.
type request struct {
	WindSpeed     float64  `json:"wind_speed"`
	WaveHeight    float64  `json:"wave_height"`
	Visibility    *float64 `json:"visibility,omitempty"`
	TideLevel     *float64 `json:"tide_level,omitempty"`
	Precipitation *float64 `json:"precipitation,omitempty"`
}

// Predict posts the observation and decodes the raw verdict. It does not
// validate the verdict; see domain.ParsePrediction.
func (c *Client) Predict(ctx context.Context, obs domain.Observation) (domain.Prediction, error) {
	body, err := json.Marshal(request{
		WindSpeed:     obs.WindSpeed,
		WaveHeight:    obs.WaveHeight,
		Visibility:    obs.Visibility,
		TideLevel:     obs.TideLevel,
		Precipitation: obs.Precipitation,
	})
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Prediction{}, fmt.Errorf("predictor error: status %d: %s", resp.StatusCode, msg)
	}

	var p domain.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return domain.Prediction{}, fmt.Errorf("decode response: %w", err)
	}
	c.logger.Debug("prediction received", "status_code", resp.StatusCode)
	return p, nil
}
