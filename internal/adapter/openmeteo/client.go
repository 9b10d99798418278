package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
)

// Source is recorded as the origin of every forecast-derived observation.
const Source = "open-meteo"

// currentTimeLayout is the format of current.time when timezone=GMT.
const currentTimeLayout = "2006-01-02T15:04"

// Client implements domain.Forecaster using the Open-Meteo weather and
// marine APIs. Both calls must succeed for a forecast to be returned.
type Client struct {
	forecastURL string
	marineURL   string
	httpClient  *http.Client
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates an Open-Meteo client.
func NewClient(forecastURL, marineURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		forecastURL: forecastURL,
		marineURL:   marineURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Forecast returns current conditions at lat/lon as a canonical Observation.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (domain.Observation, error) {
	obs, err := c.forecast(ctx, lat, lon)
	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return domain.Observation{}, err
	}
	c.metrics.ForecastRequests.WithLabelValues("success").Inc()
	return obs, nil
}

func (c *Client) forecast(ctx context.Context, lat, lon float64) (domain.Observation, error) {
	params := coordinateParams(lat, lon)
	params.Set("current", "wind_speed_10m,precipitation,visibility")
	params.Set("wind_speed_unit", "kmh")

	var weather weatherResponse
	if err := c.get(ctx, c.forecastURL, params, "forecast", &weather); err != nil {
		return domain.Observation{}, err
	}

	params = coordinateParams(lat, lon)
	params.Set("current", "wave_height")

	var marine marineResponse
	if err := c.get(ctx, c.marineURL, params, "marine", &marine); err != nil {
		return domain.Observation{}, err
	}

	reading := domain.RawReading{
		Source:         Source,
		Lat:            &lat,
		Lon:            &lon,
		WindSpeed:      weather.Current.WindSpeed,
		WindUnit:       "kmh",
		WaveHeight:     marine.Current.WaveHeight,
		Visibility:     weather.Current.Visibility,
		VisibilityUnit: "m",
		Precipitation:  weather.Current.Precipitation,
	}
	if t, err := time.Parse(currentTimeLayout, weather.Current.Time); err == nil {
		reading.RecordedAt = t.UTC().Format(time.RFC3339)
	}

	obs, err := domain.NormalizeReading(reading)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("open-meteo %.4f,%.4f: %w", lat, lon, err)
	}
	return obs, nil
}

func (c *Client) get(ctx context.Context, base string, params url.Values, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ForecastAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("open-meteo %s API error: status %d: %s", endpoint, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func coordinateParams(lat, lon float64) url.Values {
	return url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
		"timezone":  {"GMT"},
	}
}

// Open-Meteo response types. Any current value may be null.

type weatherResponse struct {
	Current struct {
		Time          string   `json:"time"`
		WindSpeed     *float64 `json:"wind_speed_10m"`
		Precipitation *float64 `json:"precipitation"`
		Visibility    *float64 `json:"visibility"` // metres
	} `json:"current"`
}

type marineResponse struct {
	Current struct {
		WaveHeight *float64 `json:"wave_height"`
	} `json:"current"`
}
