// Package climate fetches long-term monthly climate from the NASA POWER
// monthly point API.
package climate

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

	"github.com/couchcryptid/agromind-service/internal/domain"
	"github.com/couchcryptid/agromind-service/internal/observability"
)

const (
	source = "climate"

	paramTemperature   = "T2M"
	paramDewpoint      = "T2MDEW"
	paramPrecipitation = "PRECTOTCORR"

	defaultFillValue = -999.0
)

// Client implements domain.ClimateSource using NASA POWER.
type Client struct {
	httpClient *http.Client
	baseURL    string
	startYear  int
	endYear    int
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a NASA POWER client averaging the years [startYear, endYear].
func NewClient(baseURL string, startYear, endYear int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		startYear: startYear,
		endYear:   endYear,
		metrics:   metrics,
		logger:    logger,
	}
}

// Climate returns the recency-weighted climate of the given month (1..12) at
// coord. A window without a single usable year yields domain.ErrNoData.
func (c *Client) Climate(ctx context.Context, coord domain.Coordinate, month int) (domain.ClimateReading, error) {
	if month < 1 || month > 12 {
		return domain.ClimateReading{}, fmt.Errorf("%w: month must be within [1, 12], got %d", domain.ErrInvalidRequest, month)
	}
	params := url.Values{
		"parameters": {paramTemperature + "," + paramDewpoint + "," + paramPrecipitation},
		"community":  {"AG"},
		"latitude":   {strconv.FormatFloat(coord.Lat, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(coord.Lon, 'f', -1, 64)},
		"start":      {strconv.Itoa(c.startYear)},
		"end":        {strconv.Itoa(c.endYear)},
		"format":     {"JSON"},
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		return domain.ClimateReading{Month: month}, err
	}

	reading := resp.weighted(month, c.startYear, c.endYear)
	if !reading.HasData() {
		c.metrics.UpstreamRequests.WithLabelValues(source, "empty").Inc()
		c.logger.Debug("no climate data for month", "lat", coord.Lat, "lon", coord.Lon, "month", month)
		return reading, domain.ErrNoData
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, "success").Inc()
	return reading, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("power request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("power API error: status %d: %s", resp.StatusCode, body)
	}

	var powerResp response
	if err := json.NewDecoder(resp.Body).Decode(&powerResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &powerResp, nil
}

// NASA POWER API response types.

type response struct {
	Header struct {
		FillValue *float64 `json:"fill_value"`
	} `json:"header"`
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

func (r *response) fill() float64 {
	if r.Header.FillValue != nil {
		return *r.Header.FillValue
	}
	return defaultFillValue
}

// value returns the parameter's value for the year and month, if present.
func (r *response) value(param string, year, month int) (float64, bool) {
	series, ok := r.Properties.Parameter[param]
	if !ok {
		return 0, false
	}
	v, ok := series[fmt.Sprintf("%04d%02d", year, month)]
	if !ok || v == r.fill() || v == defaultFillValue {
		return 0, false
	}
	return v, true
}

// weighted averages the month across the window, later years weighing more.
// Temperature and dewpoint count only in years where both are present.
func (r *response) weighted(month, startYear, endYear int) domain.ClimateReading {
	reading := domain.ClimateReading{Month: month}

	var tempSum, dewSum, weightSum float64
	var precipSum, precipWeight float64
	for year := startYear; year <= endYear; year++ {
		w := domain.RecencyWeight(year, startYear, endYear)

		t, okT := r.value(paramTemperature, year, month)
		d, okD := r.value(paramDewpoint, year, month)
		if okT && okD {
			tempSum += t * w
			dewSum += d * w
			weightSum += w
			reading.YearsUsed++
		}
		if p, ok := r.value(paramPrecipitation, year, month); ok {
			precipSum += p * w
			precipWeight += w
		}
	}

	if weightSum > 0 {
		temp := tempSum / weightSum
		dew := dewSum / weightSum
		reading.Temperature = domain.Ptr(domain.Round2(temp))
		reading.Dewpoint = domain.Ptr(domain.Round2(dew))
		reading.Humidity = domain.Ptr(domain.Round2(domain.DewpointHumidity(temp, dew)))
	}
	if precipWeight > 0 {
		reading.Precipitation = domain.Ptr(domain.Round2(precipSum / precipWeight))
	}
	return reading
}
