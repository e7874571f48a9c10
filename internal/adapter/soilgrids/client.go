// Package soilgrids fetches topsoil composition from the ISRIC SoilGrids v2.0
// properties API.
package soilgrids

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
	source = "soil"

	depthLabel = "0-5cm"
	statistic  = "mean"
	userAgent  = "agromind-service"
)

// Properties requested from SoilGrids.
var Properties = []string{"phh2o", "nitrogen", "clay", "sand", "silt"}

// Client implements domain.SoilSource using the SoilGrids REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a SoilGrids client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Soil returns the 0-5cm mean of each property at c, converted by the layer's
// d_factor. A point without any value yields domain.ErrNoData.
func (c *Client) Soil(ctx context.Context, coord domain.Coordinate) (domain.SoilReading, error) {
	params := url.Values{
		"lon":      {strconv.FormatFloat(coord.Lon, 'f', -1, 64)},
		"lat":      {strconv.FormatFloat(coord.Lat, 'f', -1, 64)},
		"property": Properties,
		"depth":    {depthLabel},
		"value":    {statistic},
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		return domain.SoilReading{SampledAt: coord}, err
	}

	reading := resp.reading(coord)
	if !reading.HasData() {
		c.metrics.UpstreamRequests.WithLabelValues(source, "empty").Inc()
		c.logger.Debug("no soil data at point", "lat", coord.Lat, "lon", coord.Lon)
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
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("soilgrids request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("soilgrids API error: status %d: %s", resp.StatusCode, body)
	}

	var sgResp response
	if err := json.NewDecoder(resp.Body).Decode(&sgResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &sgResp, nil
}

// SoilGrids API response types.

type response struct {
	Properties struct {
		Layers []layer `json:"layers"`
	} `json:"properties"`
}

type layer struct {
	Name        string `json:"name"`
	UnitMeasure struct {
		DFactor float64 `json:"d_factor"`
	} `json:"unit_measure"`
	Depths []depth `json:"depths"`
}

type depth struct {
	Label  string `json:"label"`
	Values struct {
		Mean *float64 `json:"mean"`
	} `json:"values"`
}

// value returns the converted topsoil mean, if the layer has one.
func (l layer) value() *float64 {
	for _, d := range l.Depths {
		if d.Label != depthLabel || d.Values.Mean == nil {
			continue
		}
		factor := l.UnitMeasure.DFactor
		if factor == 0 {
			factor = 1
		}
		return domain.Ptr(*d.Values.Mean / factor)
	}
	return nil
}

func (r *response) reading(coord domain.Coordinate) domain.SoilReading {
	reading := domain.SoilReading{SampledAt: coord}
	for _, l := range r.Properties.Layers {
		v := l.value()
		switch l.Name {
		case "phh2o":
			reading.PH = v
		case "nitrogen":
			reading.Nitrogen = v
		case "clay":
			reading.Clay = v
		case "sand":
			reading.Sand = v
		case "silt":
			reading.Silt = v
		}
	}
	return reading
}
