// Package weather looks up the current conditions at a collection site.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Reading is the snapshot attached to a collection event.
type Reading struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
	Code        int     `json:"weatherCode"`
	Description string  `json:"description"`
	Fallback    bool    `json:"fallback,omitempty"`
}

// Fallback is returned whenever the forecast service cannot be reached.
var Fallback = Reading{Temperature: 25, Humidity: 65, Code: 2, Description: "Partly cloudy", Fallback: true}

var descriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Describe maps a WMO weather code to its description.
func Describe(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "Unknown"
}

// Provider reports current conditions at a coordinate.
type Provider interface {
	Current(ctx context.Context, lat, lon float64) Reading
}

// Client queries an Open-Meteo compatible forecast endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type forecastResp struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

// Current never fails: any error is logged and replaced by Fallback.
func (c *Client) Current(ctx context.Context, lat, lon float64) Reading {
	r, err := c.fetch(ctx, lat, lon)
	if err != nil {
		c.logger.Warn("weather lookup failed, using fallback",
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return Fallback
	}
	return r
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (Reading, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,weather_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+q.Encode(), nil)
	if err != nil {
		return Reading{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("forecast call failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Reading{}, fmt.Errorf("forecast non-2xx: %s, body: %s", resp.Status, string(data))
	}

	var out forecastResp
	if err := json.Unmarshal(data, &out); err != nil {
		return Reading{}, fmt.Errorf("decode forecast: %w", err)
	}
	return Reading{
		Temperature: out.Current.Temperature,
		Humidity:    out.Current.Humidity,
		Code:        out.Current.WeatherCode,
		Description: Describe(out.Current.WeatherCode),
	}, nil
}
