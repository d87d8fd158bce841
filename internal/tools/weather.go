package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultGeocodeURL  = "https://nominatim.openstreetmap.org/search"
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	DefaultUserAgent   = "ai-ops-assistant"
)

var weatherConditions = map[int]string{
	0:  "Clear",
	1:  "Partly Cloudy",
	2:  "Cloudy",
	3:  "Overcast",
	45: "Foggy",
	61: "Rain",
	80: "Heavy Rain",
	95: "Thunderstorm",
}

// WeatherCondition maps an Open-Meteo weather code to a label.
func WeatherCondition(code int) string {
	if c, ok := weatherConditions[code]; ok {
		return c
	}
	return "Unknown"
}

// Coordinates is a geocoded position.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Forecast is the current weather at a position.
type Forecast struct {
	Temperature float64
	WeatherCode int
}

// GeoCache remembers geocoding results between calls.
type GeoCache interface {
	Lookup(ctx context.Context, city string) (Coordinates, bool, error)
	Store(ctx context.Context, city string, c Coordinates) error
}

type WeatherConfig struct {
	GeocodeURL  string
	ForecastURL string
	UserAgent   string
	Timeout     time.Duration
	// GeocodeRate is the allowed geocoder requests per second.
	GeocodeRate float64
}

type WeatherTool struct {
	client      *http.Client
	geocodeURL  string
	forecastURL string
	userAgent   string
	limiter     *rate.Limiter
	cache       GeoCache
}

// NewWeatherTool builds the weather capability. cache may be nil.
func NewWeatherTool(cfg WeatherConfig, cache GeoCache) *WeatherTool {
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = DefaultGeocodeURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.GeocodeRate > 0 {
		limit = rate.Limit(cfg.GeocodeRate)
	}

	return &WeatherTool{
		client:      &http.Client{Timeout: cfg.Timeout},
		geocodeURL:  cfg.GeocodeURL,
		forecastURL: cfg.ForecastURL,
		userAgent:   cfg.UserAgent,
		limiter:     rate.NewLimiter(limit, 1),
		cache:       cache,
	}
}

func (w *WeatherTool) ID() ToolID {
	return ToolWeather
}

func (w *WeatherTool) Description() string {
	return "Get the current weather for a city (Nominatim geocoding + Open-Meteo)."
}

func (w *WeatherTool) Extract(step string) string {
	return ExtractCity(step)
}

func (w *WeatherTool) Execute(ctx context.Context, city string) (string, error) {
	coords, err := w.Geocode(ctx, city)
	if err != nil {
		return "", fmt.Errorf("geocoding %s: %w", city, err)
	}

	fc, err := w.Forecast(ctx, coords)
	if err != nil {
		return "", fmt.Errorf("forecast for %s: %w", city, err)
	}

	return fmt.Sprintf("Weather in %s: %s°C, %s [Open-Meteo API]", city, formatCelsius(fc.Temperature), WeatherCondition(fc.WeatherCode)), nil
}

// formatCelsius keeps at least one decimal place, so 25 renders as "25.0".
func formatCelsius(t float64) string {
	s := strconv.FormatFloat(t, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Geocode resolves a city name to coordinates, consulting the cache first.
func (w *WeatherTool) Geocode(ctx context.Context, city string) (Coordinates, error) {
	if w.cache != nil {
		if c, ok, err := w.cache.Lookup(ctx, city); err == nil && ok {
			return c, nil
		}
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return Coordinates{}, err
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("format", "json")

	var places []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := w.getJSON(ctx, "nominatim", w.geocodeURL+"?"+q.Encode(), &places); err != nil {
		return Coordinates{}, err
	}
	if len(places) == 0 {
		return Coordinates{}, ErrCityNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude %q: %w", places[0].Lon, err)
	}
	c := Coordinates{Lat: lat, Lon: lon}

	if w.cache != nil {
		// A failed cache write only costs a future lookup.
		_ = w.cache.Store(ctx, city, c)
	}
	return c, nil
}

// Forecast fetches the current temperature and weather code.
func (w *WeatherTool) Forecast(ctx context.Context, c Coordinates) (Forecast, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	q.Set("current", "temperature_2m,weather_code")
	q.Set("timezone", "auto")

	var body struct {
		Current *struct {
			Temperature *float64 `json:"temperature_2m"`
			WeatherCode *int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := w.getJSON(ctx, "open-meteo", w.forecastURL+"?"+q.Encode(), &body); err != nil {
		return Forecast{}, err
	}
	if body.Current == nil || body.Current.Temperature == nil || body.Current.WeatherCode == nil {
		return Forecast{}, &BackendError{Service: "open-meteo", StatusCode: http.StatusOK, Err: errors.New("response is missing current temperature_2m or weather_code")}
	}
	return Forecast{Temperature: *body.Current.Temperature, WeatherCode: *body.Current.WeatherCode}, nil
}

func (w *WeatherTool) getJSON(ctx context.Context, service, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return &BackendError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &BackendError{Service: service, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &BackendError{Service: service, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
