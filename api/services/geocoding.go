package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/revocity/revocity/api/config"
)

// ErrGeocoderDisabled is returned when no geocoder key is configured
var ErrGeocoderDisabled = errors.New("reverse geocoding not configured")

// ReverseGeocoder resolves coordinates to a postal address
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseGeocodeResult, error)
}

type ReverseGeocodeResult struct {
	FormattedAddress string            `json:"formatted_address"`
	Components       map[string]string `json:"components"`
}

type GeocodingService struct {
	config     *config.Config
	httpClient *http.Client
	baseURL    string
}

type mapboxFeature struct {
	PlaceName string `json:"place_name"`
	Context   []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"context"`
}

type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

func NewGeocodingService(cfg *config.Config) *GeocodingService {
	return &GeocodingService{
		config:     cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    "https://api.mapbox.com/geocoding/v5/mapbox.places/",
	}
}

// ReverseGeocode looks up the address nearest to lat/lng
func (g *GeocodingService) ReverseGeocode(ctx context.Context, lat, lng float64) (*ReverseGeocodeResult, error) {
	if g.config.GeocoderAPIKey == "" || g.config.GeocoderAPIKey == "your-mapbox-api-key" {
		return nil, ErrGeocoderDisabled
	}

	switch g.config.Geocoder {
	case "mapbox", "":
		return g.reverseWithMapbox(ctx, lat, lng)
	default:
		return nil, fmt.Errorf("unsupported geocoder: %s", g.config.Geocoder)
	}
}

// reverseWithMapbox uses the Mapbox Geocoding API
func (g *GeocodingService) reverseWithMapbox(ctx context.Context, lat, lng float64) (*ReverseGeocodeResult, error) {
	// Mapbox takes lng,lat
	requestURL := fmt.Sprintf("%s%f,%f.json?access_token=%s&limit=1&types=address,poi,neighborhood",
		g.baseURL, lng, lat, g.config.GeocoderAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding API returned status %d", resp.StatusCode)
	}

	var mapboxResp mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, fmt.Errorf("failed to parse geocoding response: %w", err)
	}

	if len(mapboxResp.Features) == 0 || mapboxResp.Features[0].PlaceName == "" {
		return nil, fmt.Errorf("no geocoding results found for %f,%f", lat, lng)
	}

	feature := mapboxResp.Features[0]
	components := make(map[string]string)
	for _, c := range feature.Context {
		switch {
		case strings.HasPrefix(c.ID, "neighborhood"):
			components["neighborhood"] = c.Text
		case strings.HasPrefix(c.ID, "locality"):
			components["locality"] = c.Text
		case strings.HasPrefix(c.ID, "place"):
			components["city"] = c.Text
		case strings.HasPrefix(c.ID, "region"):
			components["state"] = c.Text
		case strings.HasPrefix(c.ID, "postcode"):
			components["postal_code"] = c.Text
		case strings.HasPrefix(c.ID, "country"):
			components["country"] = c.Text
		}
	}

	return &ReverseGeocodeResult{
		FormattedAddress: feature.PlaceName,
		Components:       components,
	}, nil
}

// ValidateCoordinates checks if lat/lng are valid
func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
