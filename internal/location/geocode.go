package location

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
)

// Place is a geocoding result: coordinates plus whatever address
// components the provider returned.
type Place struct {
	Lat       float64
	Lng       float64
	Formatted string
	City      string
	State     string
	Zip       string
	Country   string
}

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Place, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*Place, error)
}

const geocodeEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleGeocoder talks to the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
	client *http.Client
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey, client: &http.Client{Timeout: 5 * time.Second}}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

func (g *GoogleGeocoder) query(ctx context.Context, params url.Values) (*Place, error) {
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		geocodeEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocode response: %w", err)
	}

	var parsed geocodeResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return nil, fmt.Errorf("geocode returned status %s", parsed.Status)
	}

	result := parsed.Results[0]
	place := &Place{
		Lat:       result.Geometry.Location.Lat,
		Lng:       result.Geometry.Location.Lng,
		Formatted: result.FormattedAddress,
	}
	for _, comp := range result.AddressComponents {
		for _, typ := range comp.Types {
			switch typ {
			case "locality":
				place.City = comp.LongName
			case "administrative_area_level_1":
				place.State = comp.ShortName
			case "postal_code":
				place.Zip = comp.LongName
			case "country":
				place.Country = comp.ShortName
			}
		}
	}
	return place, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (*Place, error) {
	params := url.Values{}
	params.Set("address", address)
	return g.query(ctx, params)
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*Place, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	return g.query(ctx, params)
}
