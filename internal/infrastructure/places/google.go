package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beanscene/api/internal/public/domain"
)

// DefaultGoogleEndpoint is the Places Nearby Search endpoint.
const DefaultGoogleEndpoint = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// GoogleProvider queries Google Places Nearby Search for cafes.
type GoogleProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewGoogleProvider creates a provider. An empty endpoint uses DefaultGoogleEndpoint.
func NewGoogleProvider(endpoint, apiKey string, timeout time.Duration) *GoogleProvider {
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	return &GoogleProvider{endpoint: endpoint, apiKey: apiKey, client: newHTTPClient(timeout)}
}

func (p *GoogleProvider) Name() string { return "google" }

type googleResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Results      []googleResult `json:"results"`
}

type googleResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
	BusinessStatus   string   `json:"business_status"`
	PriceLevel       *int     `json:"price_level"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// SearchNear returns open cafes around center.
func (p *GoogleProvider) SearchNear(ctx context.Context, center domain.Coordinate, radiusMeters int, query string) ([]domain.PlaceRecord, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", center.Lat, center.Lng))
	params.Set("radius", strconv.Itoa(radiusMeters))
	params.Set("type", "cafe")
	if q := strings.TrimSpace(query); q != "" {
		params.Set("keyword", q)
	}
	params.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode google places response: %w", err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []domain.PlaceRecord{}, nil
	case "OVER_QUERY_LIMIT":
		return nil, fmt.Errorf("%w: %s", errQuota, body.ErrorMessage)
	case "UNKNOWN_ERROR":
		return nil, &StatusError{Code: http.StatusBadGateway, Status: body.Status}
	default:
		return nil, fmt.Errorf("google places status %s: %s", body.Status, body.ErrorMessage)
	}

	records := make([]domain.PlaceRecord, 0, len(body.Results))
	for _, r := range body.Results {
		if r.PlaceID == "" || strings.TrimSpace(r.Name) == "" {
			continue
		}
		if r.BusinessStatus != "" && r.BusinessStatus != "OPERATIONAL" {
			continue
		}
		address := r.FormattedAddress
		if address == "" {
			address = r.Vicinity
		}
		records = append(records, domain.PlaceRecord{
			ID:         r.PlaceID,
			Provider:   p.Name(),
			Name:       strings.TrimSpace(r.Name),
			Address:    address,
			Location:   domain.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			Categories: append([]string{}, r.Types...),
		})
	}
	return records, nil
}
