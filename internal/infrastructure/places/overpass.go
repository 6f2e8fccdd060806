package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beanscene/api/internal/public/domain"
)

// DefaultOverpassEndpoint is the public Overpass API interpreter.
const DefaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"

// OverpassProvider finds amenity=cafe nodes and ways in OpenStreetMap.
type OverpassProvider struct {
	endpoint string
	client   *http.Client
}

// NewOverpassProvider creates a provider. An empty endpoint uses DefaultOverpassEndpoint.
func NewOverpassProvider(endpoint string, timeout time.Duration) *OverpassProvider {
	if endpoint == "" {
		endpoint = DefaultOverpassEndpoint
	}
	// Overpass queries carry [timeout:25]; give the client room to receive the answer.
	if timeout < 30*time.Second {
		timeout = 30 * time.Second
	}
	return &OverpassProvider{endpoint: endpoint, client: newHTTPClient(timeout)}
}

func (p *OverpassProvider) Name() string { return "overpass" }

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassElement struct {
	ID     int64             `json:"id"`
	Type   string            `json:"type"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// SearchNear returns named cafes around center, optionally filtered by name.
func (p *OverpassProvider) SearchNear(ctx context.Context, center domain.Coordinate, radiusMeters int, query string) ([]domain.PlaceRecord, error) {
	form := url.Values{}
	form.Set("data", overpassQuery(center, radiusMeters, query))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "beanscene-api/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	var body overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	records := make([]domain.PlaceRecord, 0, len(body.Elements))
	for _, el := range body.Elements {
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			continue
		}
		lat, lon := el.Lat, el.Lon
		if el.Center != nil {
			lat, lon = el.Center.Lat, el.Center.Lon
		}
		records = append(records, domain.PlaceRecord{
			ID:         el.Type + "/" + strconv.FormatInt(el.ID, 10),
			Provider:   p.Name(),
			Name:       name,
			Address:    overpassAddress(el.Tags),
			Location:   domain.Coordinate{Lat: lat, Lng: lon},
			Categories: []string{"cafe"},
			Cuisine:    el.Tags["cuisine"],
			Phone:      el.Tags["phone"],
			Website:    el.Tags["website"],
		})
	}
	return records, nil
}

func overpassQuery(center domain.Coordinate, radiusMeters int, query string) string {
	filter := `["amenity"="cafe"]`
	if q := strings.TrimSpace(query); q != "" {
		filter += fmt.Sprintf(`["name"~"%s",i]`, escapeOverpass(regexp.QuoteMeta(q)))
	}
	around := fmt.Sprintf("(around:%d,%f,%f)", radiusMeters, center.Lat, center.Lng)
	return fmt.Sprintf("[out:json][timeout:25];(node%s%s;way%s%s;);out center;", filter, around, filter, around)
}

func escapeOverpass(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func overpassAddress(tags map[string]string) string {
	street := strings.TrimSpace(strings.Join(nonEmpty(tags["addr:housenumber"], tags["addr:street"]), " "))
	parts := nonEmpty(street, tags["addr:city"], tags["addr:postcode"])
	return strings.Join(parts, ", ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
