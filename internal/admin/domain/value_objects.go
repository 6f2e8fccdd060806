package domain

import (
	"fmt"
	"strings"
)

type InstitutionName string

func NewInstitutionName(value string) (InstitutionName, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("institution name is required")
	}
	if len([]rune(trimmed)) > 120 {
		return "", fmt.Errorf("institution name must be 120 characters or fewer")
	}
	return InstitutionName(trimmed), nil
}

func (n InstitutionName) String() string {
	return string(n)
}

type Latitude float64

func NewLatitude(value float64) (Latitude, error) {
	if value < -90 || value > 90 {
		return 0, fmt.Errorf("latitude must be between -90 and 90")
	}
	return Latitude(value), nil
}

type Longitude float64

func NewLongitude(value float64) (Longitude, error) {
	if value < -180 || value > 180 {
		return 0, fmt.Errorf("longitude must be between -180 and 180")
	}
	return Longitude(value), nil
}

type Zoom int

// NewZoom accepts 0 as "use the default".
func NewZoom(value int) (Zoom, error) {
	if value < 0 || value > 20 {
		return 0, fmt.Errorf("zoom must be between 1 and 20")
	}
	return Zoom(value), nil
}

type AliasList []string

// NewAliasList trims, drops blanks and removes case-insensitive duplicates,
// including aliases equal to the name itself.
func NewAliasList(name InstitutionName, values []string) AliasList {
	result := make([]string, 0, len(values))
	seen := map[string]struct{}{strings.ToLower(name.String()): {}}
	for _, raw := range values {
		alias := strings.TrimSpace(raw)
		if alias == "" {
			continue
		}
		key := strings.ToLower(alias)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, alias)
	}
	return AliasList(result)
}

type Window struct {
	MinLat Latitude
	MaxLat Latitude
	MinLng Longitude
	MaxLng Longitude
}

func NewWindow(minLat, maxLat, minLng, maxLng float64) (*Window, error) {
	lo, err := NewLatitude(minLat)
	if err != nil {
		return nil, err
	}
	hi, err := NewLatitude(maxLat)
	if err != nil {
		return nil, err
	}
	west, err := NewLongitude(minLng)
	if err != nil {
		return nil, err
	}
	east, err := NewLongitude(maxLng)
	if err != nil {
		return nil, err
	}
	if lo > hi || west > east {
		return nil, fmt.Errorf("bounds minimum must not exceed maximum")
	}
	return &Window{MinLat: lo, MaxLat: hi, MinLng: west, MaxLng: east}, nil
}
