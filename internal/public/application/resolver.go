package application

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/beanscene/api/internal/public/domain"
)

//go:embed institutions.yaml
var defaultInstitutionsYAML []byte

// FallbackViewport is returned for names no table entry matches: the
// continental US at a low zoom.
var FallbackViewport = domain.Viewport{Lat: 39.8283, Lng: -98.5795, Zoom: 4}

// defaultWindow is the half-width in degrees of the tagging window used for
// institutions that carry no explicit bounds.
const defaultWindow = 0.02

// DefaultInstitutions parses the embedded campus table.
func DefaultInstitutions() ([]domain.Institution, error) {
	return ParseInstitutions(defaultInstitutionsYAML)
}

// LoadInstitutionsFile parses a campus table from a YAML file.
func LoadInstitutionsFile(path string) ([]domain.Institution, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read institutions file: %w", err)
	}
	return ParseInstitutions(raw)
}

// ParseInstitutions decodes a YAML list of institutions, keeping file order.
func ParseInstitutions(raw []byte) ([]domain.Institution, error) {
	var list []domain.Institution
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode institutions: %w", err)
	}
	for i, inst := range list {
		if strings.TrimSpace(inst.Name) == "" {
			return nil, fmt.Errorf("institution #%d has no name", i)
		}
	}
	return list, nil
}

// CoordinateResolver maps institution names to a map viewport and tags
// coordinates with the institution whose window contains them.
type CoordinateResolver struct {
	mu    sync.RWMutex
	table []domain.Institution
}

// NewCoordinateResolver creates a resolver over table. Lookups that hit more
// than one entry return the first in table order.
func NewCoordinateResolver(table []domain.Institution) *CoordinateResolver {
	r := &CoordinateResolver{}
	r.Replace(table)
	return r
}

// Replace swaps the lookup table.
func (r *CoordinateResolver) Replace(table []domain.Institution) {
	copied := append([]domain.Institution(nil), table...)
	r.mu.Lock()
	r.table = copied
	r.mu.Unlock()
}

// Institutions returns a copy of the current table.
func (r *CoordinateResolver) Institutions() []domain.Institution {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Institution(nil), r.table...)
}

// Resolve never fails: unknown names get FallbackViewport.
func (r *CoordinateResolver) Resolve(name string) domain.Viewport {
	inst, ok := r.Lookup(name)
	if !ok {
		return FallbackViewport
	}
	return viewportOf(inst)
}

// Lookup finds the table entry for name using, in order: exact name, exact
// alias, name substring (either direction) and alias substring. All
// comparisons ignore case.
func (r *CoordinateResolver) Lookup(name string) (domain.Institution, bool) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return domain.Institution{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inst := range r.table {
		if strings.ToLower(inst.Name) == query {
			return inst, true
		}
	}
	for _, inst := range r.table {
		for _, alias := range inst.Aliases {
			if strings.ToLower(alias) == query {
				return inst, true
			}
		}
	}
	for _, inst := range r.table {
		if overlaps(strings.ToLower(inst.Name), query) {
			return inst, true
		}
	}
	for _, inst := range r.table {
		for _, alias := range inst.Aliases {
			if overlaps(strings.ToLower(alias), query) {
				return inst, true
			}
		}
	}
	return domain.Institution{}, false
}

// TagFor returns the first institution whose window contains c, or
// domain.UnknownInstitution.
func (r *CoordinateResolver) TagFor(c domain.Coordinate) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, inst := range r.table {
		if windowOf(inst).Contains(c) {
			return inst.Name
		}
	}
	return domain.UnknownInstitution
}

func overlaps(candidate, query string) bool {
	if candidate == "" {
		return false
	}
	return strings.Contains(candidate, query) || strings.Contains(query, candidate)
}

func viewportOf(inst domain.Institution) domain.Viewport {
	zoom := inst.Zoom
	if zoom <= 0 {
		zoom = 15
	}
	return domain.Viewport{Lat: inst.Lat, Lng: inst.Lng, Zoom: zoom}
}

func windowOf(inst domain.Institution) domain.Bounds {
	if inst.Bounds != nil {
		return *inst.Bounds
	}
	return domain.Bounds{
		MinLat: inst.Lat - defaultWindow,
		MaxLat: inst.Lat + defaultWindow,
		MinLng: inst.Lng - defaultWindow,
		MaxLng: inst.Lng + defaultWindow,
	}
}
