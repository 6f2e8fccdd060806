package domain

import (
	"fmt"

	publicdomain "github.com/beanscene/api/internal/public/domain"
)

// Institution is a validated campus row as edited by admins.
type Institution struct {
	Name    InstitutionName
	Aliases AliasList
	Lat     Latitude
	Lng     Longitude
	Zoom    Zoom
	Bounds  *Window
}

// Public converts the row into the shape the resolver reads.
func (i Institution) Public() publicdomain.Institution {
	inst := publicdomain.Institution{
		Name:    i.Name.String(),
		Aliases: append([]string{}, i.Aliases...),
		Lat:     float64(i.Lat),
		Lng:     float64(i.Lng),
		Zoom:    int(i.Zoom),
	}
	if i.Bounds != nil {
		inst.Bounds = &publicdomain.Bounds{
			MinLat: float64(i.Bounds.MinLat),
			MaxLat: float64(i.Bounds.MaxLat),
			MinLng: float64(i.Bounds.MinLng),
			MaxLng: float64(i.Bounds.MaxLng),
		}
	}
	return inst
}

// ContainsCenter reports whether the center lies in the bounds, if any.
func (i Institution) ContainsCenter() bool {
	if i.Bounds == nil {
		return true
	}
	return i.Public().Bounds.Contains(publicdomain.Coordinate{Lat: float64(i.Lat), Lng: float64(i.Lng)})
}

// Validate checks cross-field rules.
func (i Institution) Validate() error {
	if !i.ContainsCenter() {
		return fmt.Errorf("center must lie inside bounds")
	}
	return nil
}
