package application

import (
	"context"
	"errors"
	"fmt"

	admindomain "github.com/beanscene/api/internal/admin/domain"
	publicdomain "github.com/beanscene/api/internal/public/domain"
)

// ErrInvalidInstitution marks admin input that failed validation.
var ErrInvalidInstitution = errors.New("invalid institution")

// IsInvalidInstitution reports whether err came from input validation.
func IsInvalidInstitution(err error) bool {
	return errors.Is(err, ErrInvalidInstitution)
}

// institutionService implements InstitutionService.
type institutionService struct {
	repo     InstitutionRepository
	reloader TableReloader
}

func NewInstitutionService(repo InstitutionRepository, reloader TableReloader) InstitutionService {
	return &institutionService{repo: repo, reloader: reloader}
}

func (s *institutionService) List(ctx context.Context) ([]publicdomain.Institution, error) {
	return s.repo.List(ctx)
}

func (s *institutionService) Upsert(ctx context.Context, cmd UpsertInstitutionCommand) (*admindomain.Institution, error) {
	inst, err := buildInstitution(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstitution, err)
	}
	if err := s.repo.Upsert(ctx, inst.Public()); err != nil {
		return nil, err
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return inst, nil
}

// Reload pushes the persisted table into the resolver. An empty table is
// ignored so a fresh database keeps the built-in defaults.
func (s *institutionService) Reload(ctx context.Context) error {
	if s.reloader == nil {
		return nil
	}
	table, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("reload institutions: %w", err)
	}
	if len(table) == 0 {
		return nil
	}
	s.reloader.Replace(table)
	return nil
}

func buildInstitution(cmd UpsertInstitutionCommand) (*admindomain.Institution, error) {
	name, err := admindomain.NewInstitutionName(cmd.Name)
	if err != nil {
		return nil, err
	}
	lat, err := admindomain.NewLatitude(cmd.Lat)
	if err != nil {
		return nil, err
	}
	lng, err := admindomain.NewLongitude(cmd.Lng)
	if err != nil {
		return nil, err
	}
	zoom, err := admindomain.NewZoom(cmd.Zoom)
	if err != nil {
		return nil, err
	}
	inst := &admindomain.Institution{
		Name:    name,
		Aliases: admindomain.NewAliasList(name, cmd.Aliases),
		Lat:     lat,
		Lng:     lng,
		Zoom:    zoom,
	}
	if cmd.Bounds != nil {
		window, err := admindomain.NewWindow(cmd.Bounds.MinLat, cmd.Bounds.MaxLat, cmd.Bounds.MinLng, cmd.Bounds.MaxLng)
		if err != nil {
			return nil, err
		}
		inst.Bounds = window
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}
