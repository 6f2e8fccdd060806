package application

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/beanscene/api/internal/public/domain"
)

// DiscoverQuery selects what to discover. An empty Institution falls back to
// the session's institution.
type DiscoverQuery struct {
	Institution string
	Query       string
}

// Discovery is a reconciled cafe list ready for the map and the search index.
type Discovery struct {
	Institution string
	Viewport    domain.Viewport
	Cafes       []domain.Cafe
	// PlacesError is set when the place-search provider failed and the list
	// holds persisted cafes only.
	PlacesError *PlacesFailure
}

// PlacesFailure is the non-blocking banner shown when place search degrades.
type PlacesFailure struct {
	Message   string
	Retryable bool
}

type discoveryService struct {
	resolver *CoordinateResolver
	cafes    CafeRepository
	places   PlaceSource
	logger   *zap.Logger
}

// NewDiscoveryService wires the resolver, the persisted store and an optional
// place source.
func NewDiscoveryService(resolver *CoordinateResolver, cafes CafeRepository, places PlaceSource, logger *zap.Logger) DiscoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &discoveryService{resolver: resolver, cafes: cafes, places: places, logger: logger}
}

func (s *discoveryService) Discover(ctx context.Context, session domain.SessionContext, query DiscoverQuery) (*Discovery, error) {
	institution := strings.TrimSpace(query.Institution)
	if institution == "" {
		institution = strings.TrimSpace(session.Institution)
	}
	inst, resolved := s.resolver.Lookup(institution)
	if resolved {
		institution = inst.Name
	}
	viewport := s.resolver.Resolve(institution)

	var (
		rows   []domain.CafeWithReviews
		places PlaceResult
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		rows, err = s.cafes.FetchCafes(groupCtx, institution)
		if err != nil {
			return &UpstreamError{Source: "store", Retryable: true, Err: err}
		}
		return nil
	})
	if s.places != nil && resolved {
		group.Go(func() error {
			places = s.places.Search(groupCtx, viewport.Center(), query.Query)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.logger.Error("cafe fetch failed", zap.String("institution", institution), zap.Error(err))
		return nil, err
	}

	discovery := &Discovery{
		Institution: institution,
		Viewport:    viewport,
	}
	if places.Err != nil {
		s.logger.Warn("place search degraded",
			zap.String("institution", institution),
			zap.Bool("retryable", places.Retryable),
			zap.Error(places.Err))
		discovery.PlacesError = &PlacesFailure{
			Message:   "nearby places are temporarily unavailable",
			Retryable: places.Retryable,
		}
	}
	discovery.Cafes = Merge(BuildCafeViews(rows, session.UserID), places.Places, s.resolver)
	return discovery, nil
}

func (s *discoveryService) Detail(ctx context.Context, session domain.SessionContext, id string) (*domain.Cafe, error) {
	row, err := s.cafes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &UpstreamError{Source: "store", Retryable: true, Err: err}
	}
	views := BuildCafeViews([]domain.CafeWithReviews{*row}, session.UserID)
	return &views[0], nil
}
