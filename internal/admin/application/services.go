package application

import (
	"context"

	admindomain "github.com/beanscene/api/internal/admin/domain"
	publicdomain "github.com/beanscene/api/internal/public/domain"
)

// InstitutionRepository exposes admin operations on the campus table.
type InstitutionRepository interface {
	List(ctx context.Context) ([]publicdomain.Institution, error)
	Upsert(ctx context.Context, inst publicdomain.Institution) error
}

// TableReloader receives the refreshed campus table after every write.
type TableReloader interface {
	Replace(table []publicdomain.Institution)
}

// UpsertInstitutionCommand is the raw admin input for one campus row.
type UpsertInstitutionCommand struct {
	Name    string
	Aliases []string
	Lat     float64
	Lng     float64
	Zoom    int
	Bounds  *BoundsInput
}

// BoundsInput is the raw tagging window.
type BoundsInput struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// InstitutionService describes admin institution use-cases.
type InstitutionService interface {
	List(ctx context.Context) ([]publicdomain.Institution, error)
	Upsert(ctx context.Context, cmd UpsertInstitutionCommand) (*admindomain.Institution, error)
	Reload(ctx context.Context) error
}
