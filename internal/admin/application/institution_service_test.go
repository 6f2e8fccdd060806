package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	publicapp "github.com/beanscene/api/internal/public/application"
	publicdomain "github.com/beanscene/api/internal/public/domain"
)

type memoryInstitutions struct {
	rows []publicdomain.Institution
}

func (m *memoryInstitutions) List(context.Context) ([]publicdomain.Institution, error) {
	return append([]publicdomain.Institution(nil), m.rows...), nil
}

func (m *memoryInstitutions) Upsert(_ context.Context, inst publicdomain.Institution) error {
	for i, row := range m.rows {
		if row.Name == inst.Name {
			m.rows[i] = inst
			return nil
		}
	}
	m.rows = append(m.rows, inst)
	return nil
}

func TestUpsertReloadsResolver(t *testing.T) {
	repo := &memoryInstitutions{}
	resolver := publicapp.NewCoordinateResolver(nil)
	svc := NewInstitutionService(repo, resolver)

	inst, err := svc.Upsert(context.Background(), UpsertInstitutionCommand{
		Name:    "  Reed College ",
		Aliases: []string{"Reed", "reed", " ", "REED COLLEGE"},
		Lat:     45.4812,
		Lng:     -122.6308,
		Zoom:    16,
		Bounds:  &BoundsInput{MinLat: 45.47, MaxLat: 45.49, MinLng: -122.64, MaxLng: -122.62},
	})

	require.NoError(t, err)
	assert.Equal(t, "Reed College", inst.Name.String())
	assert.Equal(t, []string{"Reed"}, []string(inst.Aliases))
	assert.Equal(t, publicdomain.Viewport{Lat: 45.4812, Lng: -122.6308, Zoom: 16}, resolver.Resolve("reed"))
	assert.Equal(t, "Reed College", resolver.TagFor(publicdomain.Coordinate{Lat: 45.48, Lng: -122.63}))
}

func TestUpsertRejectsBadInput(t *testing.T) {
	svc := NewInstitutionService(&memoryInstitutions{}, nil)
	ctx := context.Background()

	cases := map[string]UpsertInstitutionCommand{
		"blank name":      {Name: " ", Lat: 1, Lng: 1},
		"latitude":        {Name: "X", Lat: 91, Lng: 1},
		"longitude":       {Name: "X", Lat: 1, Lng: -181},
		"zoom":            {Name: "X", Lat: 1, Lng: 1, Zoom: 25},
		"inverted bounds": {Name: "X", Lat: 1, Lng: 1, Bounds: &BoundsInput{MinLat: 2, MaxLat: 0, MinLng: 0, MaxLng: 2}},
		"center outside":  {Name: "X", Lat: 5, Lng: 5, Bounds: &BoundsInput{MinLat: 0, MaxLat: 2, MinLng: 0, MaxLng: 2}},
	}
	for name, cmd := range cases {
		_, err := svc.Upsert(ctx, cmd)
		assert.True(t, IsInvalidInstitution(err), name)
	}
}

func TestReloadKeepsDefaultsWhenEmpty(t *testing.T) {
	table, err := publicapp.DefaultInstitutions()
	require.NoError(t, err)
	resolver := publicapp.NewCoordinateResolver(table)
	svc := NewInstitutionService(&memoryInstitutions{}, resolver)

	require.NoError(t, svc.Reload(context.Background()))
	assert.Len(t, resolver.Institutions(), len(table))
}
